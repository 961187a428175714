// Package snapshot persists one JSON snapshot file per niche.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nichegen/pipeline/internal/domain"
)

const fileExt = ".json"

// FileStore writes snapshots to <dir>/<slug>.json. Each save replaces the whole file.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

// NewFileStore creates a snapshot store rooted at dir. The directory is created on first save.
func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		dir:    dir,
		logger: logger.With(slog.String("component", "snapshot")),
	}
}

// Dir returns the snapshot directory
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file a slug is stored at
func (s *FileStore) Path(slug string) string {
	return filepath.Join(s.dir, slug+fileExt)
}

// Save writes the snapshot atomically: a temp file in the same directory is
// renamed over the target, so readers never see a partial file.
func (s *FileStore) Save(_ context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: nil snapshot", domain.ErrInvalidRequest)
	}
	if err := validSlug(snap.Slug); err != nil {
		return err
	}
	if snap.Products == nil {
		snap.Products = []domain.EnrichedProduct{}
	}
	if snap.Raw == nil {
		snap.Raw = []domain.RawCandidate{}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", snap.Slug, err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+snap.Slug+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot %s: %w", snap.Slug, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot %s: %w", snap.Slug, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot %s: %w", snap.Slug, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod snapshot %s: %w", snap.Slug, err)
	}

	target := s.Path(snap.Slug)
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("replace snapshot %s: %w", snap.Slug, err)
	}

	s.logger.Info("snapshot saved",
		slog.String("niche", snap.Niche),
		slog.String("path", target),
		slog.Int("raw", len(snap.Raw)),
		slog.Int("products", len(snap.Products)))
	return nil
}

// Load reads the snapshot for a slug
func (s *FileStore) Load(_ context.Context, slug string) (*domain.Snapshot, error) {
	if err := validSlug(slug); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path(slug))
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", slug, err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", slug, err)
	}
	return &snap, nil
}

// List returns summaries of every readable snapshot, sorted by slug.
// Unreadable files are logged and skipped.
func (s *FileStore) List(ctx context.Context) ([]domain.SnapshotSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []domain.SnapshotSummary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	summaries := make([]domain.SnapshotSummary, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != fileExt {
			continue
		}

		snap, err := s.Load(ctx, strings.TrimSuffix(name, fileExt))
		if err != nil {
			s.logger.Warn("skipping unreadable snapshot", slog.String("file", name), slog.String("error", err.Error()))
			continue
		}
		summaries = append(summaries, snap.Summary())
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Slug < summaries[j].Slug })
	return summaries, nil
}

// validSlug rejects anything that could escape the snapshot directory
func validSlug(slug string) error {
	if slug == "" || slug != domain.Slugify(slug) {
		return fmt.Errorf("%w: invalid snapshot slug %q", domain.ErrInvalidRequest, slug)
	}
	return nil
}
