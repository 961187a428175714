package domain

import (
	"sort"
	"time"
)

// SourceReport records what one source contributed to a gather pass and,
// when it contributed nothing because it failed, why.
type SourceReport struct {
	Source   string        `json:"source"`
	Count    int           `json:"count"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"durationNs"`
	Fallback bool          `json:"fallback,omitempty"`
}

// Failed reports whether the source returned an error
func (r SourceReport) Failed() bool {
	return r.Error != ""
}

// Snapshot is the persisted state of one niche at the end of a run.
type Snapshot struct {
	Niche        string            `json:"niche"`
	Keyword      string            `json:"keyword"`
	Slug         string            `json:"slug"`
	RunID        string            `json:"runId"`
	GeneratedAt  time.Time         `json:"generatedAt"`
	Sources      []SourceReport    `json:"sources"`
	FallbackUsed bool              `json:"fallbackUsed"`
	Raw          []RawCandidate    `json:"raw"`
	Products     []EnrichedProduct `json:"products"`
}

// SnapshotSummary is the short form of a snapshot used for listings
type SnapshotSummary struct {
	Niche        string    `json:"niche"`
	Slug         string    `json:"slug"`
	RunID        string    `json:"runId"`
	GeneratedAt  time.Time `json:"generatedAt"`
	ProductCount int       `json:"productCount"`
	RawCount     int       `json:"rawCount"`
}

// Summary returns the listing form of the snapshot
func (s *Snapshot) Summary() SnapshotSummary {
	return SnapshotSummary{
		Niche:        s.Niche,
		Slug:         s.Slug,
		RunID:        s.RunID,
		GeneratedAt:  s.GeneratedAt,
		ProductCount: len(s.Products),
		RawCount:     len(s.Raw),
	}
}

// NicheStatus is the outcome of processing one niche
type NicheStatus string

const (
	NicheSucceeded NicheStatus = "success"
	NicheEmpty     NicheStatus = "empty"
	NicheFailed    NicheStatus = "failed"
)

// NicheResult is what the batch driver records per niche
type NicheResult struct {
	Niche    Niche             `json:"niche"`
	Status   NicheStatus       `json:"status"`
	Products []EnrichedProduct `json:"products"`
	Error    string            `json:"error,omitempty"`
	Duration time.Duration     `json:"durationNs"`
}

// BatchSummary aggregates the results of one run over all niches
type BatchSummary struct {
	RunID     string        `json:"runId"`
	StartedAt time.Time     `json:"startedAt"`
	Results   []NicheResult `json:"results"`

	// DuplicateIdentifiers maps an identifier to every niche slug that published it.
	DuplicateIdentifiers map[string][]string `json:"duplicateIdentifiers,omitempty"`
}

// Succeeded returns the niches that published at least one product
func (b *BatchSummary) Succeeded() []NicheResult {
	return b.filter(func(r NicheResult) bool { return r.Status == NicheSucceeded })
}

// Failed returns niches that errored or produced an empty list
func (b *BatchSummary) Failed() []NicheResult {
	return b.filter(func(r NicheResult) bool { return r.Status != NicheSucceeded })
}

// AllFailed is true when no niche succeeded. An empty batch counts as failed.
func (b *BatchSummary) AllFailed() bool {
	return len(b.Succeeded()) == 0
}

// DuplicateIDs returns the duplicated identifiers in sorted order
func (b *BatchSummary) DuplicateIDs() []string {
	ids := make([]string, 0, len(b.DuplicateIdentifiers))
	for id := range b.DuplicateIdentifiers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (b *BatchSummary) filter(keep func(NicheResult) bool) []NicheResult {
	var out []NicheResult
	for _, r := range b.Results {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
