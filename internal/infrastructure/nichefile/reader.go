// Package nichefile reads the list of niches a batch run should process.
package nichefile

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nichegen/pipeline/internal/domain"
)

// Read loads niches from path. See Parse for the accepted formats.
func Read(path string) ([]domain.Niche, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open niches file: %w", err)
	}
	defer f.Close()

	niches, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return niches, nil
}

// Parse accepts either a CSV whose header row contains a "niche" column (and
// optionally "keyword"), or a plain list with one niche per line. Blank lines
// and lines starting with # are skipped. Later niches with a slug already seen
// are dropped, so input order is preserved.
func Parse(r io.Reader) ([]domain.Niche, error) {
	lines, err := meaningfulLines(r)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return []domain.Niche{}, nil
	}

	var niches []domain.Niche
	if isCSVHeader(lines[0]) {
		niches, err = parseCSV(strings.Join(lines, "\n"))
		if err != nil {
			return nil, err
		}
	} else {
		for _, line := range lines {
			niches = append(niches, domain.Niche{Name: line, Keyword: line})
		}
	}

	return dedupe(niches), nil
}

func meaningfulLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

func isCSVHeader(line string) bool {
	for _, col := range strings.Split(strings.ToLower(line), ",") {
		if strings.TrimSpace(col) == "niche" {
			return true
		}
	}
	return false
}

func parseCSV(data string) ([]domain.Niche, error) {
	reader := csv.NewReader(strings.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, err
	}

	nicheCol, keywordCol := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "niche":
			nicheCol = i
		case "keyword":
			keywordCol = i
		}
	}

	var niches []domain.Niche
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		name := field(record, nicheCol)
		if name == "" {
			continue
		}
		keyword := field(record, keywordCol)
		if keyword == "" {
			keyword = name
		}
		niches = append(niches, domain.Niche{Name: name, Keyword: keyword})
	}
	return niches, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func dedupe(niches []domain.Niche) []domain.Niche {
	seen := make(map[string]bool, len(niches))
	out := make([]domain.Niche, 0, len(niches))
	for _, n := range niches {
		slug := n.Slug()
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		out = append(out, n)
	}
	return out
}
