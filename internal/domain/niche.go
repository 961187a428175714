package domain

import (
	"regexp"
	"strings"
)

var (
	slugSeparatorRe = regexp.MustCompile(`[\s_/&+]+`)
	slugInvalidRe   = regexp.MustCompile(`[^a-z0-9-]`)
	slugDashesRe    = regexp.MustCompile(`-+`)
)

// Niche is one product category the pipeline builds a listing for
type Niche struct {
	Name    string `json:"name"`
	Keyword string `json:"keyword"`
}

// SearchTerm returns the keyword used to query sources, defaulting to the name
func (n Niche) SearchTerm() string {
	if kw := strings.TrimSpace(n.Keyword); kw != "" {
		return kw
	}
	return strings.TrimSpace(n.Name)
}

// Slug returns the file-safe key for this niche
func (n Niche) Slug() string {
	return Slugify(n.Name)
}

// Slugify converts a niche name to a lowercase, dash separated key.
//
//	"Bluetooth Headphones"   → "bluetooth-headphones"
//	"  Pet Food & Treats "   → "pet-food-treats"
//	"4K TVs (2025)"          → "4k-tvs-2025"
func Slugify(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = slugSeparatorRe.ReplaceAllString(s, "-")
	s = slugInvalidRe.ReplaceAllString(s, "")
	s = slugDashesRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
