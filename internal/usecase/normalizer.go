package usecase

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/nichegen/pipeline/internal/domain"
)

// Source field names, in priority order, for each canonical attribute.
var (
	identifierKeys    = []string{"asin", "ASIN", "product_asin"}
	titleKeys         = []string{"title", "product_title", "name"}
	imageKeys         = []string{"image_url", "image", "product_photo"}
	priceKeys         = []string{"price", "product_price"}
	originalPriceKeys = []string{"original_price", "product_original_price"}
	ratingKeys        = []string{"rating", "product_star_rating", "stars"}
	reviewCountKeys   = []string{"reviewCount", "review_count", "reviews", "product_num_ratings", "ratings_total"}
	descriptionKeys   = []string{"description", "product_description"}
	featureKeys       = []string{"features", "about_product", "feature_bullets"}
	urlKeys           = []string{"product_url", "url", "link"}
)

// Normalizer maps heterogeneous source records onto domain.NormalizedCandidate.
// It is pure: the same raw record always yields the same candidate.
type Normalizer struct{}

// NewNormalizer creates a normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize converts one raw record. Fields that are missing or unusable come back empty or nil.
func (n *Normalizer) Normalize(raw domain.RawCandidate) domain.NormalizedCandidate {
	f := raw.Fields

	return domain.NormalizedCandidate{
		Identifier:    pickString(f, identifierKeys...),
		Title:         collapseWhitespace(pickString(f, titleKeys...)),
		ImageURL:      pickImage(f),
		Price:         pickPrice(f, priceKeys...),
		OriginalPrice: pickPrice(f, originalPriceKeys...),
		URL:           absoluteURL(pickString(f, urlKeys...)),
		Rating:        pickRating(f, ratingKeys...),
		ReviewCount:   pickCount(f, reviewCountKeys...),
		Description:   stripHTML(pickString(f, descriptionKeys...)),
		Features:      pickStringList(f, featureKeys...),
		SourceTag:     raw.Source,
	}
}

// NormalizeAll converts a batch, preserving order
func (n *Normalizer) NormalizeAll(raws []domain.RawCandidate) []domain.NormalizedCandidate {
	out := make([]domain.NormalizedCandidate, 0, len(raws))
	for _, raw := range raws {
		out = append(out, n.Normalize(raw))
	}
	return out
}

// pickString returns the first non-blank string value among keys
func pickString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

func pickImage(obj map[string]any) string {
	if img := absoluteURL(pickString(obj, imageKeys...)); img != "" {
		return img
	}
	if images, ok := obj["images"].([]any); ok && len(images) > 0 {
		switch first := images[0].(type) {
		case string:
			return absoluteURL(first)
		case map[string]any:
			return absoluteURL(pickString(first, "url", "link", "large"))
		}
	}
	return ""
}

func absoluteURL(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "http") {
		return s
	}
	return ""
}

// pickPrice formats numbers as "$N.NN" and passes display strings through
func pickPrice(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if p := formatPrice(obj[k]); p != "" {
			return p
		}
	}
	return ""
}

func formatPrice(v any) string {
	switch p := v.(type) {
	case string:
		return strings.TrimSpace(p)
	case map[string]any:
		if raw := pickString(p, "raw", "display", "formatted"); raw != "" {
			return raw
		}
		return formatPrice(p["value"])
	default:
		if f, ok := toFloat(v); ok && f > 0 {
			return fmt.Sprintf("$%.2f", f)
		}
	}
	return ""
}

// pickRating accepts numbers or strings starting with a number; values outside 0-5 are discarded
func pickRating(obj map[string]any, keys ...string) *float64 {
	for _, k := range keys {
		v, present := obj[k]
		if !present || v == nil {
			continue
		}

		var rating float64
		var ok bool
		if s, isString := v.(string); isString {
			rating, ok = parseLeadingNumber(s)
		} else {
			rating, ok = toFloat(v)
		}
		if !ok || rating < 0 || rating > 5 || math.IsNaN(rating) {
			continue
		}
		return &rating
	}
	return nil
}

func pickCount(obj map[string]any, keys ...string) *int {
	for _, k := range keys {
		v, present := obj[k]
		if !present || v == nil {
			continue
		}

		var count int
		var ok bool
		if s, isString := v.(string); isString {
			count, ok = parseCount(s)
		} else if f, isNum := toFloat(v); isNum && f >= 0 {
			count, ok = int(math.Round(f)), true
		}
		if ok {
			return &count
		}
	}
	return nil
}

// pickStringList reads a list of strings (or a single string) from the first key that has one
func pickStringList(obj map[string]any, keys ...string) []string {
	for _, k := range keys {
		var items []string
		switch v := obj[k].(type) {
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					if s = stripHTML(s); s != "" {
						items = append(items, s)
					}
				}
			}
		case []string:
			for _, s := range v {
				if s = stripHTML(s); s != "" {
					items = append(items, s)
				}
			}
		case string:
			for _, line := range strings.Split(v, "\n") {
				if s := stripHTML(line); s != "" {
					items = append(items, s)
				}
			}
		}
		if len(items) > 0 {
			return items
		}
	}
	return []string{}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
