package domain

// RawCandidate is a record exactly as one source returned it.
// Only Source is guaranteed; Fields may hold anything.
type RawCandidate struct {
	Source string         `json:"source"`
	Fields map[string]any `json:"fields"`
}

// NewRawCandidate creates a raw candidate tagged with its source
func NewRawCandidate(source string, fields map[string]any) RawCandidate {
	if fields == nil {
		fields = map[string]any{}
	}
	return RawCandidate{Source: source, Fields: fields}
}

// NormalizedCandidate is the canonical candidate shape used by every stage after
// normalization. Empty strings and nil pointers mean "unknown".
type NormalizedCandidate struct {
	Identifier    string   `json:"identifier,omitempty"`
	Title         string   `json:"title,omitempty"`
	ImageURL      string   `json:"imageUrl,omitempty"`
	Price         string   `json:"price,omitempty"`
	OriginalPrice string   `json:"originalPrice,omitempty"`
	URL           string   `json:"url,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
	ReviewCount   *int     `json:"reviewCount,omitempty"`
	Description   string   `json:"description,omitempty"`
	Features      []string `json:"features"`
	SourceTag     string   `json:"sourceTag"`
}

// RatingOrZero returns the rating, treating unknown as 0
func (c NormalizedCandidate) RatingOrZero() float64 {
	if c.Rating == nil {
		return 0
	}
	return *c.Rating
}

// ReviewCountOrZero returns the review count, treating unknown as 0
func (c NormalizedCandidate) ReviewCountOrZero() int {
	if c.ReviewCount == nil {
		return 0
	}
	return *c.ReviewCount
}

// FilteredCandidate survived deduplication and the quality floor.
// Title and Identifier are always non-empty.
type FilteredCandidate struct {
	NormalizedCandidate
	IsPremiumTier bool `json:"isPremiumTier"`
}

// EnrichedProduct is the final, publishable product handed to the renderer.
type EnrichedProduct struct {
	Identifier    string   `json:"identifier"`
	Title         string   `json:"title"`
	ImageURL      string   `json:"imageUrl"`
	Price         string   `json:"price"`
	OriginalPrice string   `json:"originalPrice,omitempty"`
	Discount      int      `json:"discount,omitempty"` // percent off OriginalPrice
	Rating        float64  `json:"rating"`
	ReviewCount   int      `json:"reviewCount"`
	Description   string   `json:"description"`
	Features      []string `json:"features"`
	PurchaseURL   string   `json:"purchaseUrl"`
	IsPremiumTier bool     `json:"isPremiumTier"`
	SourceTag     string   `json:"sourceTag"`
}
