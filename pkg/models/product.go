package models

import "time"

// Product is one sellable catalog item. This is the typed view used by the
// query engine; the shard files on disk keep the same JSON field names and
// may carry extra fields introduced by batch mutations that this struct
// simply ignores.
type Product struct {
	ID             string  `json:"id"`                        // stable slug, unique across all shards
	Name           string  `json:"name"`                      // display name (English)
	NameJA         string  `json:"name_ja,omitempty"`         // Japanese name, if any
	Series         string  `json:"series"`                    // series / category label
	Rarity         string  `json:"rarity"`                    // see Rarity* constants
	Price          float64 `json:"price"`                     // current price, non-negative
	OriginalPrice  float64 `json:"original_price"`            // launch price, non-negative
	Color          string  `json:"color"`                     // primary color, "#RRGGBB"
	ImageURL       string  `json:"image_url,omitempty"`       // cover image URL (if any)
	Availability   string  `json:"availability"`              // see Availability* constants
	ReleaseDate    string  `json:"release_date"`              // "2006-01-02"
	AppearanceRate string  `json:"appearance_rate,omitempty"` // e.g. "1/144" for secrets
	CreatedAt      string  `json:"created_at,omitempty"`      // RFC3339
	UpdatedAt      string  `json:"updated_at,omitempty"`      // RFC3339
}

// Rarity tiers, lowest to highest.
const (
	RarityNormal  = "normal"
	RarityRare    = "rare"
	RaritySuper   = "super_rare"
	RarityHidden  = "hidden" // the "secret" figure of a blind-box series
	RarityLimited = "limited"
)

// rarityRank is the fixed ordinal used for rarity sorting. Sorting rarity
// lexicographically would put "hidden" before "rare", which is wrong.
var rarityRank = map[string]int{
	RarityNormal:  1,
	RarityRare:    2,
	RaritySuper:   3,
	RarityHidden:  4,
	RarityLimited: 5,
}

// RarityRank returns the sort ordinal for a rarity value. Unknown values
// rank below every known tier so bad data surfaces at the front of an
// ascending sort instead of disappearing.
func RarityRank(rarity string) int {
	if r, ok := rarityRank[rarity]; ok {
		return r
	}
	return 0
}

// ValidRarity reports whether rarity is one of the known tiers.
func ValidRarity(rarity string) bool {
	_, ok := rarityRank[rarity]
	return ok
}

// Availability states.
const (
	AvailabilityInStock      = "in_stock"
	AvailabilityOutOfStock   = "out_of_stock"
	AvailabilityPreorder     = "preorder"
	AvailabilityDiscontinued = "discontinued"
)

// ReleaseDateLayout is the calendar-date layout used in shard files.
const ReleaseDateLayout = "2006-01-02"

// ReleaseTime parses the record's release date. Zero time for malformed or
// missing dates, so they sort first ascending rather than failing a query.
func (p Product) ReleaseTime() time.Time {
	t, err := time.Parse(ReleaseDateLayout, p.ReleaseDate)
	if err != nil {
		return time.Time{}
	}
	return t
}
