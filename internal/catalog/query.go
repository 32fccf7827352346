package catalog

import (
	"fmt"
	"sort"
	"strings"

	"figurehub/pkg/models"
)

type SortKey string

const (
	SortName        SortKey = "name"
	SortPrice       SortKey = "price"
	SortRarity      SortKey = "rarity"
	SortReleaseDate SortKey = "release_date"
)

type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Query is the fixed filter/sort/paginate contract. Zero values mean "no
// filter": empty rarity/series sets match everything, nil price bounds are
// open-ended.
type Query struct {
	Search   string
	Rarities []string
	Series   []string
	MinPrice *float64
	MaxPrice *float64
	SortBy   SortKey
	Order    Order
	Page     int // 1-based
	PageSize int
}

// Result is one page of a query plus the totals needed to iterate the rest.
// TotalPages is 0 when nothing matched, so an empty result set is
// distinguishable from a single empty page.
type Result struct {
	Records    []models.Product `json:"records"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	TotalPages int              `json:"total_pages"`
}

// SeriesCount pairs a series label with its record count.
type SeriesCount struct {
	Series string `json:"series"`
	Count  int    `json:"count"`
}

// Engine answers read-only queries against the loader's merged collection.
// It never blocks on mutations: those rewrite files and swap the cached
// collection, they do not edit the one the engine is reading.
type Engine struct {
	loader *Loader
}

func NewEngine(loader *Loader) *Engine {
	return &Engine{loader: loader}
}

func (q *Query) normalize() error {
	if q.SortBy == "" {
		q.SortBy = SortName
	}
	switch q.SortBy {
	case SortName, SortPrice, SortRarity, SortReleaseDate:
	default:
		return fmt.Errorf("%w: unknown sort key %q", ErrInvalidArgument, q.SortBy)
	}

	if q.Order == "" {
		q.Order = OrderAsc
	}
	if q.Order != OrderAsc && q.Order != OrderDesc {
		return fmt.Errorf("%w: unknown order %q", ErrInvalidArgument, q.Order)
	}

	for _, r := range q.Rarities {
		if !models.ValidRarity(r) {
			return fmt.Errorf("%w: unknown rarity %q", ErrInvalidArgument, r)
		}
	}

	if q.MinPrice != nil && *q.MinPrice < 0 {
		return fmt.Errorf("%w: min price must be >= 0", ErrInvalidArgument)
	}
	if q.MaxPrice != nil && *q.MaxPrice < 0 {
		return fmt.Errorf("%w: max price must be >= 0", ErrInvalidArgument)
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return fmt.Errorf("%w: min price exceeds max price", ErrInvalidArgument)
	}

	if q.Page == 0 {
		q.Page = 1
	}
	if q.Page < 1 {
		return fmt.Errorf("%w: page must be >= 1", ErrInvalidArgument)
	}
	if q.PageSize == 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize < 1 || q.PageSize > MaxPageSize {
		return fmt.Errorf("%w: page size must be 1-%d", ErrInvalidArgument, MaxPageSize)
	}
	return nil
}

// Query filters, sorts, and pages the merged collection. Filters are pure
// predicates ANDed together; the sort is stable so repeated queries against
// an unchanged collection return identical pages.
func (e *Engine) Query(q Query) (*Result, error) {
	if err := q.normalize(); err != nil {
		return nil, err
	}

	col, err := e.loader.Load()
	if err != nil {
		return nil, err
	}

	matched := make([]models.Product, 0, len(col.Records))
	for _, r := range col.Records {
		if matches(r, q) {
			matched = append(matched, r)
		}
	}

	sortRecords(matched, q.SortBy, q.Order)

	total := len(matched)
	totalPages := (total + q.PageSize - 1) / q.PageSize

	start := (q.Page - 1) * q.PageSize
	end := start + q.PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return &Result{
		Records:    matched[start:end],
		Total:      total,
		Page:       q.Page,
		TotalPages: totalPages,
	}, nil
}

// GetByID resolves a single record. A miss is ErrNotFound.
func (e *Engine) GetByID(id string) (models.Product, error) {
	col, err := e.loader.Load()
	if err != nil {
		return models.Product{}, err
	}
	r, ok := col.Get(id)
	if !ok {
		return models.Product{}, fmt.Errorf("product %q: %w", id, ErrNotFound)
	}
	return r, nil
}

// GetByIDs resolves a batch of ids for collaborators that store only id
// references (the wishlist). Unknown ids are dropped, not errors, so one
// dangling reference does not break a whole wishlist page.
func (e *Engine) GetByIDs(ids []string) ([]models.Product, error) {
	col, err := e.loader.Load()
	if err != nil {
		return nil, err
	}
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if r, ok := col.Get(id); ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// SeriesSummary lists the distinct series labels with record counts,
// sorted by label.
func (e *Engine) SeriesSummary() ([]SeriesCount, error) {
	col, err := e.loader.Load()
	if err != nil {
		return nil, err
	}
	counts := col.SeriesCounts()
	out := make([]SeriesCount, 0, len(counts))
	for _, s := range col.Series() {
		out = append(out, SeriesCount{Series: s, Count: counts[s]})
	}
	return out, nil
}

func matches(r models.Product, q Query) bool {
	if s := strings.TrimSpace(q.Search); s != "" {
		s = strings.ToLower(s)
		if !strings.Contains(strings.ToLower(r.Name), s) &&
			!strings.Contains(strings.ToLower(r.NameJA), s) {
			return false
		}
	}
	if len(q.Rarities) > 0 && !containsString(q.Rarities, r.Rarity) {
		return false
	}
	if len(q.Series) > 0 && !containsString(q.Series, r.Series) {
		return false
	}
	if q.MinPrice != nil && r.Price < *q.MinPrice {
		return false
	}
	if q.MaxPrice != nil && r.Price > *q.MaxPrice {
		return false
	}
	return true
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func sortRecords(records []models.Product, key SortKey, order Order) {
	var less func(a, b models.Product) bool
	switch key {
	case SortPrice:
		less = func(a, b models.Product) bool { return a.Price < b.Price }
	case SortRarity:
		// Fixed rank table, never lexicographic: "hidden" outranks "rare".
		less = func(a, b models.Product) bool {
			return models.RarityRank(a.Rarity) < models.RarityRank(b.Rarity)
		}
	case SortReleaseDate:
		less = func(a, b models.Product) bool { return a.ReleaseTime().Before(b.ReleaseTime()) }
	default:
		less = func(a, b models.Product) bool {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		if order == OrderDesc {
			return less(records[j], records[i])
		}
		return less(records[i], records[j])
	})
}
