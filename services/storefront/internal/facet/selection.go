package facet

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/utafrali/CosmeticsGo/services/storefront/internal/domain"
)

var (
	// ErrUnknownBand is returned when a band label is not one of the fixed bands.
	ErrUnknownBand = errors.New("unknown band")
	// ErrFacetUnavailable is returned when a facet is not offered on the page.
	ErrFacetUnavailable = errors.New("facet not available on this page")
	// ErrUnknownSort is returned when a sort key is not offered on the page.
	ErrUnknownSort = errors.New("sort not available on this page")
	// ErrUnknownFacet is returned for a facet name that does not exist.
	ErrUnknownFacet = errors.New("unknown facet")
)

// Facet names a multi-select facet.
type Facet string

const (
	FacetBrand       Facet = "brand"
	FacetCategory    Facet = "category"
	FacetSubcategory Facet = "subcategory"
)

// Selection is the user's current choice of facet values and sort order
// for one page. It is not safe for concurrent use; each page session or
// request owns its own.
type Selection struct {
	page          domain.PageKind
	brands        map[string]struct{}
	categories    map[string]struct{}
	subcategories map[string]struct{}
	priceBand     string
	discountBand  string
	sort          domain.SortKey
}

// NewSelection returns an empty selection with the page's default sort.
func NewSelection(page domain.PageKind) *Selection {
	s := &Selection{page: page}
	s.ResetAll()
	return s
}

// Values is the wire form of a selection.
type Values struct {
	Brands        []string `json:"brands,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	Subcategories []string `json:"subcategories,omitempty"`
	PriceBand     string   `json:"price_band,omitempty"`
	DiscountBand  string   `json:"discount_band,omitempty"`
	Sort          string   `json:"sort,omitempty"`
}

// FromValues builds a selection for page, rejecting values the page does
// not offer. An empty sort keeps the page default.
func FromValues(page domain.PageKind, v Values) (*Selection, error) {
	s := NewSelection(page)
	for _, b := range v.Brands {
		s.add(s.brands, b)
	}
	for _, c := range v.Categories {
		s.add(s.categories, c)
	}
	if len(v.Subcategories) > 0 && !page.HasSubcategoryFacet() {
		return nil, fmt.Errorf("subcategory: %w", ErrFacetUnavailable)
	}
	for _, sc := range v.Subcategories {
		s.add(s.subcategories, sc)
	}
	if err := s.SetPriceBand(v.PriceBand); err != nil {
		return nil, err
	}
	if err := s.SetDiscountBand(v.DiscountBand); err != nil {
		return nil, err
	}
	if v.Sort != "" {
		if err := s.SetSort(domain.SortKey(v.Sort)); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Selection) add(set map[string]struct{}, value string) {
	if value != "" {
		set[value] = struct{}{}
	}
}

func toggle(set map[string]struct{}, value string) {
	if _, ok := set[value]; ok {
		delete(set, value)
		return
	}
	set[value] = struct{}{}
}

// Page returns the page the selection belongs to.
func (s *Selection) Page() domain.PageKind { return s.page }

// ToggleBrand adds the brand label if absent and removes it otherwise.
func (s *Selection) ToggleBrand(label string) { toggle(s.brands, label) }

// ToggleCategory adds the category label if absent and removes it otherwise.
func (s *Selection) ToggleCategory(label string) { toggle(s.categories, label) }

// ToggleSubcategory adds or removes a subcategory label. Only category
// pages offer the subcategory facet.
func (s *Selection) ToggleSubcategory(label string) error {
	if !s.page.HasSubcategoryFacet() {
		return fmt.Errorf("subcategory: %w", ErrFacetUnavailable)
	}
	toggle(s.subcategories, label)
	return nil
}

// Toggle dispatches on facet name.
func (s *Selection) Toggle(f Facet, label string) error {
	switch f {
	case FacetBrand:
		s.ToggleBrand(label)
	case FacetCategory:
		s.ToggleCategory(label)
	case FacetSubcategory:
		return s.ToggleSubcategory(label)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFacet, f)
	}
	return nil
}

// SetPriceBand selects a single price band by label. An empty label clears it.
func (s *Selection) SetPriceBand(label string) error {
	if label != "" {
		if _, ok := domain.FindBand(domain.PriceBands, label); !ok {
			return fmt.Errorf("price band %q: %w", label, ErrUnknownBand)
		}
	}
	s.priceBand = label
	return nil
}

// SetDiscountBand selects a single discount band by label. An empty label
// clears it. Only the promotions page offers discount bands.
func (s *Selection) SetDiscountBand(label string) error {
	if label == "" {
		s.discountBand = ""
		return nil
	}
	if !s.page.HasDiscountFacet() {
		return fmt.Errorf("discount band: %w", ErrFacetUnavailable)
	}
	if _, ok := domain.FindBand(domain.DiscountBands, label); !ok {
		return fmt.Errorf("discount band %q: %w", label, ErrUnknownBand)
	}
	s.discountBand = label
	return nil
}

// SetSort changes the sort order. The key must be offered on the page.
func (s *Selection) SetSort(key domain.SortKey) error {
	if !s.page.AllowsSort(key) {
		return fmt.Errorf("%w: %q", ErrUnknownSort, key)
	}
	s.sort = key
	return nil
}

// ResetAll clears every facet and restores the page's default sort.
func (s *Selection) ResetAll() {
	s.brands = make(map[string]struct{})
	s.categories = make(map[string]struct{})
	s.subcategories = make(map[string]struct{})
	s.priceBand = ""
	s.discountBand = ""
	s.sort = s.page.DefaultSort()
}

// Brands returns the selected brand labels, sorted.
func (s *Selection) Brands() []string { return sortedKeys(s.brands) }

// Categories returns the selected category labels, sorted.
func (s *Selection) Categories() []string { return sortedKeys(s.categories) }

// Subcategories returns the selected subcategory labels, sorted.
func (s *Selection) Subcategories() []string { return sortedKeys(s.subcategories) }

// HasBrand reports whether label is selected.
func (s *Selection) HasBrand(label string) bool { _, ok := s.brands[label]; return ok }

// HasCategory reports whether label is selected.
func (s *Selection) HasCategory(label string) bool { _, ok := s.categories[label]; return ok }

// HasSubcategory reports whether label is selected.
func (s *Selection) HasSubcategory(label string) bool { _, ok := s.subcategories[label]; return ok }

// PriceBand returns the selected price band, if any.
func (s *Selection) PriceBand() (domain.Band, bool) {
	if s.priceBand == "" {
		return domain.Band{}, false
	}
	return domain.FindBand(domain.PriceBands, s.priceBand)
}

// DiscountBand returns the selected discount band, if any.
func (s *Selection) DiscountBand() (domain.Band, bool) {
	if s.discountBand == "" {
		return domain.Band{}, false
	}
	return domain.FindBand(domain.DiscountBands, s.discountBand)
}

// Sort returns the current sort key.
func (s *Selection) Sort() domain.SortKey { return s.sort }

// Active reports whether any facet value is selected. Sort order does not
// count.
func (s *Selection) Active() bool {
	return len(s.brands) > 0 || len(s.categories) > 0 || len(s.subcategories) > 0 ||
		s.priceBand != "" || s.discountBand != ""
}

// Values returns the wire form of the selection.
func (s *Selection) Values() Values {
	return Values{
		Brands:        s.Brands(),
		Categories:    s.Categories(),
		Subcategories: s.Subcategories(),
		PriceBand:     s.priceBand,
		DiscountBand:  s.discountBand,
		Sort:          string(s.sort),
	}
}

// Clone returns an independent copy.
func (s *Selection) Clone() *Selection {
	c := *s
	c.brands = maps.Clone(s.brands)
	c.categories = maps.Clone(s.categories)
	c.subcategories = maps.Clone(s.subcategories)
	return &c
}

// Fingerprint hashes a canonical encoding of the selection. Two selections
// with the same values have the same fingerprint regardless of the order
// values were toggled in.
func (s *Selection) Fingerprint() uint64 {
	d := xxhash.New()
	write := func(parts ...string) {
		_, _ = d.WriteString(strings.Join(parts, "\x1f"))
		_, _ = d.WriteString("\x1e")
	}
	write(string(s.page), string(s.sort))
	write(s.Brands()...)
	write(s.Categories()...)
	write(s.Subcategories()...)
	write(s.priceBand, s.discountBand)
	return d.Sum64()
}

func sortedKeys(set map[string]struct{}) []string {
	return slices.Sorted(maps.Keys(set))
}
