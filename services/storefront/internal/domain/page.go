package domain

import (
	"fmt"
	"slices"
)

// PageKind identifies which storefront page a computation serves. The
// page decides the facets on offer, the sort options and the default sort.
type PageKind string

const (
	PageSearch      PageKind = "search"
	PageCategory    PageKind = "category"
	PageSubcategory PageKind = "subcategory"
	PagePromotions  PageKind = "promotions"
)

// ParsePageKind validates a page kind.
func ParsePageKind(s string) (PageKind, error) {
	switch p := PageKind(s); p {
	case PageSearch, PageCategory, PageSubcategory, PagePromotions:
		return p, nil
	default:
		return "", fmt.Errorf("unknown page kind %q", s)
	}
}

// SortKey selects the ordering of the final list.
type SortKey string

const (
	SortRelevance    SortKey = "relevance"
	SortPriceAsc     SortKey = "price-asc"
	SortPriceDesc    SortKey = "price-desc"
	SortName         SortKey = "name"
	SortDiscountDesc SortKey = "discount-desc"
	SortDiscountAsc  SortKey = "discount-asc"
	SortPopularity   SortKey = "popularity"
	SortNewest       SortKey = "newest"
)

var sortOptions = map[PageKind][]SortKey{
	PageSearch:      {SortRelevance, SortPriceAsc, SortPriceDesc, SortName},
	PageCategory:    {SortPopularity, SortNewest, SortPriceAsc, SortPriceDesc, SortName},
	PageSubcategory: {SortPopularity, SortNewest, SortPriceAsc, SortPriceDesc, SortName},
	PagePromotions:  {SortDiscountDesc, SortDiscountAsc, SortPriceAsc, SortPriceDesc, SortName},
}

// SortOptions returns the sort keys offered on page, default first.
func (p PageKind) SortOptions() []SortKey {
	return slices.Clone(sortOptions[p])
}

// DefaultSort returns the sort restored by a reset.
func (p PageKind) DefaultSort() SortKey {
	if opts := sortOptions[p]; len(opts) > 0 {
		return opts[0]
	}
	return SortRelevance
}

// AllowsSort reports whether key is offered on page.
func (p PageKind) AllowsSort(key SortKey) bool {
	return slices.Contains(sortOptions[p], key)
}

// HasDiscountFacet reports whether the discount band facet is offered.
func (p PageKind) HasDiscountFacet() bool {
	return p == PagePromotions
}

// HasSubcategoryFacet reports whether the subcategory facet is offered.
func (p PageKind) HasSubcategoryFacet() bool {
	return p == PageCategory
}

// Ranks reports whether candidates come from the relevance ranker.
func (p PageKind) Ranks() bool {
	return p == PageSearch
}

// Scope narrows a category or subcategory page to part of the catalog.
// Both fields are slugs; empty means unscoped.
type Scope struct {
	Category    string `json:"category,omitempty"`
	Subcategory string `json:"subcategory,omitempty"`
}
