// Package facet builds the filter options offered on a page and holds the
// user's selection among them.
package facet

import (
	"slices"
	"strings"

	"github.com/utafrali/CosmeticsGo/services/storefront/internal/domain"
)

// Option is one checkbox in a multi-select facet. Label is the display name
// and is also the value toggled into a Selection.
type Option struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// BandOption is one radio button of a band facet.
type BandOption struct {
	domain.Band
	Count int `json:"count"`
}

// Options lists every facet value available for a candidate set.
// Subcategories is only filled on category pages and DiscountBands only on
// the promotions page.
type Options struct {
	Brands        []Option         `json:"brands"`
	Categories    []Option         `json:"categories"`
	Subcategories []Option         `json:"subcategories,omitempty"`
	PriceBands    []BandOption     `json:"price_bands"`
	DiscountBands []BandOption     `json:"discount_bands,omitempty"`
	SortOptions   []domain.SortKey `json:"sort_options"`
}

// BuildOptions derives the facet options from the candidates. Labels are
// resolved through catalog, falling back to the raw slug, then deduplicated
// and sorted. Counts are informational and do not reflect the current
// selection.
func BuildOptions(page domain.PageKind, candidates []domain.ScoredProduct, catalog *domain.Catalog, scope domain.Scope) Options {
	brands := make(map[string]int)
	categories := make(map[string]int)
	subcategories := make(map[string]int)

	for i := range candidates {
		p := &candidates[i].Product

		if name := catalog.BrandName(p.Brand); name != "" {
			brands[name]++
		}

		seenCat := make(map[string]bool, len(p.Categories))
		seenSub := make(map[string]bool, len(p.Categories))
		for _, pair := range p.Categories {
			if name := catalog.CategoryName(pair.Category); name != "" && !seenCat[name] {
				seenCat[name] = true
				categories[name]++
			}
			if !page.HasSubcategoryFacet() || pair.Category != scope.Category || pair.Subcategory == "" {
				continue
			}
			if name := catalog.SubcategoryName(pair.Subcategory); name != "" && !seenSub[name] {
				seenSub[name] = true
				subcategories[name]++
			}
		}
	}

	opts := Options{
		Brands:      sortedOptions(brands),
		Categories:  sortedOptions(categories),
		PriceBands:  bandOptions(domain.PriceBands, candidates, func(p *domain.Product) float64 { return p.Price }),
		SortOptions: page.SortOptions(),
	}
	if page.HasSubcategoryFacet() {
		opts.Subcategories = sortedOptions(subcategories)
	}
	if page.HasDiscountFacet() {
		opts.DiscountBands = bandOptions(domain.DiscountBands, candidates, (*domain.Product).DiscountPercent)
	}
	return opts
}

func sortedOptions(counts map[string]int) []Option {
	out := make([]Option, 0, len(counts))
	for label, n := range counts {
		out = append(out, Option{Label: label, Count: n})
	}
	slices.SortFunc(out, func(a, b Option) int { return strings.Compare(a.Label, b.Label) })
	return out
}

func bandOptions(bands []domain.Band, candidates []domain.ScoredProduct, value func(*domain.Product) float64) []BandOption {
	out := make([]BandOption, len(bands))
	for i, b := range bands {
		out[i].Band = b
		for j := range candidates {
			if b.Contains(value(&candidates[j].Product)) {
				out[i].Count++
			}
		}
	}
	return out
}
