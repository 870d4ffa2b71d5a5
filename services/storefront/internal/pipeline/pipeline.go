// Package pipeline filters and sorts a candidate list according to a facet
// selection.
package pipeline

import (
	"cmp"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/utafrali/CosmeticsGo/services/storefront/internal/domain"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/facet"
)

// Input is everything a pipeline run depends on.
type Input struct {
	Candidates []domain.ScoredProduct
	Selection  *facet.Selection
	Catalog    *domain.Catalog
	Scope      domain.Scope
}

// Apply filters the candidates and sorts the survivors. Facets combine with
// AND, values within a facet with OR, and band bounds are inclusive. The
// candidates slice is never modified; the result is always a new slice.
func Apply(in Input) []domain.ScoredProduct {
	out := make([]domain.ScoredProduct, 0, len(in.Candidates))
	if in.Selection == nil {
		return append(out, in.Candidates...)
	}

	f := newFilter(in)
	for i := range in.Candidates {
		if f.keep(&in.Candidates[i].Product) {
			out = append(out, in.Candidates[i])
		}
	}

	Sort(out, in.Selection.Sort())
	return out
}

type filter struct {
	sel      *facet.Selection
	catalog  *domain.Catalog
	scope    domain.Scope
	price    domain.Band
	discount domain.Band

	byBrand, byCategory, bySubcategory bool
	byPrice, byDiscount                bool
}

func newFilter(in Input) *filter {
	sel := in.Selection
	f := &filter{
		sel:           sel,
		catalog:       in.Catalog,
		scope:         in.Scope,
		byBrand:       len(sel.Brands()) > 0,
		byCategory:    len(sel.Categories()) > 0,
		bySubcategory: sel.Page().HasSubcategoryFacet() && len(sel.Subcategories()) > 0,
	}
	f.price, f.byPrice = sel.PriceBand()
	if sel.Page().HasDiscountFacet() {
		f.discount, f.byDiscount = sel.DiscountBand()
	}
	return f
}

func (f *filter) keep(p *domain.Product) bool {
	if f.byBrand && !f.sel.HasBrand(f.catalog.BrandName(p.Brand)) {
		return false
	}
	if f.byCategory && !f.anyCategory(p) {
		return false
	}
	if f.bySubcategory && !f.anySubcategory(p) {
		return false
	}
	if f.byPrice && !f.price.Contains(p.Price) {
		return false
	}
	if f.byDiscount && !f.discount.Contains(p.DiscountPercent()) {
		return false
	}
	return true
}

func (f *filter) anyCategory(p *domain.Product) bool {
	for _, pair := range p.Categories {
		if f.sel.HasCategory(f.catalog.CategoryName(pair.Category)) {
			return true
		}
	}
	return false
}

func (f *filter) anySubcategory(p *domain.Product) bool {
	for _, pair := range p.Categories {
		if pair.Category != f.scope.Category {
			continue
		}
		if f.sel.HasSubcategory(f.catalog.SubcategoryName(pair.Subcategory)) {
			return true
		}
	}
	return false
}

// Sort orders products in place by key. All sorts are stable. Relevance
// keeps the ranker's order; popularity and newest keep the fetch order.
func Sort(products []domain.ScoredProduct, key domain.SortKey) {
	switch key {
	case domain.SortPriceAsc:
		slices.SortStableFunc(products, func(a, b domain.ScoredProduct) int {
			return cmp.Compare(a.Price, b.Price)
		})
	case domain.SortPriceDesc:
		slices.SortStableFunc(products, func(a, b domain.ScoredProduct) int {
			return cmp.Compare(b.Price, a.Price)
		})
	case domain.SortName:
		c := collate.New(language.French)
		slices.SortStableFunc(products, func(a, b domain.ScoredProduct) int {
			return c.CompareString(a.Name, b.Name)
		})
	case domain.SortDiscountDesc:
		slices.SortStableFunc(products, func(a, b domain.ScoredProduct) int {
			return cmp.Compare(b.DiscountPercent(), a.DiscountPercent())
		})
	case domain.SortDiscountAsc:
		slices.SortStableFunc(products, func(a, b domain.ScoredProduct) int {
			return cmp.Compare(a.DiscountPercent(), b.DiscountPercent())
		})
	}
}
