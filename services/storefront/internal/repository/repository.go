package repository

import (
	"context"

	"github.com/utafrali/CosmeticsGo/services/storefront/internal/domain"
)

// MaxProductLimit caps every product fetch regardless of what the caller asks for.
const MaxProductLimit = 1000

// ProductQuery narrows a product fetch. Empty fields do not filter.
type ProductQuery struct {
	CategorySlug    string
	SubcategorySlug string
	OnSale          bool
	Limit           int
}

// EffectiveLimit returns Limit clamped to (0, MaxProductLimit].
func (q ProductQuery) EffectiveLimit() int {
	if q.Limit <= 0 || q.Limit > MaxProductLimit {
		return MaxProductLimit
	}
	return q.Limit
}

// Matches reports whether p satisfies the query filters. Backends that
// cannot push a filter down use it to finish the job in memory.
func (q ProductQuery) Matches(p *domain.Product) bool {
	switch {
	case q.SubcategorySlug != "":
		if !p.InSubcategory(q.CategorySlug, q.SubcategorySlug) {
			return false
		}
	case q.CategorySlug != "":
		if !p.InCategory(q.CategorySlug) {
			return false
		}
	}
	if q.OnSale && !p.IsOnSale() {
		return false
	}
	return true
}

// CatalogRepository is the read side of the document store.
type CatalogRepository interface {
	// ListProducts returns at most q.EffectiveLimit() products in store order.
	ListProducts(ctx context.Context, q ProductQuery) ([]domain.Product, error)

	// ListBrands returns the brand lookup table.
	ListBrands(ctx context.Context) ([]domain.Brand, error)

	// ListCategories returns the category lookup table.
	ListCategories(ctx context.Context) ([]domain.Category, error)

	// ListSubcategories returns the subcategory lookup table.
	ListSubcategories(ctx context.Context) ([]domain.Subcategory, error)
}

// CatalogWriter seeds or updates a store from catalog documents.
type CatalogWriter interface {
	UpsertProducts(ctx context.Context, products []domain.Product) error
	DeleteProduct(ctx context.Context, id string) error
	ReplaceLookups(ctx context.Context, brands []domain.Brand, categories []domain.Category, subcategories []domain.Subcategory) error
}
