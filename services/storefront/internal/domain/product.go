package domain

import (
	"math"
	"time"
)

// CategoryPair places a product in one category/subcategory combination.
// Both fields are slugs; Subcategory may be empty.
type CategoryPair struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
}

// Product is a catalog item as seen by the storefront. Prices are in DH.
type Product struct {
	ID             string         `json:"id"`
	Slug           string         `json:"slug"`
	Name           string         `json:"name"`
	Brand          string         `json:"brand"`
	Categories     []CategoryPair `json:"categories"`
	Price          float64        `json:"price"`
	OriginalPrice  *float64       `json:"original_price,omitempty"`
	Discount       *float64       `json:"discount,omitempty"`
	InStock        bool           `json:"in_stock"`
	MainImage      string         `json:"main_image,omitempty"`
	Images         []string       `json:"images,omitempty"`
	Description    string         `json:"description,omitempty"`
	Specifications string         `json:"specifications,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// IsOnSale reports whether the product has an original price above its
// current price.
func (p *Product) IsOnSale() bool {
	return p.OriginalPrice != nil && *p.OriginalPrice > p.Price
}

// DiscountPercent is the rounded percentage off the original price. It is
// defined only when originalPrice > price > 0 and is 0 otherwise. The stored
// Discount field is never consulted.
func (p *Product) DiscountPercent() float64 {
	if p.OriginalPrice == nil {
		return 0
	}
	orig := *p.OriginalPrice
	if !(orig > p.Price && p.Price > 0) {
		return 0
	}
	return math.Round((orig - p.Price) / orig * 100)
}

// InCategory reports whether any pair of the product is in category.
func (p *Product) InCategory(category string) bool {
	for _, c := range p.Categories {
		if c.Category == category {
			return true
		}
	}
	return false
}

// InSubcategory reports whether the product has the exact pair
// (category, subcategory).
func (p *Product) InSubcategory(category, subcategory string) bool {
	for _, c := range p.Categories {
		if c.Category == category && c.Subcategory == subcategory {
			return true
		}
	}
	return false
}

// ScoredProduct is a candidate with the relevance score it was ranked
// with. Pages that do not rank carry a zero score.
type ScoredProduct struct {
	Product
	RelevanceScore float64 `json:"relevance_score"`
}

// Unscored wraps products as candidates in their original order.
func Unscored(products []Product) []ScoredProduct {
	out := make([]ScoredProduct, len(products))
	for i := range products {
		out[i] = ScoredProduct{Product: products[i]}
	}
	return out
}
