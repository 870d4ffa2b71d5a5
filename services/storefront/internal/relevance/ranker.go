package relevance

import (
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/utafrali/CosmeticsGo/services/storefront/internal/domain"
)

// InclusionThreshold is the score a product must exceed to be ranked.
const InclusionThreshold = 0.2

// MinQueryLength is the shortest query, in runes, that triggers a search.
const MinQueryLength = 2

const (
	weightName        = 1.0
	weightBrand       = 0.9
	weightCategory    = 0.7
	weightSubcategory = 0.8
	scoreCombined     = 0.6
)

// Score returns the relevance of p for query: the best of the weighted
// similarities of its name, brand, category and subcategory labels, and a
// flat score when the query appears in "name brand".
func Score(query string, p domain.Product, catalog *domain.Catalog) float64 {
	q := strings.ToLower(strings.TrimSpace(query))

	brandName := catalog.BrandName(p.Brand)

	score := weighted(p.Name, q, weightName)
	score = max(score, weighted(brandName, q, weightBrand))

	for _, pair := range p.Categories {
		score = max(score, weighted(catalog.CategoryName(pair.Category), q, weightCategory))
		score = max(score, weighted(catalog.SubcategoryName(pair.Subcategory), q, weightSubcategory))
	}

	if strings.Contains(strings.ToLower(p.Name+" "+brandName), q) {
		score = max(score, scoreCombined)
	}
	return score
}

// weighted skips empty labels, which would otherwise be contained in any
// query and score as a substring match.
func weighted(label, query string, weight float64) float64 {
	if strings.TrimSpace(label) == "" {
		return 0
	}
	return Similarity(label, query) * weight
}

// Rank scores every product against query and returns those above
// InclusionThreshold, best first. Equal scores keep their input order.
// A query shorter than MinQueryLength yields an empty result.
func Rank(query string, products []domain.Product, catalog *domain.Catalog) []domain.ScoredProduct {
	if utf8.RuneCountInString(strings.TrimSpace(query)) < MinQueryLength {
		return []domain.ScoredProduct{}
	}

	ranked := make([]domain.ScoredProduct, 0, len(products))
	for _, p := range products {
		s := Score(query, p, catalog)
		if s > InclusionThreshold {
			ranked = append(ranked, domain.ScoredProduct{Product: p, RelevanceScore: s})
		}
	}

	slices.SortStableFunc(ranked, func(a, b domain.ScoredProduct) int {
		return cmp.Compare(b.RelevanceScore, a.RelevanceScore)
	})
	return ranked
}
