package facet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/CosmeticsGo/services/storefront/internal/domain"
)

func testCatalog() *domain.Catalog {
	return domain.NewCatalog(
		[]domain.Brand{{Slug: "loreal", Name: "L'Oréal"}, {Slug: "nivea", Name: "Nivea"}},
		[]domain.Category{{Slug: "cheveux", Name: "Cheveux"}, {Slug: "visage", Name: "Visage"}},
		[]domain.Subcategory{
			{Slug: "shampoing", Name: "Shampoing", ParentCategory: "cheveux"},
			{Slug: "serum", Name: "Sérum", ParentCategory: "visage"},
		},
	)
}

func testCandidates() []domain.ScoredProduct {
	orig := 100.0
	return domain.Unscored([]domain.Product{
		{ID: "1", Brand: "loreal", Price: 80, OriginalPrice: &orig, Categories: []domain.CategoryPair{
			{Category: "cheveux", Subcategory: "shampoing"},
			{Category: "visage", Subcategory: "serum"},
		}},
		{ID: "2", Brand: "nivea", Price: 30, Categories: []domain.CategoryPair{{Category: "cheveux", Subcategory: "shampoing"}}},
		{ID: "3", Brand: "mystery", Price: 600, Categories: []domain.CategoryPair{{Category: "corps"}}},
		{ID: "4", Brand: "nivea", Price: 50},
	})
}

func TestBuildOptions_Search(t *testing.T) {
	opts := BuildOptions(domain.PageSearch, testCandidates(), testCatalog(), domain.Scope{})

	assert.Equal(t, []Option{
		{Label: "L'Oréal", Count: 1},
		{Label: "Nivea", Count: 2},
		{Label: "mystery", Count: 1},
	}, opts.Brands)
	assert.Equal(t, []Option{
		{Label: "Cheveux", Count: 2},
		{Label: "Visage", Count: 1},
		{Label: "corps", Count: 1},
	}, opts.Categories)
	assert.Nil(t, opts.Subcategories)
	assert.Nil(t, opts.DiscountBands)
	assert.Equal(t, domain.PageSearch.SortOptions(), opts.SortOptions)

	require.Len(t, opts.PriceBands, len(domain.PriceBands))
	counts := map[string]int{}
	for _, b := range opts.PriceBands {
		counts[b.Label] = b.Count
	}
	// 50 DH sits on the boundary of two bands.
	assert.Equal(t, 2, counts["< 50 DH"])
	assert.Equal(t, 2, counts["50-100 DH"])
	assert.Equal(t, 1, counts["> 500 DH"])
}

func TestBuildOptions_CategoryPageSubcategories(t *testing.T) {
	opts := BuildOptions(domain.PageCategory, testCandidates(), testCatalog(), domain.Scope{Category: "cheveux"})

	assert.Equal(t, []Option{{Label: "Shampoing", Count: 2}}, opts.Subcategories)
}

func TestBuildOptions_PromotionsDiscountBands(t *testing.T) {
	opts := BuildOptions(domain.PagePromotions, testCandidates(), testCatalog(), domain.Scope{})

	require.Len(t, opts.DiscountBands, len(domain.DiscountBands))
	assert.Equal(t, "10%-20%", opts.DiscountBands[0].Label)
	assert.Equal(t, 1, opts.DiscountBands[0].Count)
	assert.Equal(t, 1, opts.DiscountBands[1].Count)
	assert.Equal(t, 0, opts.DiscountBands[2].Count)
}

func TestBuildOptions_Empty(t *testing.T) {
	opts := BuildOptions(domain.PageSearch, nil, nil, domain.Scope{})
	assert.Empty(t, opts.Brands)
	assert.Empty(t, opts.Categories)
	assert.Len(t, opts.PriceBands, len(domain.PriceBands))
}

func TestSelection_Toggle(t *testing.T) {
	s := NewSelection(domain.PageSearch)
	assert.False(t, s.Active())

	s.ToggleBrand("Nivea")
	s.ToggleBrand("L'Oréal")
	assert.Equal(t, []string{"L'Oréal", "Nivea"}, s.Brands())
	assert.True(t, s.HasBrand("Nivea"))
	assert.True(t, s.Active())

	s.ToggleBrand("Nivea")
	assert.Equal(t, []string{"L'Oréal"}, s.Brands())

	require.NoError(t, s.Toggle(FacetCategory, "Cheveux"))
	assert.True(t, s.HasCategory("Cheveux"))

	assert.ErrorIs(t, s.Toggle(FacetSubcategory, "Shampoing"), ErrFacetUnavailable)
	assert.ErrorIs(t, s.Toggle("color", "red"), ErrUnknownFacet)
}

func TestSelection_Bands(t *testing.T) {
	s := NewSelection(domain.PagePromotions)

	require.NoError(t, s.SetPriceBand("50-100 DH"))
	band, ok := s.PriceBand()
	require.True(t, ok)
	assert.Equal(t, 50.0, band.Min)

	require.NoError(t, s.SetPriceBand("< 50 DH"))
	band, _ = s.PriceBand()
	assert.Equal(t, "< 50 DH", band.Label, "price band is single-select")

	assert.ErrorIs(t, s.SetPriceBand("1-2 DH"), ErrUnknownBand)
	band, _ = s.PriceBand()
	assert.Equal(t, "< 50 DH", band.Label, "rejected label leaves selection untouched")

	require.NoError(t, s.SetDiscountBand("> 50%"))
	_, ok = s.DiscountBand()
	assert.True(t, ok)

	require.NoError(t, s.SetPriceBand(""))
	require.NoError(t, s.SetDiscountBand(""))
	assert.False(t, s.Active())

	search := NewSelection(domain.PageSearch)
	assert.ErrorIs(t, search.SetDiscountBand("10%-20%"), ErrFacetUnavailable)
	assert.NoError(t, search.SetDiscountBand(""))
}

func TestSelection_SetSort(t *testing.T) {
	s := NewSelection(domain.PageSearch)
	require.NoError(t, s.SetSort(domain.SortPriceAsc))
	assert.Equal(t, domain.SortPriceAsc, s.Sort())
	assert.ErrorIs(t, s.SetSort(domain.SortDiscountDesc), ErrUnknownSort)
	assert.Equal(t, domain.SortPriceAsc, s.Sort())
}

func TestSelection_ResetAllRestoresDefaultSort(t *testing.T) {
	tests := []struct {
		page domain.PageKind
		want domain.SortKey
	}{
		{domain.PageSearch, domain.SortRelevance},
		{domain.PageCategory, domain.SortPopularity},
		{domain.PageSubcategory, domain.SortPopularity},
		{domain.PagePromotions, domain.SortDiscountDesc},
	}
	for _, tc := range tests {
		t.Run(string(tc.page), func(t *testing.T) {
			s := NewSelection(tc.page)
			s.ToggleBrand("Nivea")
			s.ToggleCategory("Cheveux")
			require.NoError(t, s.SetPriceBand("> 500 DH"))
			require.NoError(t, s.SetSort(domain.SortName))

			s.ResetAll()

			assert.Equal(t, tc.want, s.Sort())
			assert.Empty(t, s.Brands())
			assert.Empty(t, s.Categories())
			assert.Empty(t, s.Subcategories())
			_, ok := s.PriceBand()
			assert.False(t, ok)
			assert.False(t, s.Active())
		})
	}
}

func TestSelection_FingerprintIgnoresToggleOrder(t *testing.T) {
	a := NewSelection(domain.PageSearch)
	a.ToggleBrand("A")
	a.ToggleBrand("B")

	b := NewSelection(domain.PageSearch)
	b.ToggleBrand("B")
	b.ToggleBrand("A")

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	b.ToggleCategory("A")
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())

	c := NewSelection(domain.PageSearch)
	c.ToggleCategory("A")
	c.ToggleCategory("B")
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint(), "same labels in another facet")
}

func TestSelection_CloneIsIndependent(t *testing.T) {
	s := NewSelection(domain.PageCategory)
	s.ToggleBrand("Nivea")

	c := s.Clone()
	c.ToggleBrand("Nivea")
	require.NoError(t, c.ToggleSubcategory("Sérum"))

	assert.True(t, s.HasBrand("Nivea"))
	assert.Empty(t, s.Subcategories())
	assert.False(t, c.HasBrand("Nivea"))
}

func TestFromValues(t *testing.T) {
	s, err := FromValues(domain.PageCategory, Values{
		Brands:        []string{"Nivea", ""},
		Subcategories: []string{"Shampoing"},
		PriceBand:     "< 50 DH",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Nivea"}, s.Brands())
	assert.Equal(t, domain.SortPopularity, s.Sort())
	assert.Equal(t, Values{
		Brands:        []string{"Nivea"},
		Subcategories: []string{"Shampoing"},
		PriceBand:     "< 50 DH",
		Sort:          "popularity",
	}, s.Values())

	_, err = FromValues(domain.PageSearch, Values{Subcategories: []string{"x"}})
	assert.ErrorIs(t, err, ErrFacetUnavailable)

	_, err = FromValues(domain.PageSearch, Values{DiscountBand: "10%-20%"})
	assert.ErrorIs(t, err, ErrFacetUnavailable)

	_, err = FromValues(domain.PageSearch, Values{Sort: "newest"})
	assert.ErrorIs(t, err, ErrUnknownSort)
}
