// Package seed generates synthetic cosmetics catalogs for load testing and
// for seeding empty stores.
package seed

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/CosmeticsGo/pkg/slug"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/domain"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/repository"
)

// namespace keeps generated ids stable across runs.
var namespace = uuid.MustParse("6f0c7a52-3b1e-4d7e-9a51-2c4c3f1e8b10")

var brandNames = []string{
	"L'Oréal", "Nivea", "Vichy", "Bioderma", "Garnier", "Maybelline",
	"La Roche-Posay", "Avène", "Nuxe", "Eucerin", "Caudalie", "Filorga",
}

type categoryDef struct {
	name          string
	subcategories []string
	products      []string
}

var categoryDefs = []categoryDef{
	{"Visage", []string{"Hydratants", "Sérums", "Nettoyants", "Masques"},
		[]string{"Crème Hydratante", "Sérum Éclat", "Gel Nettoyant", "Masque Purifiant", "Eau Micellaire", "Crème de Nuit"}},
	{"Cheveux", []string{"Shampoings", "Après-shampoings", "Soins cheveux"},
		[]string{"Shampoing Réparateur", "Après-shampoing Nutrition", "Huile Capillaire", "Masque Kératine"}},
	{"Maquillage", []string{"Lèvres", "Yeux", "Teint"},
		[]string{"Rouge à Lèvres Mat", "Mascara Volume", "Fond de Teint Fluide", "Eyeliner Précision", "Gloss Repulpant"}},
	{"Corps", []string{"Laits corps", "Gels douche", "Déodorants"},
		[]string{"Lait Corps Nourrissant", "Gel Douche Doux", "Déodorant 48h", "Huile Sèche"}},
	{"Solaires", []string{"Protection visage", "Protection corps"},
		[]string{"Crème Solaire SPF50", "Spray Solaire SPF30", "Fluide Invisible SPF50+"}},
}

var variants = []string{"", "Peaux Sensibles", "Bio", "Intense", "Fraîcheur", "Anti-âge", "Éclat", "Pro"}

// Generate builds a catalog of n products. The same n and seed always
// produce the same catalog. Roughly a third of the products are on sale
// and one in ten is out of stock.
func Generate(n int, seed uint64) *repository.Fixture {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	f := &repository.Fixture{}

	for _, name := range brandNames {
		s := slug.Generate(name)
		f.Brands = append(f.Brands, domain.Brand{ID: id("brand", s), Slug: s, Name: name})
	}
	for _, c := range categoryDefs {
		cs := slug.Generate(c.name)
		f.Categories = append(f.Categories, domain.Category{ID: id("category", cs), Slug: cs, Name: c.name})
		for _, sub := range c.subcategories {
			ss := slug.Generate(sub)
			f.Subcategories = append(f.Subcategories, domain.Subcategory{
				ID: id("subcategory", cs+"/"+ss), Slug: ss, Name: sub, ParentCategory: cs,
			})
		}
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		c := categoryDefs[rng.IntN(len(categoryDefs))]
		brand := f.Brands[rng.IntN(len(f.Brands))]
		name := c.products[rng.IntN(len(c.products))]
		if v := variants[rng.IntN(len(variants))]; v != "" {
			name += " " + v
		}
		name = fmt.Sprintf("%s %s", brand.Name, name)

		p := domain.Product{
			ID:    id("product", fmt.Sprint(i)),
			Slug:  fmt.Sprintf("%s-%d", slug.Generate(name), i),
			Name:  name,
			Brand: brand.Slug,
			Categories: []domain.CategoryPair{{
				Category:    slug.Generate(c.name),
				Subcategory: slug.Generate(c.subcategories[rng.IntN(len(c.subcategories))]),
			}},
			Price:     price(rng),
			InStock:   rng.IntN(10) != 0,
			MainImage: fmt.Sprintf("https://cdn.cosmetics.ma/products/%d.jpg", i),
			CreatedAt: base.Add(time.Duration(rng.IntN(600*24)) * time.Hour),
		}
		if rng.IntN(3) == 0 {
			orig := math.Round(p.Price*(1.1+rng.Float64()*0.9)*10) / 10
			p.OriginalPrice = &orig
		}
		f.Products = append(f.Products, p)
	}
	return f
}

// price draws from a skewed distribution so every price band gets products.
func price(rng *rand.Rand) float64 {
	switch r := rng.IntN(10); {
	case r < 3:
		return float64(20+rng.IntN(80)) - 0.1
	case r < 7:
		return float64(100 + rng.IntN(200))
	case r < 9:
		return float64(300 + rng.IntN(200))
	default:
		return float64(500 + rng.IntN(700))
	}
}

func id(kind, key string) string {
	return uuid.NewSHA1(namespace, []byte(kind+":"+key)).String()
}
