package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/utafrali/CosmeticsGo/pkg/slug"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/domain"
)

// Number decodes a JSON number, a numeric string, null or an empty string.
// Anything it cannot read decodes as 0.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*n = 0
			return nil
		}
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			v = 0
		}
		*n = Number(v)
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		v = 0
	}
	*n = Number(v)
	return nil
}

// CategoryDocument is one entry of a product's categories array.
type CategoryDocument struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
}

// ProductDocument is a product as stored. Every field may be missing;
// older documents carry a single top-level category/subcategory instead of
// the categories array.
type ProductDocument struct {
	ID             string             `json:"id"`
	Slug           string             `json:"slug"`
	Name           string             `json:"name"`
	Brand          string             `json:"brand"`
	Categories     []CategoryDocument `json:"categories"`
	Category       string             `json:"category"`
	Subcategory    string             `json:"subcategory"`
	Price          *Number            `json:"price"`
	OriginalPrice  *Number            `json:"originalPrice"`
	Discount       *Number            `json:"discount"`
	InStock        *bool              `json:"inStock"`
	MainImage      string             `json:"mainImage"`
	Images         []string           `json:"images"`
	Description    string             `json:"description"`
	Specifications string             `json:"specifications"`
	CreatedAt      *time.Time         `json:"createdAt"`
}

// ToDomain applies typed defaults: absent numbers become 0, a missing slug
// is derived from the name (then the id), a missing stock flag means in
// stock, and an absent or zero original price means not on sale.
func (d ProductDocument) ToDomain() domain.Product {
	p := domain.Product{
		ID:             d.ID,
		Slug:           d.Slug,
		Name:           d.Name,
		Brand:          d.Brand,
		Price:          d.Price.value(),
		InStock:        d.InStock == nil || *d.InStock,
		MainImage:      d.MainImage,
		Images:         d.Images,
		Description:    d.Description,
		Specifications: d.Specifications,
	}
	if p.Slug == "" {
		p.Slug = slug.Generate(d.Name)
	}
	if p.Slug == "" {
		p.Slug = d.ID
	}
	if d.OriginalPrice != nil && *d.OriginalPrice != 0 {
		v := float64(*d.OriginalPrice)
		p.OriginalPrice = &v
	}
	if d.Discount != nil {
		v := float64(*d.Discount)
		p.Discount = &v
	}
	if d.CreatedAt != nil {
		p.CreatedAt = *d.CreatedAt
	}

	for _, c := range d.Categories {
		if c.Category == "" {
			continue
		}
		p.Categories = append(p.Categories, domain.CategoryPair{Category: c.Category, Subcategory: c.Subcategory})
	}
	if len(p.Categories) == 0 && d.Category != "" {
		p.Categories = []domain.CategoryPair{{Category: d.Category, Subcategory: d.Subcategory}}
	}
	return p
}

func (n *Number) value() float64 {
	if n == nil {
		return 0
	}
	return float64(*n)
}

// FromProduct converts a domain product back to its stored form.
func FromProduct(p domain.Product) ProductDocument {
	d := ProductDocument{
		ID:             p.ID,
		Slug:           p.Slug,
		Name:           p.Name,
		Brand:          p.Brand,
		InStock:        &p.InStock,
		MainImage:      p.MainImage,
		Images:         p.Images,
		Description:    p.Description,
		Specifications: p.Specifications,
	}
	price := Number(p.Price)
	d.Price = &price
	if p.OriginalPrice != nil {
		v := Number(*p.OriginalPrice)
		d.OriginalPrice = &v
	}
	if p.Discount != nil {
		v := Number(*p.Discount)
		d.Discount = &v
	}
	if !p.CreatedAt.IsZero() {
		t := p.CreatedAt
		d.CreatedAt = &t
	}
	for _, c := range p.Categories {
		d.Categories = append(d.Categories, CategoryDocument(c))
	}
	return d
}

// LookupDocument is a brand, category or subcategory entry as stored.
type LookupDocument struct {
	ID             string `json:"id"`
	Slug           string `json:"slug"`
	Name           string `json:"name"`
	ParentCategory string `json:"parentCategory,omitempty"`
}

func (d LookupDocument) slugOrDerived() string {
	switch {
	case d.Slug != "":
		return d.Slug
	case d.Name != "":
		return slug.Generate(d.Name)
	default:
		return d.ID
	}
}

// Brand converts the entry to a brand.
func (d LookupDocument) Brand() domain.Brand {
	return domain.Brand{ID: d.ID, Slug: d.slugOrDerived(), Name: d.Name}
}

// Category converts the entry to a category.
func (d LookupDocument) Category() domain.Category {
	return domain.Category{ID: d.ID, Slug: d.slugOrDerived(), Name: d.Name}
}

// Subcategory converts the entry to a subcategory.
func (d LookupDocument) Subcategory() domain.Subcategory {
	return domain.Subcategory{ID: d.ID, Slug: d.slugOrDerived(), Name: d.Name, ParentCategory: d.ParentCategory}
}

// Fixture is a full catalog export: products and the three lookup tables.
type Fixture struct {
	Products      []domain.Product
	Brands        []domain.Brand
	Categories    []domain.Category
	Subcategories []domain.Subcategory
}

type fixtureDocument struct {
	Products      []ProductDocument `json:"products"`
	Brands        []LookupDocument  `json:"brands"`
	Categories    []LookupDocument  `json:"categories"`
	Subcategories []LookupDocument  `json:"subcategories"`
}

// DecodeFixture reads a catalog export and applies typed defaults to every
// document.
func DecodeFixture(r io.Reader) (*Fixture, error) {
	var doc fixtureDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog fixture: %w", err)
	}

	f := &Fixture{
		Products:      make([]domain.Product, 0, len(doc.Products)),
		Brands:        make([]domain.Brand, 0, len(doc.Brands)),
		Categories:    make([]domain.Category, 0, len(doc.Categories)),
		Subcategories: make([]domain.Subcategory, 0, len(doc.Subcategories)),
	}
	for i, p := range doc.Products {
		if p.ID == "" {
			return nil, fmt.Errorf("decode catalog fixture: product %d has no id", i)
		}
		f.Products = append(f.Products, p.ToDomain())
	}
	for _, b := range doc.Brands {
		f.Brands = append(f.Brands, b.Brand())
	}
	for _, c := range doc.Categories {
		f.Categories = append(f.Categories, c.Category())
	}
	for _, s := range doc.Subcategories {
		f.Subcategories = append(f.Subcategories, s.Subcategory())
	}
	return f, nil
}

// EncodeFixture writes f in the export format DecodeFixture reads.
func EncodeFixture(w io.Writer, f *Fixture) error {
	doc := fixtureDocument{
		Products:      make([]ProductDocument, 0, len(f.Products)),
		Brands:        make([]LookupDocument, 0, len(f.Brands)),
		Categories:    make([]LookupDocument, 0, len(f.Categories)),
		Subcategories: make([]LookupDocument, 0, len(f.Subcategories)),
	}
	for _, p := range f.Products {
		doc.Products = append(doc.Products, FromProduct(p))
	}
	for _, b := range f.Brands {
		doc.Brands = append(doc.Brands, LookupDocument{ID: b.ID, Slug: b.Slug, Name: b.Name})
	}
	for _, c := range f.Categories {
		doc.Categories = append(doc.Categories, LookupDocument{ID: c.ID, Slug: c.Slug, Name: c.Name})
	}
	for _, s := range f.Subcategories {
		doc.Subcategories = append(doc.Subcategories, LookupDocument{ID: s.ID, Slug: s.Slug, Name: s.Name, ParentCategory: s.ParentCategory})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode catalog fixture: %w", err)
	}
	return nil
}
