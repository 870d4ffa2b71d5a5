package domain

// Brand is a lookup entry resolving a brand slug to its display name.
type Brand struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Category is a top-level catalog section.
type Category struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Subcategory belongs to the category whose slug is ParentCategory.
type Subcategory struct {
	ID             string `json:"id"`
	Slug           string `json:"slug"`
	Name           string `json:"name"`
	ParentCategory string `json:"parent_category"`
}

// Catalog holds the lookup tables used to turn slug-valued product fields
// into display labels. It is immutable once built and safe to share.
type Catalog struct {
	brandNames       map[string]string
	categoryNames    map[string]string
	subcategoryNames map[string]string
}

// NewCatalog indexes the lookup tables by slug and by id. When a slug and
// an id collide the slug wins.
func NewCatalog(brands []Brand, categories []Category, subcategories []Subcategory) *Catalog {
	c := &Catalog{
		brandNames:       make(map[string]string, 2*len(brands)),
		categoryNames:    make(map[string]string, 2*len(categories)),
		subcategoryNames: make(map[string]string, 2*len(subcategories)),
	}

	for _, b := range brands {
		index(c.brandNames, b.ID, b.Name)
	}
	for _, b := range brands {
		index(c.brandNames, b.Slug, b.Name)
	}
	for _, cat := range categories {
		index(c.categoryNames, cat.ID, cat.Name)
	}
	for _, cat := range categories {
		index(c.categoryNames, cat.Slug, cat.Name)
	}
	for _, s := range subcategories {
		index(c.subcategoryNames, s.ID, s.Name)
	}
	for _, s := range subcategories {
		index(c.subcategoryNames, s.Slug, s.Name)
	}
	return c
}

func index(m map[string]string, key, name string) {
	if key == "" || name == "" {
		return
	}
	m[key] = name
}

func resolve(m map[string]string, key string) string {
	if name, ok := m[key]; ok {
		return name
	}
	return key
}

// BrandName resolves a brand slug or id. Unknown keys resolve to themselves.
func (c *Catalog) BrandName(key string) string {
	if c == nil {
		return key
	}
	return resolve(c.brandNames, key)
}

// CategoryName resolves a category slug or id. Unknown keys resolve to themselves.
func (c *Catalog) CategoryName(key string) string {
	if c == nil {
		return key
	}
	return resolve(c.categoryNames, key)
}

// SubcategoryName resolves a subcategory slug or id. Unknown keys resolve
// to themselves.
func (c *Catalog) SubcategoryName(key string) string {
	if c == nil {
		return key
	}
	return resolve(c.subcategoryNames, key)
}
