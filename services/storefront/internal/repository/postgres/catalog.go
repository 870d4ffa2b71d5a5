// Package postgres stores the catalog in PostgreSQL.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/CosmeticsGo/pkg/database"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/domain"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/repository"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the schema migrations for the catalog tables.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Migrate applies the catalog schema.
func Migrate(ctx context.Context, db database.TxBeginner, logger *slog.Logger) error {
	return database.RunMigrations(ctx, db, Migrations(), logger)
}

// CatalogRepository reads and writes the catalog using PostgreSQL.
type CatalogRepository struct {
	db database.TxBeginner
}

// NewCatalogRepository creates a new PostgreSQL-backed catalog repository.
func NewCatalogRepository(db database.TxBeginner) *CatalogRepository {
	return &CatalogRepository{db: db}
}

const selectProducts = `
		SELECT p.id, p.slug, p.name, p.brand, p.price, p.original_price, p.discount,
		       p.in_stock, p.main_image, p.images, p.description, p.specifications, p.created_at,
		       COALESCE((
		           SELECT json_agg(json_build_object('category', pc.category, 'subcategory', pc.subcategory) ORDER BY pc.position)
		           FROM product_categories pc
		           WHERE pc.product_id = p.id
		       ), '[]') AS categories
		FROM products p`

// buildProductQuery renders the product SELECT for q with positional args.
func buildProductQuery(q repository.ProductQuery) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch {
	case q.SubcategorySlug != "":
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM product_categories c WHERE c.product_id = p.id AND c.category = %s AND c.subcategory = %s)",
			arg(q.CategorySlug), arg(q.SubcategorySlug)))
	case q.CategorySlug != "":
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM product_categories c WHERE c.product_id = p.id AND c.category = %s)",
			arg(q.CategorySlug)))
	}
	if q.OnSale {
		where = append(where, "p.original_price IS NOT NULL AND p.original_price > p.price")
	}

	var b strings.Builder
	b.WriteString(selectProducts)
	if len(where) > 0 {
		b.WriteString("\n\t\tWHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString("\n\t\tORDER BY p.position\n\t\tLIMIT ")
	b.WriteString(arg(q.EffectiveLimit()))
	return b.String(), args
}

// ListProducts returns products matching q in insertion order.
func (r *CatalogRepository) ListProducts(ctx context.Context, q repository.ProductQuery) (_ []domain.Product, err error) {
	query, args := buildProductQuery(q)

	ctx, end := database.TraceQuery(ctx, "ListProducts", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var (
			p          domain.Product
			images     []string
			categories []byte
		)
		if err := rows.Scan(
			&p.ID,
			&p.Slug,
			&p.Name,
			&p.Brand,
			&p.Price,
			&p.OriginalPrice,
			&p.Discount,
			&p.InStock,
			&p.MainImage,
			&images,
			&p.Description,
			&p.Specifications,
			&p.CreatedAt,
			&categories,
		); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}

		p.Images = images
		if err := json.Unmarshal(categories, &p.Categories); err != nil {
			return nil, fmt.Errorf("decode categories of product %s: %w", p.ID, err)
		}
		if len(p.Categories) == 0 {
			p.Categories = nil
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, nil
}

// ListBrands returns all brands ordered by name.
func (r *CatalogRepository) ListBrands(ctx context.Context) (_ []domain.Brand, err error) {
	query := `SELECT id, slug, name FROM brands ORDER BY name`

	ctx, end := database.TraceQuery(ctx, "ListBrands", query)
	defer func() { end(err) }()

	return collectLookups(ctx, r.db, query, "brand", func(row pgx.Rows) (domain.Brand, error) {
		var b domain.Brand
		err := row.Scan(&b.ID, &b.Slug, &b.Name)
		return b, err
	})
}

// ListCategories returns all categories ordered by name.
func (r *CatalogRepository) ListCategories(ctx context.Context) (_ []domain.Category, err error) {
	query := `SELECT id, slug, name FROM categories ORDER BY name`

	ctx, end := database.TraceQuery(ctx, "ListCategories", query)
	defer func() { end(err) }()

	return collectLookups(ctx, r.db, query, "category", func(row pgx.Rows) (domain.Category, error) {
		var c domain.Category
		err := row.Scan(&c.ID, &c.Slug, &c.Name)
		return c, err
	})
}

// ListSubcategories returns all subcategories ordered by name.
func (r *CatalogRepository) ListSubcategories(ctx context.Context) (_ []domain.Subcategory, err error) {
	query := `SELECT id, slug, name, parent_category FROM subcategories ORDER BY name`

	ctx, end := database.TraceQuery(ctx, "ListSubcategories", query)
	defer func() { end(err) }()

	return collectLookups(ctx, r.db, query, "subcategory", func(row pgx.Rows) (domain.Subcategory, error) {
		var s domain.Subcategory
		err := row.Scan(&s.ID, &s.Slug, &s.Name, &s.ParentCategory)
		return s, err
	})
}

func collectLookups[T any](ctx context.Context, db database.DBTX, query, what string, scan func(pgx.Rows) (T, error)) ([]T, error) {
	rows, err := db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", what, err)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s row: %w", what, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", what, err)
	}
	return out, nil
}

// UpsertProducts inserts or replaces products and their category pairs in
// one transaction.
func (r *CatalogRepository) UpsertProducts(ctx context.Context, products []domain.Product) (err error) {
	if len(products) == 0 {
		return nil
	}

	ctx, end := database.TraceQuery(ctx, "UpsertProducts", "INSERT INTO products")
	defer func() { end(err) }()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert products: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i := range products {
		p := &products[i]
		images := p.Images
		if images == nil {
			images = []string{}
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO products (id, slug, name, brand, price, original_price, discount,
			                      in_stock, main_image, images, description, specifications, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, COALESCE($13, NOW()))
			ON CONFLICT (id) DO UPDATE SET
				slug = EXCLUDED.slug, name = EXCLUDED.name, brand = EXCLUDED.brand,
				price = EXCLUDED.price, original_price = EXCLUDED.original_price,
				discount = EXCLUDED.discount, in_stock = EXCLUDED.in_stock,
				main_image = EXCLUDED.main_image, images = EXCLUDED.images,
				description = EXCLUDED.description, specifications = EXCLUDED.specifications`,
			p.ID, p.Slug, p.Name, p.Brand, p.Price, p.OriginalPrice, p.Discount,
			p.InStock, p.MainImage, images, p.Description, p.Specifications, nullTime(p),
		)
		if err != nil {
			return fmt.Errorf("upsert product %s: %w", p.ID, err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM product_categories WHERE product_id = $1`, p.ID); err != nil {
			return fmt.Errorf("clear categories of product %s: %w", p.ID, err)
		}
		for pos, c := range p.Categories {
			if _, err := tx.Exec(ctx,
				`INSERT INTO product_categories (product_id, position, category, subcategory) VALUES ($1, $2, $3, $4)`,
				p.ID, pos, c.Category, c.Subcategory,
			); err != nil {
				return fmt.Errorf("insert category of product %s: %w", p.ID, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert products: %w", err)
	}
	return nil
}

func nullTime(p *domain.Product) any {
	if p.CreatedAt.IsZero() {
		return nil
	}
	return p.CreatedAt
}

// DeleteProduct removes a product. Category pairs cascade.
func (r *CatalogRepository) DeleteProduct(ctx context.Context, id string) (err error) {
	query := `DELETE FROM products WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "DeleteProduct", query)
	defer func() { end(err) }()

	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	return nil
}

// ReplaceLookups swaps the three lookup tables in one transaction.
func (r *CatalogRepository) ReplaceLookups(ctx context.Context, brands []domain.Brand, categories []domain.Category, subcategories []domain.Subcategory) (err error) {
	ctx, end := database.TraceQuery(ctx, "ReplaceLookups", "DELETE FROM brands")
	defer func() { end(err) }()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace lookups: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, table := range []string{"brands", "categories", "subcategories"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for _, b := range brands {
		if _, err := tx.Exec(ctx, `INSERT INTO brands (id, slug, name) VALUES ($1, $2, $3)`, idOrSlug(b.ID, b.Slug), b.Slug, b.Name); err != nil {
			return fmt.Errorf("insert brand %s: %w", b.Slug, err)
		}
	}
	for _, c := range categories {
		if _, err := tx.Exec(ctx, `INSERT INTO categories (id, slug, name) VALUES ($1, $2, $3)`, idOrSlug(c.ID, c.Slug), c.Slug, c.Name); err != nil {
			return fmt.Errorf("insert category %s: %w", c.Slug, err)
		}
	}
	for _, s := range subcategories {
		if _, err := tx.Exec(ctx,
			`INSERT INTO subcategories (id, slug, name, parent_category) VALUES ($1, $2, $3, $4)`,
			idOrSlug(s.ID, s.Slug), s.Slug, s.Name, s.ParentCategory,
		); err != nil {
			return fmt.Errorf("insert subcategory %s: %w", s.Slug, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace lookups: %w", err)
	}
	return nil
}

// idOrSlug keys lookup rows that were exported without an id by their slug.
func idOrSlug(id, slug string) string {
	if id == "" {
		return slug
	}
	return id
}

// Ping checks the database connection.
func (r *CatalogRepository) Ping(ctx context.Context) error {
	var one int
	if err := r.db.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}
