package memory

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/utafrali/CosmeticsGo/services/storefront/internal/domain"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/repository"
)

// Store is an in-memory catalog store. Products are returned in insertion
// order, which stands in for the document store's natural order.
// Thread-safe via sync.RWMutex.
type Store struct {
	mu            sync.RWMutex
	order         []string
	products      map[string]domain.Product
	brands        []domain.Brand
	categories    []domain.Category
	subcategories []domain.Subcategory

	// failWith, when set, is returned by every read. Used to simulate an
	// unreachable store.
	failWith error
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{products: make(map[string]domain.Product)}
}

// LoadFixture replaces the store's contents with a catalog export.
func (s *Store) LoadFixture(r io.Reader) error {
	f, err := repository.DecodeFixture(r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = s.order[:0]
	s.products = make(map[string]domain.Product, len(f.Products))
	s.upsertLocked(f.Products)
	s.brands = f.Brands
	s.categories = f.Categories
	s.subcategories = f.Subcategories
	return nil
}

// Snapshot returns everything in the store, used to seed other backends.
func (s *Store) Snapshot() *repository.Fixture {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f := &repository.Fixture{
		Products:      make([]domain.Product, 0, len(s.order)),
		Brands:        slices.Clone(s.brands),
		Categories:    slices.Clone(s.categories),
		Subcategories: slices.Clone(s.subcategories),
	}
	for _, id := range s.order {
		f.Products = append(f.Products, s.products[id])
	}
	return f
}

// SetFailure makes every read return err until cleared with nil.
func (s *Store) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// ListProducts returns products matching q in insertion order.
func (s *Store) ListProducts(_ context.Context, q repository.ProductQuery) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failWith != nil {
		return nil, fmt.Errorf("list products: %w", s.failWith)
	}

	limit := q.EffectiveLimit()
	out := make([]domain.Product, 0, min(limit, len(s.order)))
	for _, id := range s.order {
		p := s.products[id]
		if !q.Matches(&p) {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// ListBrands returns the brand table.
func (s *Store) ListBrands(_ context.Context) ([]domain.Brand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failWith != nil {
		return nil, fmt.Errorf("list brands: %w", s.failWith)
	}
	return slices.Clone(s.brands), nil
}

// ListCategories returns the category table.
func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failWith != nil {
		return nil, fmt.Errorf("list categories: %w", s.failWith)
	}
	return slices.Clone(s.categories), nil
}

// ListSubcategories returns the subcategory table.
func (s *Store) ListSubcategories(_ context.Context) ([]domain.Subcategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failWith != nil {
		return nil, fmt.Errorf("list subcategories: %w", s.failWith)
	}
	return slices.Clone(s.subcategories), nil
}

// UpsertProducts adds or replaces products. New products go to the end.
func (s *Store) UpsertProducts(_ context.Context, products []domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(products)
	return nil
}

func (s *Store) upsertLocked(products []domain.Product) {
	for i := range products {
		if _, ok := s.products[products[i].ID]; !ok {
			s.order = append(s.order, products[i].ID)
		}
		s.products[products[i].ID] = products[i]
	}
}

// DeleteProduct removes a product. Unknown ids are ignored.
func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return nil
	}
	delete(s.products, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return nil
}

// ReplaceLookups swaps the three lookup tables.
func (s *Store) ReplaceLookups(_ context.Context, brands []domain.Brand, categories []domain.Category, subcategories []domain.Subcategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brands = slices.Clone(brands)
	s.categories = slices.Clone(categories)
	s.subcategories = slices.Clone(subcategories)
	return nil
}

// Ping always succeeds unless a failure is set.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failWith
}
