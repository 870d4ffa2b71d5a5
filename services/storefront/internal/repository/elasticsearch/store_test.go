package elasticsearch

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/CosmeticsGo/services/storefront/internal/domain"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeCluster answers like Elasticsearch for the handful of endpoints the
// store uses and records each request line.
type fakeCluster struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string]string
	handle   func(w http.ResponseWriter, r *http.Request, body string) bool
}

func newFakeCluster(t *testing.T, handle func(w http.ResponseWriter, r *http.Request, body string) bool) (*Store, *fakeCluster) {
	t.Helper()
	fc := &fakeCluster{bodies: map[string]string{}, handle: handle}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		key := r.Method + " " + r.URL.Path

		fc.mu.Lock()
		fc.requests = append(fc.requests, key)
		fc.bodies[key] = string(data)
		fc.mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if fc.handle != nil && fc.handle(w, r, string(data)) {
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewWithClient(client, "", discardLogger()), fc
}

func (fc *fakeCluster) body(key string) string {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.bodies[key]
}

func TestBuildProductQuery(t *testing.T) {
	q := buildProductQuery(repository.ProductQuery{})
	assert.Equal(t, map[string]any{"match_all": map[string]any{}}, q["query"])
	assert.Equal(t, repository.MaxProductLimit, q["size"])

	q = buildProductQuery(repository.ProductQuery{CategorySlug: "cheveux", SubcategorySlug: "masque", OnSale: true, Limit: 500})
	assert.Equal(t, 500, q["size"])

	data, err := json.Marshal(q)
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, `"path":"categories"`)
	assert.Contains(t, s, `{"term":{"categories.category":"cheveux"}}`)
	assert.Contains(t, s, `{"term":{"categories.subcategory":"masque"}}`)

	filters := q["query"].(map[string]any)["bool"].(map[string]any)["filter"].([]any)
	require.Len(t, filters, 2)
	script := filters[1].(map[string]any)["script"].(map[string]any)["script"].(map[string]any)
	assert.Equal(t, "painless", script["lang"])
	assert.Contains(t, script["source"], `doc['originalPrice'].value > doc['price'].value`)
}

func TestStore_ListProducts(t *testing.T) {
	store, fc := newFakeCluster(t, func(w http.ResponseWriter, r *http.Request, _ string) bool {
		if r.URL.Path != "/cosmetics_products/_search" {
			return false
		}
		_, _ = w.Write([]byte(`{"hits":{"hits":[
			{"_source":{"id":"p1","name":"Huile Sèche","brand":"nuxe","price":"149.5","originalPrice":199,
			            "categories":[{"category":"corps","subcategory":"huile"}]}},
			{"_source":{"id":"p2","name":"Baume","category":"levres"}}
		]}}`))
		return true
	})

	products, err := store.ListProducts(context.Background(), repository.ProductQuery{CategorySlug: "corps", Limit: 10})
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "huile-seche", products[0].Slug)
	assert.Equal(t, 149.5, products[0].Price)
	assert.True(t, products[0].IsOnSale())
	assert.Equal(t, []domain.CategoryPair{{Category: "levres"}}, products[1].Categories)
	assert.Zero(t, products[1].Price)

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(fc.body("POST /cosmetics_products/_search")), &sent))
	assert.EqualValues(t, 10, sent["size"])
}

func TestStore_ListProducts_Error(t *testing.T) {
	store, _ := newFakeCluster(t, func(w http.ResponseWriter, _ *http.Request, _ string) bool {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"type":"security_exception","reason":"action unauthorized"},"status":403}`))
		return true
	})

	_, err := store.ListProducts(context.Background(), repository.ProductQuery{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "security_exception: action unauthorized")
}

func TestStore_ListLookups(t *testing.T) {
	store, _ := newFakeCluster(t, func(w http.ResponseWriter, r *http.Request, _ string) bool {
		switch r.URL.Path {
		case "/cosmetics_brands/_search":
			_, _ = w.Write([]byte(`{"hits":{"hits":[{"_source":{"id":"b1","name":"La Roche-Posay"}}]}}`))
		case "/cosmetics_categories/_search":
			_, _ = w.Write([]byte(`{"hits":{"hits":[{"_source":{"id":"c1","slug":"visage","name":"Visage"}}]}}`))
		case "/cosmetics_subcategories/_search":
			_, _ = w.Write([]byte(`{"hits":{"hits":[{"_source":{"id":"s1","slug":"serum","name":"Sérum","parentCategory":"visage"}}]}}`))
		default:
			return false
		}
		return true
	})
	ctx := context.Background()

	brands, err := store.ListBrands(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Brand{{ID: "b1", Slug: "la-roche-posay", Name: "La Roche-Posay"}}, brands)

	cats, err := store.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Visage", cats[0].Name)

	subs, err := store.ListSubcategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, "visage", subs[0].ParentCategory)
}

func TestStore_UpsertProducts(t *testing.T) {
	store, fc := newFakeCluster(t, func(w http.ResponseWriter, r *http.Request, _ string) bool {
		if !strings.HasSuffix(r.URL.Path, "/_bulk") {
			return false
		}
		_, _ = w.Write([]byte(`{"errors":false,"items":[]}`))
		return true
	})

	orig := 100.0
	err := store.UpsertProducts(context.Background(), []domain.Product{
		{ID: "p1", Name: "A", Price: 80, OriginalPrice: &orig},
		{ID: "p2", Name: "B", Price: 10},
	})
	require.NoError(t, err)

	var lines []string
	sc := bufio.NewScanner(strings.NewReader(fc.body("POST /cosmetics_products/_bulk")))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.Len(t, lines, 4)
	assert.JSONEq(t, `{"index":{"_index":"cosmetics_products","_id":"p1"}}`, lines[0])
	assert.Contains(t, lines[1], `"originalPrice":100`)
}

func TestStore_UpsertProducts_PartialErrors(t *testing.T) {
	store, _ := newFakeCluster(t, func(w http.ResponseWriter, r *http.Request, _ string) bool {
		_, _ = w.Write([]byte(`{"errors":true,"items":[
			{"index":{"_id":"p1","status":201}},
			{"index":{"_id":"p2","status":400,"error":{"type":"mapper_parsing_exception","reason":"bad price"}}}
		]}`))
		return true
	})

	err := store.UpsertProducts(context.Background(), []domain.Product{{ID: "p1"}, {ID: "p2"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id=p2: mapper_parsing_exception: bad price")
	assert.NotContains(t, err.Error(), "id=p1")
}

func TestStore_UpsertProducts_Empty(t *testing.T) {
	store, fc := newFakeCluster(t, nil)
	require.NoError(t, store.UpsertProducts(context.Background(), nil))
	assert.Empty(t, fc.requests)
}

func TestStore_EnsureIndices(t *testing.T) {
	store, fc := newFakeCluster(t, func(w http.ResponseWriter, r *http.Request, _ string) bool {
		if r.Method == http.MethodHead {
			if r.URL.Path == "/cosmetics_products" {
				w.WriteHeader(http.StatusNotFound)
			}
			return true
		}
		return false
	})

	require.NoError(t, store.EnsureIndices(context.Background()))

	assert.Contains(t, fc.requests, "PUT /cosmetics_products")
	assert.NotContains(t, fc.requests, "PUT /cosmetics_brands")
	assert.Contains(t, fc.body("PUT /cosmetics_products"), `"type": "nested"`)
}

func TestStore_DeleteProduct_IgnoresMissing(t *testing.T) {
	store, fc := newFakeCluster(t, func(w http.ResponseWriter, r *http.Request, _ string) bool {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"result":"not_found"}`))
		return true
	})

	require.NoError(t, store.DeleteProduct(context.Background(), "p9"))
	assert.Equal(t, []string{"DELETE /cosmetics_products/_doc/p9"}, fc.requests)
}

func TestStore_ReplaceLookups(t *testing.T) {
	store, fc := newFakeCluster(t, func(w http.ResponseWriter, r *http.Request, _ string) bool {
		if strings.HasSuffix(r.URL.Path, "/_bulk") {
			_, _ = w.Write([]byte(`{"errors":false,"items":[]}`))
			return true
		}
		return false
	})

	err := store.ReplaceLookups(context.Background(),
		[]domain.Brand{{Slug: "nivea", Name: "Nivea"}},
		nil,
		[]domain.Subcategory{{ID: "s1", Slug: "serum", Name: "Sérum", ParentCategory: "visage"}},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"POST /cosmetics_brands/_delete_by_query",
		"POST /cosmetics_brands/_bulk",
		"POST /cosmetics_categories/_delete_by_query",
		"POST /cosmetics_subcategories/_delete_by_query",
		"POST /cosmetics_subcategories/_bulk",
	}, fc.requests)
	assert.Contains(t, fc.body("POST /cosmetics_brands/_bulk"), `"_id":"nivea"`)
}

func TestStore_Ping(t *testing.T) {
	store, _ := newFakeCluster(t, nil)
	assert.NoError(t, store.Ping(context.Background()))

	down, _ := newFakeCluster(t, func(w http.ResponseWriter, _ *http.Request, _ string) bool {
		w.WriteHeader(http.StatusServiceUnavailable)
		return true
	})
	assert.Error(t, down.Ping(context.Background()))
}
