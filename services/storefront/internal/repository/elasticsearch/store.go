// Package elasticsearch keeps the catalog in Elasticsearch, one index per
// collection.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/utafrali/CosmeticsGo/services/storefront/internal/domain"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/repository"
)

// Store is an Elasticsearch-backed catalog repository.
type Store struct {
	client *elasticsearch.Client
	prefix string
	logger *slog.Logger
}

// esErrorResponse is used to decode Elasticsearch error responses.
type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// esSearchResponse decodes search hits into T, so documents go through the
// same loose decoding as every other source.
type esSearchResponse[T any] struct {
	Hits struct {
		Hits []struct {
			Source T `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// esBulkResponse is the structure used to decode Elasticsearch bulk responses.
type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID    string `json:"_id"`
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

// New connects to esURL and makes sure the catalog indices exist.
// If prefix is empty, DefaultIndexPrefix is used.
func New(ctx context.Context, esURL, prefix string, logger *slog.Logger) (*Store, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{esURL}})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}

	s := NewWithClient(client, prefix, logger)
	if err := s.EnsureIndices(ctx); err != nil {
		return nil, fmt.Errorf("elasticsearch: ensure indices: %w", err)
	}
	return s, nil
}

// NewWithClient wraps an existing client without touching the cluster.
func NewWithClient(client *elasticsearch.Client, prefix string, logger *slog.Logger) *Store {
	if prefix == "" {
		prefix = DefaultIndexPrefix
	}
	return &Store{client: client, prefix: prefix, logger: logger}
}

func (s *Store) index(collection string) string {
	return s.prefix + "_" + collection
}

// responseError turns a failed response into an error, preferring the
// cluster's own error type and reason.
func responseError(op string, res *esapi.Response) error {
	var errResp esErrorResponse
	if err := json.NewDecoder(res.Body).Decode(&errResp); err == nil && errResp.Error.Type != "" {
		return fmt.Errorf("%s: %s: %s", op, errResp.Error.Type, errResp.Error.Reason)
	}
	return fmt.Errorf("%s: unexpected status %s", op, res.Status())
}

// Ping checks whether the Elasticsearch cluster is reachable.
func (s *Store) Ping(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

// EnsureIndices creates any missing catalog index.
func (s *Store) EnsureIndices(ctx context.Context) error {
	indices := map[string]string{
		collectionProducts:      productMapping(),
		collectionBrands:        lookupMapping(),
		collectionCategories:    lookupMapping(),
		collectionSubcategories: lookupMapping(),
	}
	for _, c := range []string{collectionProducts, collectionBrands, collectionCategories, collectionSubcategories} {
		if err := s.ensureIndex(ctx, s.index(c), indices[c]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ensureIndex(ctx context.Context, name, mapping string) error {
	res, err := s.client.Indices.Exists([]string{name}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s exists: %w", name, err)
	}
	_ = res.Body.Close()

	if res.StatusCode == http.StatusOK {
		s.logger.Debug("elasticsearch index already exists", slog.String("index", name))
		return nil
	}

	res, err = s.client.Indices.Create(name,
		s.client.Indices.Create.WithBody(strings.NewReader(mapping)),
		s.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("create index "+name, res)
	}

	s.logger.Info("elasticsearch index created", slog.String("index", name))
	return nil
}

// buildProductQuery constructs the query DSL for q.
func buildProductQuery(q repository.ProductQuery) map[string]any {
	var filters []any

	if q.CategorySlug != "" {
		pair := []any{
			map[string]any{"term": map[string]any{"categories.category": q.CategorySlug}},
		}
		if q.SubcategorySlug != "" {
			pair = append(pair, map[string]any{"term": map[string]any{"categories.subcategory": q.SubcategorySlug}})
		}
		filters = append(filters, map[string]any{
			"nested": map[string]any{
				"path":  "categories",
				"query": map[string]any{"bool": map[string]any{"filter": pair}},
			},
		})
	}

	if q.OnSale {
		filters = append(filters, map[string]any{
			"script": map[string]any{
				"script": map[string]any{
					"lang":   "painless",
					"source": "doc['originalPrice'].size() > 0 && doc['price'].size() > 0 && doc['originalPrice'].value > doc['price'].value",
				},
			},
		})
	}

	query := map[string]any{"match_all": map[string]any{}}
	if len(filters) > 0 {
		query = map[string]any{"bool": map[string]any{"filter": filters}}
	}

	return map[string]any{
		"query": query,
		"size":  q.EffectiveLimit(),
		"sort":  []any{"_doc"},
	}
}

func search[T any](ctx context.Context, s *Store, op, index string, body map[string]any) ([]T, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal query: %w", op, err)
	}

	res, err := s.client.Search(
		s.client.Search.WithIndex(index),
		s.client.Search.WithBody(bytes.NewReader(data)),
		s.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, responseError(op, res)
	}

	var resp esSearchResponse[T]
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}

	out := make([]T, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		out = append(out, hit.Source)
	}
	return out, nil
}

// ListProducts returns products matching q in index order.
func (s *Store) ListProducts(ctx context.Context, q repository.ProductQuery) ([]domain.Product, error) {
	docs, err := search[repository.ProductDocument](ctx, s, "elasticsearch list products", s.index(collectionProducts), buildProductQuery(q))
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(docs))
	for _, d := range docs {
		products = append(products, d.ToDomain())
	}
	return products, nil
}

func (s *Store) listLookups(ctx context.Context, collection string) ([]repository.LookupDocument, error) {
	body := map[string]any{
		"query": map[string]any{"match_all": map[string]any{}},
		"size":  repository.MaxProductLimit,
		"sort":  []any{"_doc"},
	}
	return search[repository.LookupDocument](ctx, s, "elasticsearch list "+collection, s.index(collection), body)
}

// ListBrands returns the brand lookup table.
func (s *Store) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	docs, err := s.listLookups(ctx, collectionBrands)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Brand, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Brand())
	}
	return out, nil
}

// ListCategories returns the category lookup table.
func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	docs, err := s.listLookups(ctx, collectionCategories)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Category, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Category())
	}
	return out, nil
}

// ListSubcategories returns the subcategory lookup table.
func (s *Store) ListSubcategories(ctx context.Context) ([]domain.Subcategory, error) {
	docs, err := s.listLookups(ctx, collectionSubcategories)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Subcategory, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Subcategory())
	}
	return out, nil
}

type bulkItem struct {
	id  string
	doc any
}

// bulkIndex writes items to index with the bulk NDJSON API and refreshes,
// so reads that follow see the writes.
func (s *Store) bulkIndex(ctx context.Context, index string, items []bulkItem) error {
	if len(items) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, it := range items {
		action := map[string]any{"index": map[string]any{"_index": index, "_id": it.id}}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode action: %w", err)
		}
		if err := enc.Encode(it.doc); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode document: %w", err)
		}
	}

	res, err := s.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		s.client.Bulk.WithIndex(index),
		s.client.Bulk.WithRefresh("true"),
		s.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("elasticsearch bulk index", res)
	}

	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("elasticsearch bulk index: decode response: %w", err)
	}
	if bulkResp.Errors {
		var msgs []string
		for _, item := range bulkResp.Items {
			for _, r := range item {
				if r.Error.Type != "" {
					msgs = append(msgs, fmt.Sprintf("id=%s: %s: %s", r.ID, r.Error.Type, r.Error.Reason))
				}
			}
		}
		return fmt.Errorf("elasticsearch bulk index: partial errors: %s", strings.Join(msgs, "; "))
	}

	s.logger.Info("bulk indexed documents", slog.String("index", index), slog.Int("count", len(items)))
	return nil
}

// UpsertProducts indexes products, replacing documents with the same id.
func (s *Store) UpsertProducts(ctx context.Context, products []domain.Product) error {
	items := make([]bulkItem, 0, len(products))
	for _, p := range products {
		items = append(items, bulkItem{id: p.ID, doc: repository.FromProduct(p)})
	}
	return s.bulkIndex(ctx, s.index(collectionProducts), items)
}

// DeleteProduct removes a product. A missing document is not an error.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.client.Delete(s.index(collectionProducts), id,
		s.client.Delete.WithRefresh("true"),
		s.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("elasticsearch delete", res)
	}
	return nil
}

// ReplaceLookups empties each lookup index and indexes the new tables.
func (s *Store) ReplaceLookups(ctx context.Context, brands []domain.Brand, categories []domain.Category, subcategories []domain.Subcategory) error {
	tables := []struct {
		collection string
		items      []bulkItem
	}{
		{collectionBrands, lookupItems(brands, func(b domain.Brand) repository.LookupDocument {
			return repository.LookupDocument{ID: b.ID, Slug: b.Slug, Name: b.Name}
		})},
		{collectionCategories, lookupItems(categories, func(c domain.Category) repository.LookupDocument {
			return repository.LookupDocument{ID: c.ID, Slug: c.Slug, Name: c.Name}
		})},
		{collectionSubcategories, lookupItems(subcategories, func(sc domain.Subcategory) repository.LookupDocument {
			return repository.LookupDocument{ID: sc.ID, Slug: sc.Slug, Name: sc.Name, ParentCategory: sc.ParentCategory}
		})},
	}

	for _, t := range tables {
		if err := s.clear(ctx, s.index(t.collection)); err != nil {
			return err
		}
		if err := s.bulkIndex(ctx, s.index(t.collection), t.items); err != nil {
			return err
		}
	}
	return nil
}

func lookupItems[T any](rows []T, toDoc func(T) repository.LookupDocument) []bulkItem {
	items := make([]bulkItem, 0, len(rows))
	for _, r := range rows {
		d := toDoc(r)
		id := d.ID
		if id == "" {
			id = d.Slug
		}
		items = append(items, bulkItem{id: id, doc: d})
	}
	return items
}

func (s *Store) clear(ctx context.Context, index string) error {
	res, err := s.client.DeleteByQuery([]string{index},
		strings.NewReader(`{"query":{"match_all":{}}}`),
		s.client.DeleteByQuery.WithRefresh(true),
		s.client.DeleteByQuery.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch clear %s: %w", index, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("elasticsearch clear "+index, res)
	}
	return nil
}

// DeleteIndices removes all catalog indices. A missing index is not an error.
func (s *Store) DeleteIndices(ctx context.Context) error {
	names := []string{
		s.index(collectionProducts), s.index(collectionBrands),
		s.index(collectionCategories), s.index(collectionSubcategories),
	}
	res, err := s.client.Indices.Delete(names,
		s.client.Indices.Delete.WithIgnoreUnavailable(true),
		s.client.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete indices: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("elasticsearch delete indices", res)
	}
	return nil
}
