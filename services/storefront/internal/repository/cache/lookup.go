// Package cache puts a Redis read-through cache in front of the catalog
// lookup tables.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/CosmeticsGo/services/storefront/internal/domain"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/repository"
)

const keyPrefix = "storefront:lookup:"

const (
	keyBrands        = keyPrefix + "brands"
	keyCategories    = keyPrefix + "categories"
	keySubcategories = keyPrefix + "subcategories"
)

// LookupCache caches brand, category and subcategory tables. Products are
// never cached. Redis failures are logged and the store is read directly.
type LookupCache struct {
	repository.CatalogRepository

	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewLookupCache wraps next. A non-positive ttl disables caching.
func NewLookupCache(next repository.CatalogRepository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *LookupCache {
	return &LookupCache{CatalogRepository: next, client: client, ttl: ttl, logger: logger}
}

// ListBrands returns the cached brand table or loads it from the store.
func (c *LookupCache) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	return readThrough(ctx, c, keyBrands, c.CatalogRepository.ListBrands)
}

// ListCategories returns the cached category table or loads it from the store.
func (c *LookupCache) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return readThrough(ctx, c, keyCategories, c.CatalogRepository.ListCategories)
}

// ListSubcategories returns the cached subcategory table or loads it from
// the store.
func (c *LookupCache) ListSubcategories(ctx context.Context) ([]domain.Subcategory, error) {
	return readThrough(ctx, c, keySubcategories, c.CatalogRepository.ListSubcategories)
}

func readThrough[T any](ctx context.Context, c *LookupCache, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	if c.ttl <= 0 {
		return load(ctx)
	}

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var out []T
		if err := json.Unmarshal(data, &out); err == nil {
			return out, nil
		}
		c.logger.WarnContext(ctx, "discarding corrupt lookup cache entry", slog.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "lookup cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}

	out, err := load(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(out); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "lookup cache write failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
	return out, nil
}

// Invalidate drops every cached lookup table.
func (c *LookupCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, keyBrands, keyCategories, keySubcategories).Err(); err != nil {
		return fmt.Errorf("invalidate lookup cache: %w", err)
	}
	return nil
}
