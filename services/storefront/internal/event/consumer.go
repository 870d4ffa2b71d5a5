package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/utafrali/CosmeticsGo/pkg/kafka"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/domain"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/repository"
)

// Catalog events consumed by the storefront.
var (
	TopicProductCreated     = pkgkafka.Topic("product", "created")
	TopicProductUpdated     = pkgkafka.Topic("product", "updated")
	TopicProductDeleted     = pkgkafka.Topic("product", "deleted")
	TopicBrandUpdated       = pkgkafka.Topic("brand", "updated")
	TopicCategoryUpdated    = pkgkafka.Topic("category", "updated")
	TopicSubcategoryUpdated = pkgkafka.Topic("subcategory", "updated")
)

// CatalogTopics lists every topic CatalogConsumer handles.
func CatalogTopics() []string {
	return []string{
		TopicProductCreated, TopicProductUpdated, TopicProductDeleted,
		TopicBrandUpdated, TopicCategoryUpdated, TopicSubcategoryUpdated,
	}
}

// ProductDeletedData represents the payload from a product.deleted event.
type ProductDeletedData struct {
	ID string `json:"id"`
}

// CacheInvalidator drops cached lookup tables.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// CatalogConsumer keeps the storefront's view of the catalog fresh. Product
// events are applied to the store when it is writable; lookup events drop
// the lookup cache.
type CatalogConsumer struct {
	writer repository.CatalogWriter
	cache  CacheInvalidator
	logger *slog.Logger
}

// NewCatalogConsumer creates a consumer. writer and cache may be nil, in
// which case the matching events are acknowledged and ignored.
func NewCatalogConsumer(writer repository.CatalogWriter, cache CacheInvalidator, logger *slog.Logger) *CatalogConsumer {
	return &CatalogConsumer{writer: writer, cache: cache, logger: logger}
}

// Handle processes a Kafka event based on its type.
func (c *CatalogConsumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicProductCreated, TopicProductUpdated:
		return c.handleProductUpserted(ctx, event)
	case TopicProductDeleted:
		return c.handleProductDeleted(ctx, event)
	case TopicBrandUpdated, TopicCategoryUpdated, TopicSubcategoryUpdated:
		return c.handleLookupUpdated(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

// handleProductUpserted writes the product carried by the event. The
// payload goes through the same typed defaults as any stored document.
func (c *CatalogConsumer) handleProductUpserted(ctx context.Context, event *pkgkafka.Event) error {
	if c.writer == nil {
		return nil
	}

	var doc repository.ProductDocument
	if err := event.UnmarshalData(&doc); err != nil {
		return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
	}
	if doc.ID == "" {
		c.logger.WarnContext(ctx, "product event without id", slog.String("event_id", event.EventID))
		return nil
	}

	if err := c.writer.UpsertProducts(ctx, []domain.Product{doc.ToDomain()}); err != nil {
		return fmt.Errorf("upsert product from %s event: %w", event.EventType, err)
	}

	c.logger.InfoContext(ctx, "applied product event",
		slog.String("event_type", event.EventType),
		slog.String("product_id", doc.ID),
	)
	return nil
}

func (c *CatalogConsumer) handleProductDeleted(ctx context.Context, event *pkgkafka.Event) error {
	if c.writer == nil {
		return nil
	}

	var data ProductDeletedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal product.deleted data: %w", err)
	}

	if err := c.writer.DeleteProduct(ctx, data.ID); err != nil {
		return fmt.Errorf("delete product from deleted event: %w", err)
	}

	c.logger.InfoContext(ctx, "deleted product from deleted event",
		slog.String("product_id", data.ID),
	)
	return nil
}

func (c *CatalogConsumer) handleLookupUpdated(ctx context.Context, event *pkgkafka.Event) error {
	if c.cache == nil {
		return nil
	}
	if err := c.cache.Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate lookups after %s: %w", event.EventType, err)
	}

	c.logger.InfoContext(ctx, "lookup cache invalidated", slog.String("event_type", event.EventType))
	return nil
}
