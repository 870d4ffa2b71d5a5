package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/utafrali/CosmeticsGo/pkg/kafka"
	pkglogger "github.com/utafrali/CosmeticsGo/pkg/logger"
)

// Analytics event types. Both go to TopicAnalytics.
const (
	EventSearchPerformed = "storefront.search.performed"
	EventFiltersApplied  = "storefront.filters.applied"
)

// TopicAnalytics carries storefront analytics events.
var TopicAnalytics = pkgkafka.Topic("storefront", "analytics")

// AggregateTypeSession is the aggregate analytics events are keyed by.
const AggregateTypeSession = "storefront_session"

// SourceStorefront identifies events originating from the storefront service.
const SourceStorefront = "storefront-service"

// SearchPerformedData is the payload of a storefront.search.performed event.
type SearchPerformedData struct {
	SessionID      string   `json:"session_id,omitempty"`
	Query          string   `json:"query"`
	CandidateCount int      `json:"candidate_count"`
	ResultCount    int      `json:"result_count"`
	TopProductIDs  []string `json:"top_product_ids,omitempty"`
}

// FiltersAppliedData is the payload of a storefront.filters.applied event.
type FiltersAppliedData struct {
	SessionID     string   `json:"session_id,omitempty"`
	Page          string   `json:"page"`
	Query         string   `json:"query,omitempty"`
	Category      string   `json:"category,omitempty"`
	Subcategory   string   `json:"subcategory,omitempty"`
	Brands        []string `json:"brands,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	Subcategories []string `json:"subcategories,omitempty"`
	PriceBand     string   `json:"price_band,omitempty"`
	DiscountBand  string   `json:"discount_band,omitempty"`
	Sort          string   `json:"sort"`
	ResultCount   int      `json:"result_count"`
}

// Publisher is the kafka producer surface the analytics producer needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// AnalyticsProducer publishes storefront analytics events to Kafka.
type AnalyticsProducer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewAnalyticsProducer creates a new analytics producer.
func NewAnalyticsProducer(kafka Publisher, logger *slog.Logger) *AnalyticsProducer {
	return &AnalyticsProducer{kafka: kafka, logger: logger}
}

// PublishSearchPerformed publishes a storefront.search.performed event.
func (p *AnalyticsProducer) PublishSearchPerformed(ctx context.Context, data SearchPerformedData) error {
	return p.publish(ctx, EventSearchPerformed, data.SessionID, data)
}

// PublishFiltersApplied publishes a storefront.filters.applied event.
func (p *AnalyticsProducer) PublishFiltersApplied(ctx context.Context, data FiltersAppliedData) error {
	return p.publish(ctx, EventFiltersApplied, data.SessionID, data)
}

func (p *AnalyticsProducer) publish(ctx context.Context, eventType, sessionID string, data any) error {
	event, err := pkgkafka.NewEvent(eventType, sessionID, AggregateTypeSession, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	if id := pkglogger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, TopicAnalytics, event); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.DebugContext(ctx, "published analytics event",
		slog.String("event_type", eventType),
		slog.String("session_id", sessionID),
	)
	return nil
}

// NopPublisher drops analytics events. Used when analytics is disabled.
type NopPublisher struct{}

// PublishSearchPerformed does nothing.
func (NopPublisher) PublishSearchPerformed(context.Context, SearchPerformedData) error { return nil }

// PublishFiltersApplied does nothing.
func (NopPublisher) PublishFiltersApplied(context.Context, FiltersAppliedData) error { return nil }
