package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// HeaderCarrier adapts kafka message headers to the OpenTelemetry
// TextMapCarrier interface so trace context travels with events.
type HeaderCarrier struct {
	headers *[]kafka.Header
}

// NewHeaderCarrier wraps headers. Set mutates the slice in place.
func NewHeaderCarrier(headers *[]kafka.Header) *HeaderCarrier {
	return &HeaderCarrier{headers: headers}
}

var _ propagation.TextMapCarrier = (*HeaderCarrier)(nil)

// Get returns the value of key, or "".
func (c *HeaderCarrier) Get(key string) string {
	for _, h := range *c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// Set replaces or appends key.
func (c *HeaderCarrier) Set(key, value string) {
	for i, h := range *c.headers {
		if h.Key == key {
			(*c.headers)[i].Value = []byte(value)
			return
		}
	}
	*c.headers = append(*c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

// Keys lists every header key.
func (c *HeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(*c.headers))
	for _, h := range *c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

// InjectTraceContext writes the span context of ctx into msg's headers.
func InjectTraceContext(ctx context.Context, msg *kafka.Message) {
	otel.GetTextMapPropagator().Inject(ctx, NewHeaderCarrier(&msg.Headers))
}

// ExtractTraceContext returns ctx carrying the span context found in msg.
func ExtractTraceContext(ctx context.Context, msg kafka.Message) context.Context {
	headers := msg.Headers
	return otel.GetTextMapPropagator().Extract(ctx, NewHeaderCarrier(&headers))
}
