package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func header(msg kafka.Message, key string) string {
	return NewHeaderCarrier(&msg.Headers).Get(key)
}

func TestProducer_Publish(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, nil, discardLogger())

	event, err := NewEvent("storefront.filters.applied", "sess-1", "session", "storefront-service", map[string]int{"results": 3})
	require.NoError(t, err)
	event.WithCorrelationID("corr-1")

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	require.NoError(t, p.Publish(ctx, "ecommerce.storefront.filters", event))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "ecommerce.storefront.filters", msg.Topic)
	assert.Equal(t, "sess-1", string(msg.Key))
	assert.Equal(t, "storefront.filters.applied", header(msg, "event_type"))
	assert.Equal(t, "corr-1", header(msg, "correlation_id"))
	assert.Contains(t, header(msg, "traceparent"), "4bf92f3577b34da6a3ce929d0e0e4736")

	decoded, err := UnmarshalEvent(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, event.EventID, decoded.EventID)
}

func TestProducer_PublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := NewProducerWithWriter(w, nil, discardLogger())

	event, _ := NewEvent("x", "a", "b", "c", nil)
	err := p.Publish(context.Background(), "t", event)
	assert.ErrorContains(t, err, "broker down")
}

func TestProducer_PingWithoutBrokers(t *testing.T) {
	p := NewProducerWithWriter(&fakeWriter{}, nil, discardLogger())
	assert.ErrorContains(t, p.Ping(context.Background()), "no brokers")
}

func TestProducer_Close(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, NewProducerWithWriter(w, nil, discardLogger()).Close())
	assert.True(t, w.closed)
}

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []kafka.Message
	closed    int
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		msg := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
	return nil
}

func (r *fakeReader) committedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

func encoded(t *testing.T, eventType string) kafka.Message {
	t.Helper()
	event, err := NewEvent(eventType, "p1", "product", "product-service", map[string]string{"id": "p1"})
	require.NoError(t, err)
	data, err := event.Marshal()
	require.NoError(t, err)
	return kafka.Message{Topic: "ecommerce.product.updated", Value: data}
}

func TestConsumer_HandlesAndCommits(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		encoded(t, "product.updated"),
		{Topic: "ecommerce.product.updated", Value: []byte("garbage")},
		encoded(t, "product.deleted"),
	}}

	var mu sync.Mutex
	var seen []string
	c := NewConsumerWithReader(reader, func(_ context.Context, e *Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.EventType)
		return nil
	}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return reader.committedCount() == 3 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"product.updated", "product.deleted"}, seen)
	assert.Equal(t, 1, reader.closed)
}

func TestConsumer_RetriesThenSkips(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{encoded(t, "product.updated")}}

	var mu sync.Mutex
	attempts := 0
	c := NewConsumerWithReader(reader, func(context.Context, *Event) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		return errors.New("cache unavailable")
	}, discardLogger())
	c.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return reader.committedCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, maxHandlerRetries, attempts)
}

func TestHeaderCarrier(t *testing.T) {
	headers := []kafka.Header{{Key: "existing", Value: []byte("v1")}}
	c := NewHeaderCarrier(&headers)

	assert.Equal(t, "v1", c.Get("existing"))
	assert.Empty(t, c.Get("missing"))

	c.Set("existing", "v2")
	c.Set("new", "v3")
	assert.Equal(t, "v2", c.Get("existing"))
	assert.ElementsMatch(t, []string{"existing", "new"}, c.Keys())
	assert.Len(t, headers, 2)
}

func TestTraceContextRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	var msg kafka.Message
	InjectTraceContext(ctx, &msg)
	out := trace.SpanContextFromContext(ExtractTraceContext(context.Background(), msg))

	assert.Equal(t, traceID, out.TraceID())
	assert.True(t, out.IsRemote())
}
