package database

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/utafrali/CosmeticsGo/pkg/database"

var slowQuery struct {
	mu        sync.RWMutex
	threshold time.Duration
	logger    *slog.Logger
}

// SetSlowQueryLogging logs queries slower than threshold at warn level.
// A zero threshold disables it.
func SetSlowQueryLogging(threshold time.Duration, logger *slog.Logger) {
	slowQuery.mu.Lock()
	defer slowQuery.mu.Unlock()
	slowQuery.threshold = threshold
	slowQuery.logger = logger
}

// TraceQuery starts a client span for one database operation. Call the
// returned func with the operation's error when it completes:
//
//	ctx, end := database.TraceQuery(ctx, "ListProducts", query)
//	defer func() { end(err) }()
func TraceQuery(ctx context.Context, operation, statement string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", operation),
			attribute.String("db.statement", statement),
		),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		slowQuery.mu.RLock()
		threshold, logger := slowQuery.threshold, slowQuery.logger
		slowQuery.mu.RUnlock()
		if threshold <= 0 || logger == nil {
			return
		}
		if elapsed := time.Since(start); elapsed >= threshold {
			logger.WarnContext(ctx, "slow query",
				slog.String("operation", operation),
				slog.Duration("duration", elapsed),
			)
		}
	}
}
