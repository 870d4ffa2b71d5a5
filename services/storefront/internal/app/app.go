package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/CosmeticsGo/pkg/database"
	"github.com/utafrali/CosmeticsGo/pkg/health"
	"github.com/utafrali/CosmeticsGo/pkg/httpclient"
	pkgkafka "github.com/utafrali/CosmeticsGo/pkg/kafka"
	"github.com/utafrali/CosmeticsGo/pkg/middleware"
	"github.com/utafrali/CosmeticsGo/pkg/tracing"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/config"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/event"
	handler "github.com/utafrali/CosmeticsGo/services/storefront/internal/handler/http"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/repository"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/repository/cache"
	esstore "github.com/utafrali/CosmeticsGo/services/storefront/internal/repository/elasticsearch"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/repository/memory"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/repository/postgres"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/service"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/session"
)

const (
	serviceName    = "storefront"
	serviceVersion = "0.1.0"
)

// catalogStore is what every backend offers: reads, writes and a ping.
type catalogStore interface {
	repository.CatalogRepository
	repository.CatalogWriter
	Ping(ctx context.Context) error
}

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	consumer       *pkgkafka.Consumer
	sessions       *session.Store
	storefront     *service.StorefrontService
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Tracing(serviceName))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	healthHandler := health.NewHandler()

	store, err := a.openCatalogStore(ctx, healthHandler)
	if err != nil {
		a.closeResources()
		return nil, err
	}

	// Lookup tables are small and rarely change, so they may sit in redis.
	var repo repository.CatalogRepository = store
	var invalidator event.CacheInvalidator
	if cfg.RedisEnabled && cfg.LookupCacheTTL() > 0 {
		client, err := database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			a.closeResources()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		lookupCache := cache.NewLookupCache(store, client, cfg.LookupCacheTTL(), logger)
		repo = lookupCache
		invalidator = lookupCache
		healthHandler.RegisterOptional("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		logger.Info("lookup cache enabled",
			slog.String("addr", cfg.Redis().Addr()),
			slog.Duration("ttl", cfg.LookupCacheTTL()),
		)
	}

	// Analytics events are optional; the storefront works without a broker.
	var analytics service.AnalyticsPublisher = event.NopPublisher{}
	if cfg.AnalyticsEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		analytics = event.NewAnalyticsProducer(a.producer, logger)
		healthHandler.RegisterOptional("kafka", a.producer.Ping)
		logger.Info("analytics producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	if cfg.CatalogEventsEnabled {
		catalogConsumer := event.NewCatalogConsumer(store, invalidator, logger)
		a.consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  cfg.KafkaConsumerGroup,
			Topics:   event.CatalogTopics(),
			MinBytes: 1,
			MaxBytes: 10e6, // 10 MB
		}, catalogConsumer.Handle, logger)
		logger.Info("catalog consumer initialized",
			slog.String("group", cfg.KafkaConsumerGroup),
			slog.Int("topic_count", len(event.CatalogTopics())),
		)
	}

	// Build the service layer.
	a.sessions = session.NewStore(cfg.SessionIdleTTL(), logger)
	a.storefront = service.NewStorefrontService(repo, a.sessions, analytics, service.Limits{
		Search: cfg.SearchFetchLimit,
		Browse: cfg.BrowseFetchLimit,
	}, logger)

	// Cart and order calls share one retrying client behind a single breaker.
	baseClient := httpclient.New(httpclient.DefaultConfig())
	checkoutService := service.NewCheckoutService(
		httpclient.NewCircuitBreakerClient(baseClient, cfg.CircuitBreaker("cart-order"), logger),
		cfg.CartServiceURL,
		cfg.OrderServiceURL,
		logger,
	)

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	router := handler.NewRouter(a.storefront, checkoutService, healthHandler, cors, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// openCatalogStore connects the configured backend and registers its health check.
func (a *App) openCatalogStore(ctx context.Context, healthHandler *health.Handler) (catalogStore, error) {
	cfg, logger := a.cfg, a.logger

	switch cfg.CatalogStore {
	case config.StorePostgres:
		pgCfg := cfg.Postgres()
		pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.pool = pool
		logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.PostgresHost),
			slog.Int("port", cfg.PostgresPort),
			slog.String("database", cfg.PostgresDB),
		)
		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
			logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
		}
		if cfg.SlowQueryThresholdMs > 0 {
			database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
		}

		if err := postgres.Migrate(ctx, pool, logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")

		repo := postgres.NewCatalogRepository(pool)
		healthHandler.Register("postgres", repo.Ping)
		return a.seed(ctx, repo)

	case config.StoreElasticsearch:
		store, err := esstore.New(ctx, cfg.ElasticsearchURL, cfg.ElasticsearchIndexPrefix, logger)
		if err != nil {
			return nil, fmt.Errorf("init elasticsearch store: %w", err)
		}
		logger.Info("elasticsearch catalog store initialized",
			slog.String("url", cfg.ElasticsearchURL),
			slog.String("index_prefix", cfg.ElasticsearchIndexPrefix),
		)
		healthHandler.Register("elasticsearch", store.Ping)
		return a.seed(ctx, store)

	default:
		store := memory.New()
		if err := loadFixture(store, cfg.CatalogFixturePath); err != nil {
			return nil, err
		}
		snap := store.Snapshot()
		logger.Info("in-memory catalog store loaded",
			slog.String("fixture", cfg.CatalogFixturePath),
			slog.Int("products", len(snap.Products)),
		)
		healthHandler.Register("catalog", store.Ping)
		return store, nil
	}
}

// seed copies the fixture into a persistent store when CATALOG_SEED is set.
func (a *App) seed(ctx context.Context, store catalogStore) (catalogStore, error) {
	if !a.cfg.SeedCatalog {
		return store, nil
	}

	fixture := memory.New()
	if err := loadFixture(fixture, a.cfg.CatalogFixturePath); err != nil {
		return nil, err
	}
	snap := fixture.Snapshot()

	if err := store.ReplaceLookups(ctx, snap.Brands, snap.Categories, snap.Subcategories); err != nil {
		return nil, fmt.Errorf("seed lookups: %w", err)
	}
	if err := store.UpsertProducts(ctx, snap.Products); err != nil {
		return nil, fmt.Errorf("seed products: %w", err)
	}

	a.logger.Info("catalog seeded from fixture",
		slog.String("fixture", a.cfg.CatalogFixturePath),
		slog.Int("products", len(snap.Products)),
		slog.Int("brands", len(snap.Brands)),
	)
	return store, nil
}

func loadFixture(store *memory.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open catalog fixture: %w", err)
	}
	defer f.Close()

	if err := store.LoadFixture(f); err != nil {
		return fmt.Errorf("load catalog fixture %s: %w", path, err)
	}
	return nil
}

// Run starts the HTTP server, the catalog consumer and the session sweeper,
// then blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go a.sessions.RunSweeper(ctx, a.cfg.SessionSweepInterval())

	if a.consumer != nil {
		go func() {
			if err := a.consumer.Start(ctx); err != nil {
				errCh <- fmt.Errorf("catalog consumer: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("catalog_store", a.cfg.CatalogStore),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// In-flight analytics events go out before the producer closes.
	a.storefront.Wait()

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("catalog consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	errs = append(errs, a.closeResources()...)

	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(shutdownCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeResources() []error {
	var errs []error
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errs
}
