package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/utafrali/CosmeticsGo/pkg/errors"
	pkglogger "github.com/utafrali/CosmeticsGo/pkg/logger"
	"github.com/utafrali/CosmeticsGo/pkg/pagination"
	"github.com/utafrali/CosmeticsGo/pkg/tracing"
	"github.com/utafrali/CosmeticsGo/pkg/validator"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/domain"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/event"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/facet"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/pipeline"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/relevance"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/repository"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/session"
)

const (
	// DefaultSearchLimit caps the product fetch behind a search page.
	DefaultSearchLimit = 1000
	// DefaultBrowseLimit caps the product fetch behind category and promotion pages.
	DefaultBrowseLimit = 500

	analyticsTimeout = 5 * time.Second
	topProductIDs    = 10
)

var (
	pipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_pipeline_duration_seconds",
			Help:    "Time spent filtering and sorting a page's candidates",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
		[]string{"page"},
	)

	catalogFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_catalog_fetch_errors_total",
			Help: "Failed catalog store reads, by collection",
		},
		[]string{"collection"},
	)

	resultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_results_total",
			Help: "Rendered storefront pages, by page kind and state",
		},
		[]string{"page", "state"},
	)
)

// AnalyticsPublisher receives the side-channel events emitted after a page
// is computed. Failures never affect the page.
type AnalyticsPublisher interface {
	PublishSearchPerformed(ctx context.Context, data event.SearchPerformedData) error
	PublishFiltersApplied(ctx context.Context, data event.FiltersAppliedData) error
}

// Limits holds the product fetch caps per page family.
type Limits struct {
	Search int
	Browse int
}

// PageRequest identifies the page whose candidates are loaded.
type PageRequest struct {
	Page        domain.PageKind `json:"page"`
	Query       string          `json:"query,omitempty" validate:"max=200"`
	Category    string          `json:"category,omitempty" validate:"max=100"`
	Subcategory string          `json:"subcategory,omitempty" validate:"max=100"`
}

// Validate checks that the page kind is known and that the scope matches it.
func (r *PageRequest) Validate() error {
	if _, err := domain.ParsePageKind(string(r.Page)); err != nil {
		return apperrors.InvalidInput(err.Error())
	}
	if err := validator.Validate(r); err != nil {
		return err
	}

	switch r.Page {
	case domain.PageCategory:
		if r.Category == "" {
			return apperrors.InvalidInput("category is required")
		}
		if r.Subcategory != "" {
			return apperrors.InvalidInput("subcategory is not valid on a category page")
		}
	case domain.PageSubcategory:
		if r.Category == "" || r.Subcategory == "" {
			return apperrors.InvalidInput("category and subcategory are required")
		}
	default:
		if r.Category != "" || r.Subcategory != "" {
			return apperrors.InvalidInput("category scope is only valid on category pages")
		}
	}
	return nil
}

// Scope returns the category scope of the page.
func (r *PageRequest) Scope() domain.Scope {
	return domain.Scope{Category: r.Category, Subcategory: r.Subcategory}
}

// PageState tells a result list apart from an empty list and from an error.
type PageState string

const (
	StateReady       PageState = "ready"
	StateNoResults   PageState = "no_results"
	StateUnavailable PageState = "unavailable"
)

// PageView is everything a storefront page renders: the facet options, the
// current selection and one window of the final product list.
type PageView struct {
	SessionID      string                 `json:"session_id,omitempty"`
	Page           domain.PageKind        `json:"page"`
	Query          string                 `json:"query,omitempty"`
	Category       string                 `json:"category,omitempty"`
	Subcategory    string                 `json:"subcategory,omitempty"`
	Title          string                 `json:"title,omitempty"`
	State          PageState              `json:"state"`
	NoResults      bool                   `json:"no_results"`
	Selection      facet.Values           `json:"selection"`
	Options        facet.Options          `json:"options"`
	Products       []domain.ScoredProduct `json:"products"`
	Pagination     pagination.Meta        `json:"pagination"`
	CandidateCount int                    `json:"candidate_count"`
	LoadedAt       time.Time              `json:"loaded_at"`
}

// StorefrontService computes storefront pages: it loads candidates from the
// catalog store, runs the facet pipeline and keeps page sessions.
type StorefrontService struct {
	repo      repository.CatalogRepository
	sessions  *session.Store
	analytics AnalyticsPublisher
	limits    Limits
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time

	pending sync.WaitGroup
}

// NewStorefrontService creates a new storefront service. Zero limits fall
// back to the defaults; analytics may be nil.
func NewStorefrontService(
	repo repository.CatalogRepository,
	sessions *session.Store,
	analytics AnalyticsPublisher,
	limits Limits,
	logger *slog.Logger,
) *StorefrontService {
	if limits.Search <= 0 {
		limits.Search = DefaultSearchLimit
	}
	if limits.Browse <= 0 {
		limits.Browse = DefaultBrowseLimit
	}
	limits.Search = min(limits.Search, repository.MaxProductLimit)
	limits.Browse = min(limits.Browse, repository.MaxProductLimit)

	return &StorefrontService{
		repo:      repo,
		sessions:  sessions,
		analytics: analytics,
		limits:    limits,
		logger:    logger,
		tracer:    tracing.Tracer("storefront/service"),
		now:       time.Now,
	}
}

// LoadCandidates fetches the products and lookup tables a page works on.
// Search pages are ranked against the query, promotion pages keep on-sale
// products and category pages pass the scoped products through. Any failed
// read fails the whole load; there are no partial results.
func (s *StorefrontService) LoadCandidates(ctx context.Context, req PageRequest) (session.Loaded, error) {
	ctx, span := s.tracer.Start(ctx, "StorefrontService.LoadCandidates",
		trace.WithAttributes(attribute.String("storefront.page", string(req.Page))),
	)
	defer span.End()

	q := repository.ProductQuery{Limit: s.limits.Browse}
	switch req.Page {
	case domain.PageSearch:
		if len([]rune(strings.TrimSpace(req.Query))) < relevance.MinQueryLength {
			// Nothing to search for, not an error.
			return session.Loaded{Candidates: []domain.ScoredProduct{}}, nil
		}
		q.Limit = s.limits.Search
	case domain.PageCategory:
		q.CategorySlug = req.Category
	case domain.PageSubcategory:
		q.CategorySlug = req.Category
		q.SubcategorySlug = req.Subcategory
	case domain.PagePromotions:
		q.OnSale = true
	}

	products, err := s.repo.ListProducts(ctx, q)
	if err != nil {
		return s.fetchFailed(ctx, span, "products", err)
	}
	brands, err := s.repo.ListBrands(ctx)
	if err != nil {
		return s.fetchFailed(ctx, span, "brands", err)
	}
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return s.fetchFailed(ctx, span, "categories", err)
	}
	subcategories, err := s.repo.ListSubcategories(ctx)
	if err != nil {
		return s.fetchFailed(ctx, span, "subcategories", err)
	}
	catalog := domain.NewCatalog(brands, categories, subcategories)

	var candidates []domain.ScoredProduct
	switch req.Page {
	case domain.PageSearch:
		candidates = relevance.Rank(req.Query, products, catalog)
	case domain.PagePromotions:
		onSale := products[:0:0]
		for _, p := range products {
			if p.IsOnSale() {
				onSale = append(onSale, p)
			}
		}
		candidates = domain.Unscored(onSale)
	default:
		candidates = domain.Unscored(products)
	}

	span.SetAttributes(
		attribute.Int("storefront.fetched", len(products)),
		attribute.Int("storefront.candidates", len(candidates)),
	)
	return session.Loaded{Candidates: candidates, Catalog: catalog}, nil
}

func (s *StorefrontService) fetchFailed(ctx context.Context, span trace.Span, collection string, err error) (session.Loaded, error) {
	catalogFetchErrors.WithLabelValues(collection).Inc()
	tracing.RecordError(span, err)
	s.logger.ErrorContext(ctx, "catalog fetch failed",
		slog.String("collection", collection),
		slog.String("error", err.Error()),
	)
	return session.Loaded{}, apperrors.ServiceUnavailable("catalog is temporarily unavailable", err)
}

// View runs the pipeline over a snapshot and renders the requested window.
func (s *StorefrontService) View(ctx context.Context, snap session.Snapshot, params pagination.Params) *PageView {
	return s.view(ctx, snap, params, false)
}

func (s *StorefrontService) view(ctx context.Context, snap session.Snapshot, params pagination.Params, fresh bool) *PageView {
	results := observe(snap.Page, func() []domain.ScoredProduct {
		return pipeline.Apply(pipeline.Input{
			Candidates: snap.Candidates,
			Selection:  snap.Selection,
			Catalog:    snap.Catalog,
			Scope:      snap.Scope,
		})
	})
	return s.render(ctx, snap, results, params, fresh)
}

// Browse loads and renders a page in one call without keeping a session.
func (s *StorefrontService) Browse(ctx context.Context, req PageRequest, values facet.Values, params pagination.Params) (*PageView, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	sel, err := facet.FromValues(req.Page, values)
	if err != nil {
		return nil, selectionError(err)
	}

	loaded, err := s.LoadCandidates(ctx, req)
	if err != nil {
		return nil, err
	}

	snap := session.Snapshot{
		Page:       req.Page,
		Query:      req.Query,
		Scope:      req.Scope(),
		Selection:  sel,
		Candidates: loaded.Candidates,
		Catalog:    loaded.Catalog,
		LoadedAt:   s.now().UTC(),
	}
	return s.view(ctx, snap, params, true), nil
}

// OpenSession creates a page session, loads its candidates and renders the
// first view. A failed load still opens the session, in the unavailable
// state, so the client can retry with Reload.
func (s *StorefrontService) OpenSession(ctx context.Context, req PageRequest, values facet.Values, params pagination.Params) (*PageView, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	sel, err := facet.FromValues(req.Page, values)
	if err != nil {
		return nil, selectionError(err)
	}

	sess := s.sessions.Create(req.Page, req.Query, req.Scope())
	sess.SetSelection(sel)
	s.load(ctx, sess)

	s.logger.InfoContext(ctx, "storefront session opened",
		slog.String("session_id", sess.ID),
		slog.String("page", string(req.Page)),
	)
	return s.sessionView(ctx, sess, params, true), nil
}

// GetSessionView renders the current state of a session.
func (s *StorefrontService) GetSessionView(ctx context.Context, id string, params pagination.Params) (*PageView, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	return s.sessionView(ctx, sess, params, false), nil
}

// Toggle adds or removes one value of a multi-select facet.
func (s *StorefrontService) Toggle(ctx context.Context, id string, f facet.Facet, value string, params pagination.Params) (*PageView, error) {
	if value == "" {
		return nil, apperrors.InvalidInput("value is required")
	}
	return s.update(ctx, id, params, func(sel *facet.Selection) error {
		return sel.Toggle(f, value)
	})
}

// SetPriceBand selects a price band by label. An empty label clears it.
func (s *StorefrontService) SetPriceBand(ctx context.Context, id, label string, params pagination.Params) (*PageView, error) {
	return s.update(ctx, id, params, func(sel *facet.Selection) error {
		return sel.SetPriceBand(label)
	})
}

// SetDiscountBand selects a discount band by label. An empty label clears it.
func (s *StorefrontService) SetDiscountBand(ctx context.Context, id, label string, params pagination.Params) (*PageView, error) {
	return s.update(ctx, id, params, func(sel *facet.Selection) error {
		return sel.SetDiscountBand(label)
	})
}

// SetSort changes the sort order of a session.
func (s *StorefrontService) SetSort(ctx context.Context, id string, key domain.SortKey, params pagination.Params) (*PageView, error) {
	return s.update(ctx, id, params, func(sel *facet.Selection) error {
		return sel.SetSort(key)
	})
}

// Reset clears every facet and restores the page's default sort.
func (s *StorefrontService) Reset(ctx context.Context, id string, params pagination.Params) (*PageView, error) {
	return s.update(ctx, id, params, func(sel *facet.Selection) error {
		sel.ResetAll()
		return nil
	})
}

// Reload fetches the session's candidates again, keeping its selection.
func (s *StorefrontService) Reload(ctx context.Context, id string, params pagination.Params) (*PageView, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	s.load(ctx, sess)
	return s.sessionView(ctx, sess, params, true), nil
}

// CloseSession discards a session.
func (s *StorefrontService) CloseSession(ctx context.Context, id string) error {
	if !s.sessions.Delete(id) {
		return apperrors.NotFound("session", id)
	}
	s.logger.DebugContext(ctx, "storefront session closed", slog.String("session_id", id))
	return nil
}

// Wait blocks until in-flight analytics events are handed to the publisher.
func (s *StorefrontService) Wait() {
	s.pending.Wait()
}

func (s *StorefrontService) session(id string) (*session.Session, error) {
	sess, err := s.sessions.Get(id)
	if errors.Is(err, session.ErrNotFound) {
		return nil, apperrors.NotFound("session", id)
	}
	return sess, err
}

func (s *StorefrontService) update(ctx context.Context, id string, params pagination.Params, fn func(*facet.Selection) error) (*PageView, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	if err := sess.Update(fn); err != nil {
		return nil, selectionError(err)
	}
	return s.sessionView(ctx, sess, params, false), nil
}

func (s *StorefrontService) load(ctx context.Context, sess *session.Session) {
	ctx = pkglogger.WithSessionID(ctx, sess.ID)
	req := PageRequest{
		Page:        sess.Page,
		Query:       sess.Query,
		Category:    sess.Scope.Category,
		Subcategory: sess.Scope.Subcategory,
	}
	loaded, err := s.LoadCandidates(ctx, req)
	if err != nil {
		pkglogger.WithContext(ctx, s.logger).WarnContext(ctx, "session left unavailable",
			slog.String("page", string(sess.Page)),
			slog.String("error", err.Error()),
		)
		sess.SetFailed(err)
		return
	}
	sess.SetLoaded(loaded, s.now().UTC())
}

func (s *StorefrontService) sessionView(ctx context.Context, sess *session.Session, params pagination.Params, fresh bool) *PageView {
	var snap session.Snapshot
	results := observe(sess.Page, func() []domain.ScoredProduct {
		var r []domain.ScoredProduct
		snap, r, _ = sess.Render()
		return r
	})
	return s.render(ctx, snap, results, params, fresh)
}

// render builds the view for snap. fresh marks a view produced right after
// a load, which is when a search counts as performed.
func (s *StorefrontService) render(ctx context.Context, snap session.Snapshot, results []domain.ScoredProduct, params pagination.Params, fresh bool) *PageView {
	v := &PageView{
		SessionID:   snap.ID,
		Page:        snap.Page,
		Query:       snap.Query,
		Category:    snap.Scope.Category,
		Subcategory: snap.Scope.Subcategory,
		Selection:   snap.Selection.Values(),
		LoadedAt:    snap.LoadedAt,
	}

	if snap.LoadErr != nil {
		v.State = StateUnavailable
		v.Products = []domain.ScoredProduct{}
		v.Options = facet.BuildOptions(snap.Page, nil, nil, snap.Scope)
		v.Pagination = pagination.Meta{Page: 1, PerPage: params.PerPage}
		resultsTotal.WithLabelValues(string(snap.Page), string(v.State)).Inc()
		return v
	}

	v.Title = title(snap)
	v.Options = facet.BuildOptions(snap.Page, snap.Candidates, snap.Catalog, snap.Scope)
	v.CandidateCount = len(snap.Candidates)
	v.Products, v.Pagination = pagination.Slice(results, params)
	if len(results) == 0 {
		v.State = StateNoResults
		v.NoResults = true
	} else {
		v.State = StateReady
	}
	resultsTotal.WithLabelValues(string(snap.Page), string(v.State)).Inc()

	if fresh && snap.Page == domain.PageSearch {
		s.emitSearchPerformed(ctx, snap, results)
	}
	if snap.Selection.Active() {
		s.emitFiltersApplied(ctx, snap, len(results))
	}
	return v
}

func title(snap session.Snapshot) string {
	switch snap.Page {
	case domain.PageSearch:
		return snap.Query
	case domain.PageCategory:
		return snap.Catalog.CategoryName(snap.Scope.Category)
	case domain.PageSubcategory:
		return snap.Catalog.SubcategoryName(snap.Scope.Subcategory)
	default:
		return ""
	}
}

func (s *StorefrontService) emitSearchPerformed(ctx context.Context, snap session.Snapshot, results []domain.ScoredProduct) {
	data := event.SearchPerformedData{
		SessionID:      snap.ID,
		Query:          snap.Query,
		CandidateCount: len(snap.Candidates),
		ResultCount:    len(results),
	}
	for i := range min(len(results), topProductIDs) {
		data.TopProductIDs = append(data.TopProductIDs, results[i].ID)
	}
	s.publish(ctx, event.EventSearchPerformed, func(ctx context.Context) error {
		return s.analytics.PublishSearchPerformed(ctx, data)
	})
}

func (s *StorefrontService) emitFiltersApplied(ctx context.Context, snap session.Snapshot, resultCount int) {
	values := snap.Selection.Values()
	data := event.FiltersAppliedData{
		SessionID:     snap.ID,
		Page:          string(snap.Page),
		Query:         snap.Query,
		Category:      snap.Scope.Category,
		Subcategory:   snap.Scope.Subcategory,
		Brands:        values.Brands,
		Categories:    values.Categories,
		Subcategories: values.Subcategories,
		PriceBand:     values.PriceBand,
		DiscountBand:  values.DiscountBand,
		Sort:          values.Sort,
		ResultCount:   resultCount,
	}
	s.publish(ctx, event.EventFiltersApplied, func(ctx context.Context) error {
		return s.analytics.PublishFiltersApplied(ctx, data)
	})
}

// publish runs fn in the background, detached from the request's
// cancellation. Errors are logged and dropped.
func (s *StorefrontService) publish(ctx context.Context, eventType string, fn func(context.Context) error) {
	if s.analytics == nil {
		return
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), analyticsTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			s.logger.WarnContext(ctx, "failed to publish analytics event",
				slog.String("event_type", eventType),
				slog.String("error", err.Error()),
			)
		}
	}()
}

func observe(page domain.PageKind, fn func() []domain.ScoredProduct) []domain.ScoredProduct {
	start := time.Now()
	out := fn()
	pipelineDuration.WithLabelValues(string(page)).Observe(time.Since(start).Seconds())
	return out
}

func selectionError(err error) error {
	switch {
	case errors.Is(err, facet.ErrUnknownBand),
		errors.Is(err, facet.ErrFacetUnavailable),
		errors.Is(err, facet.ErrUnknownSort),
		errors.Is(err, facet.ErrUnknownFacet):
		return apperrors.InvalidInput(err.Error())
	default:
		return err
	}
}
