package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/utafrali/CosmeticsGo/pkg/errors"
	"github.com/utafrali/CosmeticsGo/pkg/httputil"
	"github.com/utafrali/CosmeticsGo/pkg/logger"
	"github.com/utafrali/CosmeticsGo/pkg/pagination"
	"github.com/utafrali/CosmeticsGo/pkg/validator"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/domain"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/facet"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/service"
)

// StorefrontHandler handles HTTP requests for storefront pages and sessions.
type StorefrontHandler struct {
	service *service.StorefrontService
	logger  *slog.Logger
}

// NewStorefrontHandler creates a new storefront HTTP handler.
func NewStorefrontHandler(svc *service.StorefrontService, logger *slog.Logger) *StorefrontHandler {
	return &StorefrontHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// OpenSessionRequest is the JSON request body for opening a page session.
type OpenSessionRequest struct {
	Page        string       `json:"page" validate:"required,oneof=search category subcategory promotions"`
	Query       string       `json:"query" validate:"max=200"`
	Category    string       `json:"category" validate:"max=100"`
	Subcategory string       `json:"subcategory" validate:"max=100"`
	Selection   facet.Values `json:"selection"`
}

// ToggleRequest is the JSON request body for toggling a facet value.
type ToggleRequest struct {
	Facet string `json:"facet" validate:"required,oneof=brand category subcategory"`
	Value string `json:"value" validate:"required,max=200"`
}

// BandRequest is the JSON request body for selecting a band. An empty band
// clears the selection.
type BandRequest struct {
	Band string `json:"band" validate:"max=50"`
}

// SortRequest is the JSON request body for changing the sort order.
type SortRequest struct {
	Sort string `json:"sort" validate:"required"`
}

// BandsResponse lists the fixed price and discount bands.
type BandsResponse struct {
	PriceBands    []domain.Band `json:"price_bands"`
	DiscountBands []domain.Band `json:"discount_bands"`
}

// --- Stateless pages ---

// Search handles GET /api/v1/storefront/search
func (h *StorefrontHandler) Search(w http.ResponseWriter, r *http.Request) {
	h.browse(w, r, service.PageRequest{
		Page:  domain.PageSearch,
		Query: strings.TrimSpace(r.URL.Query().Get("q")),
	})
}

// Category handles GET /api/v1/storefront/categories/{category}
func (h *StorefrontHandler) Category(w http.ResponseWriter, r *http.Request) {
	h.browse(w, r, service.PageRequest{
		Page:     domain.PageCategory,
		Category: chi.URLParam(r, "category"),
	})
}

// Subcategory handles GET /api/v1/storefront/categories/{category}/{subcategory}
func (h *StorefrontHandler) Subcategory(w http.ResponseWriter, r *http.Request) {
	h.browse(w, r, service.PageRequest{
		Page:        domain.PageSubcategory,
		Category:    chi.URLParam(r, "category"),
		Subcategory: chi.URLParam(r, "subcategory"),
	})
}

// Promotions handles GET /api/v1/storefront/promotions
func (h *StorefrontHandler) Promotions(w http.ResponseWriter, r *http.Request) {
	h.browse(w, r, service.PageRequest{Page: domain.PagePromotions})
}

// Bands handles GET /api/v1/storefront/facets/bands
func (h *StorefrontHandler) Bands(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteData(w, BandsResponse{
		PriceBands:    domain.PriceBands,
		DiscountBands: domain.DiscountBands,
	}, nil)
}

func (h *StorefrontHandler) browse(w http.ResponseWriter, r *http.Request, req service.PageRequest) {
	view, err := h.service.Browse(r.Context(), req, selectionFromQuery(r), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, view, nil)
}

// selectionFromQuery reads facet values from the query string. Multi-select
// facets repeat their parameter, e.g. ?brand=Nivea&brand=Vichy.
func selectionFromQuery(r *http.Request) facet.Values {
	q := r.URL.Query()
	return facet.Values{
		Brands:        nonEmpty(q["brand"]),
		Categories:    nonEmpty(q["category"]),
		Subcategories: nonEmpty(q["subcategory"]),
		PriceBand:     q.Get("price"),
		DiscountBand:  q.Get("discount"),
		Sort:          q.Get("sort"),
	}
}

func nonEmpty(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// --- Sessions ---

// OpenSession handles POST /api/v1/storefront/sessions
func (h *StorefrontHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	view, err := h.service.OpenSession(r.Context(), service.PageRequest{
		Page:        domain.PageKind(req.Page),
		Query:       strings.TrimSpace(req.Query),
		Category:    req.Category,
		Subcategory: req.Subcategory,
	}, req.Selection, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Location", "/api/v1/storefront/sessions/"+view.SessionID)
	writeView(w, r, http.StatusCreated, view)
}

// GetSession handles GET /api/v1/storefront/sessions/{id}
func (h *StorefrontHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetSessionView(r.Context(), chi.URLParam(r, "id"), pagination.FromRequest(r))
	h.respond(w, r, view, err)
}

// CloseSession handles DELETE /api/v1/storefront/sessions/{id}
func (h *StorefrontHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CloseSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Toggle handles POST /api/v1/storefront/sessions/{id}/toggle
func (h *StorefrontHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req ToggleRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	view, err := h.service.Toggle(r.Context(), chi.URLParam(r, "id"), facet.Facet(req.Facet), req.Value, pagination.FromRequest(r))
	h.respond(w, r, view, err)
}

// SetPriceBand handles PUT /api/v1/storefront/sessions/{id}/price-band
func (h *StorefrontHandler) SetPriceBand(w http.ResponseWriter, r *http.Request) {
	var req BandRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	view, err := h.service.SetPriceBand(r.Context(), chi.URLParam(r, "id"), req.Band, pagination.FromRequest(r))
	h.respond(w, r, view, err)
}

// SetDiscountBand handles PUT /api/v1/storefront/sessions/{id}/discount-band
func (h *StorefrontHandler) SetDiscountBand(w http.ResponseWriter, r *http.Request) {
	var req BandRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	view, err := h.service.SetDiscountBand(r.Context(), chi.URLParam(r, "id"), req.Band, pagination.FromRequest(r))
	h.respond(w, r, view, err)
}

// SetSort handles PUT /api/v1/storefront/sessions/{id}/sort
func (h *StorefrontHandler) SetSort(w http.ResponseWriter, r *http.Request) {
	var req SortRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	view, err := h.service.SetSort(r.Context(), chi.URLParam(r, "id"), domain.SortKey(req.Sort), pagination.FromRequest(r))
	h.respond(w, r, view, err)
}

// Reset handles POST /api/v1/storefront/sessions/{id}/reset
func (h *StorefrontHandler) Reset(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Reset(r.Context(), chi.URLParam(r, "id"), pagination.FromRequest(r))
	h.respond(w, r, view, err)
}

// Reload handles POST /api/v1/storefront/sessions/{id}/reload
func (h *StorefrontHandler) Reload(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Reload(r.Context(), chi.URLParam(r, "id"), pagination.FromRequest(r))
	h.respond(w, r, view, err)
}

func (h *StorefrontHandler) respond(w http.ResponseWriter, r *http.Request, view *service.PageView, err error) {
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeView(w, r, http.StatusOK, view)
}

// writeView answers with the page view. A view whose catalog load failed is
// sent with 503 and a retryable error next to it so clients can offer a
// reload of the same session.
func writeView(w http.ResponseWriter, r *http.Request, status int, view *service.PageView) {
	if view.State == service.StateUnavailable {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, httputil.Response{
			Data: view,
			Error: &httputil.ErrorResponse{
				Code:      "CATALOG_UNAVAILABLE",
				Message:   "catalog is temporarily unavailable",
				RequestID: logger.CorrelationIDFromContext(r.Context()),
				Retryable: true,
			},
		})
		return
	}
	httputil.WriteJSON(w, status, httputil.Response{Data: view})
}

// decode reads and validates a JSON body. Malformed bodies are reported as
// invalid input rather than internal errors.
func decode(r *http.Request, dst any) error {
	err := validator.DecodeAndValidate(r, dst)
	if err == nil {
		return nil
	}
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		return err
	}
	return apperrors.InvalidInput("invalid request body")
}
