package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/CosmeticsGo/pkg/httputil"
	"github.com/utafrali/CosmeticsGo/pkg/middleware"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/service"
)

// CheckoutHandler handles HTTP requests for cart and checkout endpoints.
type CheckoutHandler struct {
	service *service.CheckoutService
	logger  *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(svc *service.CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: svc,
		logger:  logger,
	}
}

// AddItem handles POST /api/v1/storefront/cart/items
func (h *CheckoutHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req service.AddItemInput
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := h.service.AddItem(r.Context(), middleware.UserIDFromContext(r.Context()), &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: req})
}

// Checkout handles POST /api/v1/storefront/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req service.CheckoutInput
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	result, err := h.service.Checkout(r.Context(), middleware.UserIDFromContext(r.Context()), &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: result})
}
