package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"

	apperrors "github.com/utafrali/CosmeticsGo/pkg/errors"
	"github.com/utafrali/CosmeticsGo/pkg/httpclient"
	"github.com/utafrali/CosmeticsGo/pkg/middleware"
	"github.com/utafrali/CosmeticsGo/pkg/validator"
)

// Currency of every storefront price.
const Currency = "MAD"

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// AddItemInput is a product added to the cart from a storefront page.
// Price is in dirhams as shown on the page.
type AddItemInput struct {
	ProductID string  `json:"product_id" validate:"required,max=100"`
	Name      string  `json:"name" validate:"required,max=200"`
	Price     float64 `json:"price" validate:"gt=0"`
	Quantity  int     `json:"quantity" validate:"required,gt=0,lte=99"`
	ImageURL  string  `json:"image_url,omitempty" validate:"omitempty,url"`
}

// ShippingInfo is the delivery address collected by the checkout form.
type ShippingInfo struct {
	FullName    string `json:"full_name" validate:"required,max=100"`
	Phone       string `json:"phone" validate:"required,min=6,max=20"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	AddressLine string `json:"address_line" validate:"required,max=200"`
	City        string `json:"city" validate:"required,max=100"`
	PostalCode  string `json:"postal_code,omitempty" validate:"omitempty,max=10"`
	Country     string `json:"country" validate:"required,len=2"`
}

// CheckoutInput holds the parameters for placing an order.
type CheckoutInput struct {
	Shipping ShippingInfo `json:"shipping"`
	Notes    string       `json:"notes,omitempty" validate:"max=500"`
}

// CheckoutResult identifies the order created from the cart.
type CheckoutResult struct {
	OrderID        string `json:"order_id"`
	ItemCount      int    `json:"item_count"`
	SubtotalAmount int64  `json:"subtotal_amount"`
	Currency       string `json:"currency"`
}

type cartItem struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Name      string `json:"name"`
	SKU       string `json:"sku"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	ImageURL  string `json:"image_url,omitempty"`
}

type cart struct {
	Items    []cartItem `json:"items"`
	Currency string     `json:"currency"`
}

// CheckoutService forwards cart and order mutations to the cart and order
// services. It keeps no state of its own.
type CheckoutService struct {
	httpClient      HTTPDoer
	cartServiceURL  string
	orderServiceURL string
	logger          *slog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(httpClient HTTPDoer, cartServiceURL, orderServiceURL string, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{
		httpClient:      httpClient,
		cartServiceURL:  cartServiceURL,
		orderServiceURL: orderServiceURL,
		logger:          logger,
	}
}

// AddItem adds a product to the user's cart.
func (s *CheckoutService) AddItem(ctx context.Context, userID string, input *AddItemInput) error {
	if userID == "" {
		return apperrors.Unauthorized("user id is required")
	}
	if input == nil {
		return apperrors.InvalidInput("item is required")
	}
	if err := validator.Validate(input); err != nil {
		return err
	}

	item := cartItem{
		ProductID: input.ProductID,
		VariantID: input.ProductID,
		Name:      input.Name,
		SKU:       input.ProductID,
		Price:     toMinorUnits(input.Price),
		Quantity:  input.Quantity,
		ImageURL:  input.ImageURL,
	}
	if err := s.call(ctx, userID, http.MethodPost, s.cartServiceURL+"/api/v1/cart/items", "cart", item, nil); err != nil {
		return fmt.Errorf("add cart item: %w", err)
	}

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("user_id", userID),
		slog.String("product_id", input.ProductID),
		slog.Int("quantity", input.Quantity),
	)
	return nil
}

// Checkout places an order for the user's cart: it reads the cart, creates
// the order with the shipping info and clears the cart. A failure to clear
// the cart is logged only since the order already exists.
func (s *CheckoutService) Checkout(ctx context.Context, userID string, input *CheckoutInput) (*CheckoutResult, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("user id is required")
	}
	if input == nil {
		return nil, apperrors.InvalidInput("checkout input is required")
	}
	if err := validator.Validate(input); err != nil {
		return nil, err
	}

	var current cart
	if err := s.call(ctx, userID, http.MethodGet, s.cartServiceURL+"/api/v1/cart", "cart", nil, &current); err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if len(current.Items) == 0 {
		return nil, apperrors.InvalidInput("cart is empty")
	}
	if current.Currency == "" {
		current.Currency = Currency
	}

	var subtotal int64
	for _, item := range current.Items {
		subtotal += item.Price * int64(item.Quantity)
	}

	type createOrderRequest struct {
		UserID          string       `json:"user_id"`
		Items           []cartItem   `json:"items"`
		Currency        string       `json:"currency"`
		SubtotalAmount  int64        `json:"subtotal_amount"`
		TotalAmount     int64        `json:"total_amount"`
		ShippingAddress ShippingInfo `json:"shipping_address"`
		Notes           string       `json:"notes,omitempty"`
	}
	type createOrderResponse struct {
		ID string `json:"id"`
	}

	req := createOrderRequest{
		UserID:          userID,
		Items:           current.Items,
		Currency:        current.Currency,
		SubtotalAmount:  subtotal,
		TotalAmount:     subtotal,
		ShippingAddress: input.Shipping,
		Notes:           input.Notes,
	}
	var order createOrderResponse
	if err := s.call(ctx, userID, http.MethodPost, s.orderServiceURL+"/api/v1/orders", "order", req, &order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if order.ID == "" {
		return nil, apperrors.Upstream("order service returned no order id", nil)
	}

	if err := s.call(ctx, userID, http.MethodDelete, s.cartServiceURL+"/api/v1/cart", "cart", nil, nil); err != nil {
		s.logger.WarnContext(ctx, "failed to clear cart after checkout",
			slog.String("user_id", userID),
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("user_id", userID),
		slog.String("order_id", order.ID),
		slog.Int64("subtotal_amount", subtotal),
	)

	return &CheckoutResult{
		OrderID:        order.ID,
		ItemCount:      len(current.Items),
		SubtotalAmount: subtotal,
		Currency:       current.Currency,
	}, nil
}

// call sends body as JSON and decodes the data half of the response
// envelope into out. Either may be nil.
func (s *CheckoutService) call(ctx context.Context, userID, method, url, serviceName string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", serviceName, err)
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create %s request: %w", serviceName, err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set(middleware.UserHeader, userID)

	resp, err := s.httpClient.Do(ctx, httpReq)
	if err != nil {
		return apperrors.ServiceUnavailable(serviceName+" service is unavailable", err)
	}
	if !httpclient.IsSuccess(resp.StatusCode) {
		return httpclient.ParseResponseError(resp, serviceName)
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	envelope := struct {
		Data any `json:"data"`
	}{Data: out}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return apperrors.Upstream("decode "+serviceName+" response", err)
	}
	return nil
}

// toMinorUnits converts a dirham price to centimes.
func toMinorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}
