package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Haseeb71/zagro-storefront/pkg/validator"

	"github.com/Haseeb71/zagro-storefront/internal/service"
)

// CartHandler handles HTTP requests for cart and coupon endpoints.
type CartHandler struct {
	service *service.CartService
	coupons *service.CouponService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, coupons *service.CouponService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		coupons: coupons,
		logger:  logger,
	}
}

// --- Request DTOs ---

// ProductPayload is the product snapshot in an add-item request.
type ProductPayload struct {
	ID            string          `json:"id" validate:"required"`
	Name          string          `json:"name" validate:"required,min=1,max=500"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Brand         string          `json:"brand" validate:"max=200"`
	Category      string          `json:"category" validate:"max=200"`
	Rating        float64         `json:"rating" validate:"gte=0,lte=5"`
	ImageURL      string          `json:"image_url"`
	OnSale        bool            `json:"on_sale"`
	Featured      bool            `json:"featured"`
}

// AddItemRequest is the JSON request body for adding an item to the cart.
type AddItemRequest struct {
	Product       ProductPayload `json:"product"`
	Quantity      int            `json:"quantity" validate:"gte=0,lte=100"`
	SelectedSize  string         `json:"selected_size" validate:"max=100"`
	SelectedColor string         `json:"selected_color" validate:"max=100"`
	SelectedImage string         `json:"selected_image"`
}

// UpdateQuantityRequest is the JSON request body for updating a line's quantity.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"lte=100"`
}

// UpdateDetailsRequest is the JSON request body for replacing a line's selection.
type UpdateDetailsRequest struct {
	SelectedSize  string `json:"selected_size" validate:"max=100"`
	SelectedColor string `json:"selected_color" validate:"max=100"`
	SelectedImage string `json:"selected_image"`
}

// ApplyCouponRequest is the JSON request body for applying a coupon code.
type ApplyCouponRequest struct {
	Code string `json:"code" validate:"required,min=1,max=100"`
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	cart, err := h.service.GetCart(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: cart})
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	input := service.AddItemInput{
		Product: service.ProductInput{
			ID:            req.Product.ID,
			Name:          req.Product.Name,
			Price:         req.Product.Price,
			OriginalPrice: req.Product.OriginalPrice,
			Brand:         req.Product.Brand,
			Category:      req.Product.Category,
			Rating:        req.Product.Rating,
			ImageURL:      req.Product.ImageURL,
			OnSale:        req.Product.OnSale,
			Featured:      req.Product.Featured,
		},
		Quantity:      req.Quantity,
		SelectedSize:  req.SelectedSize,
		SelectedColor: req.SelectedColor,
		SelectedImage: req.SelectedImage,
	}

	cart, err := h.service.AddItem(r.Context(), userID, input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: cart})
}

// UpdateQuantity handles PUT /api/v1/cart/items/{itemID}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	itemID := chi.URLParam(r, "itemID")

	var req UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	cart, err := h.service.UpdateQuantity(r.Context(), userID, itemID, req.Quantity)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: cart})
}

// RemoveItem handles DELETE /api/v1/cart/items/{itemID}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	itemID := chi.URLParam(r, "itemID")

	cart, err := h.service.RemoveItem(r.Context(), userID, itemID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: cart})
}

// UpdateItemDetails handles PUT /api/v1/cart/items/{itemID}/details
func (h *CartHandler) UpdateItemDetails(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	itemID := chi.URLParam(r, "itemID")

	var req UpdateDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	cart, err := h.service.UpdateItemDetails(r.Context(), userID, itemID, service.UpdateDetailsInput{
		SelectedSize:  req.SelectedSize,
		SelectedColor: req.SelectedColor,
		SelectedImage: req.SelectedImage,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: cart})
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	if err := h.service.ClearCart(r.Context(), userID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: map[string]string{"status": "cleared"}})
}

// OpenCart handles POST /api/v1/cart/open
func (h *CartHandler) OpenCart(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	cart, err := h.service.OpenCart(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: cart})
}

// CloseCart handles POST /api/v1/cart/close
func (h *CartHandler) CloseCart(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	cart, err := h.service.CloseCart(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: cart})
}

// ApplyCoupon handles POST /api/v1/cart/coupon
func (h *CartHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	var req ApplyCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	cart, err := h.coupons.ApplyCoupon(r.Context(), userID, req.Code)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: cart})
}

// RemoveCoupon handles DELETE /api/v1/cart/coupon
func (h *CartHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	cart, err := h.coupons.RemoveCoupon(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: cart})
}
