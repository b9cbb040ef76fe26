package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Haseeb71/zagro-storefront/pkg/validator"

	"github.com/Haseeb71/zagro-storefront/internal/domain"
	"github.com/Haseeb71/zagro-storefront/internal/service"
)

// CheckoutHandler handles HTTP requests for checkout endpoints.
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

// AddressPayload is an address in a submit request.
type AddressPayload struct {
	AddressLine string `json:"address_line" validate:"required,max=500"`
	City        string `json:"city" validate:"required,max=200"`
	State       string `json:"state" validate:"max=200"`
	PostalCode  string `json:"postal_code" validate:"required,max=20"`
	Country     string `json:"country" validate:"required,max=100"`
}

// SubmitRequest is the JSON request body for submitting an order.
type SubmitRequest struct {
	FullName        string          `json:"full_name" validate:"required,min=2,max=300"`
	Email           string          `json:"email" validate:"required,email"`
	Phone           string          `json:"phone" validate:"required,max=50"`
	ShippingAddress AddressPayload  `json:"shipping_address"`
	BillingAddress  *AddressPayload `json:"billing_address"`
	PaymentMethod   string          `json:"payment_method" validate:"required,oneof=cod card bank_transfer"`
	Notes           string          `json:"notes" validate:"max=2000"`
}

// Submit handles POST /api/v1/checkout
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	var req SubmitRequest
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

	input := service.SubmitInput{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		ShippingAddress: service.AddressInput{
			AddressLine: req.ShippingAddress.AddressLine,
			City:        req.ShippingAddress.City,
			State:       req.ShippingAddress.State,
			PostalCode:  req.ShippingAddress.PostalCode,
			Country:     req.ShippingAddress.Country,
		},
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	}
	if req.BillingAddress != nil {
		input.BillingAddress = &service.AddressInput{
			AddressLine: req.BillingAddress.AddressLine,
			City:        req.BillingAddress.City,
			State:       req.BillingAddress.State,
			PostalCode:  req.BillingAddress.PostalCode,
			Country:     req.BillingAddress.Country,
		}
	}

	sub, err := h.service.Submit(r.Context(), userID, input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	// A failed submission is still a result, not a transport error. The
	// status field tells the client what happened.
	status := http.StatusCreated
	if sub.Status == domain.SubmissionFailed {
		status = http.StatusOK
	}

	writeJSON(w, status, response{Data: sub})
}

// GetSubmission handles GET /api/v1/checkout/{submissionID}
func (h *CheckoutHandler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	submissionID := chi.URLParam(r, "submissionID")

	sub, err := h.service.GetSubmission(r.Context(), userID, submissionID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: sub})
}

// ListSubmissions handles GET /api/v1/checkout
func (h *CheckoutHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, response{
				Error: &errorResponse{Code: "INVALID_INPUT", Message: "limit must be an integer"},
			})
			return
		}
		limit = parsed
	}

	subs, err := h.service.ListSubmissions(r.Context(), userID, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: subs})
}
