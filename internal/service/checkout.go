package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/Haseeb71/zagro-storefront/pkg/errors"
	"github.com/Haseeb71/zagro-storefront/pkg/httpclient"

	"github.com/Haseeb71/zagro-storefront/internal/domain"
	"github.com/Haseeb71/zagro-storefront/internal/event"
	"github.com/Haseeb71/zagro-storefront/internal/repository"
)

// SubmitTimeouts bounds each downstream call of the submission pipeline.
type SubmitTimeouts struct {
	CustomerTimeout time.Duration
	OrderTimeout    time.Duration
}

// AddressInput is an address supplied at checkout.
type AddressInput struct {
	AddressLine string `json:"address_line" validate:"required"`
	City        string `json:"city" validate:"required"`
	State       string `json:"state"`
	PostalCode  string `json:"postal_code" validate:"required"`
	Country     string `json:"country" validate:"required"`
}

// SubmitInput holds the checkout form. BillingAddress defaults to the
// shipping address when omitted.
type SubmitInput struct {
	FullName        string        `json:"full_name" validate:"required,min=2"`
	Email           string        `json:"email" validate:"required,email"`
	Phone           string        `json:"phone" validate:"required"`
	ShippingAddress AddressInput  `json:"shipping_address"`
	BillingAddress  *AddressInput `json:"billing_address"`
	PaymentMethod   string        `json:"payment_method" validate:"required,oneof=cod card bank_transfer"`
	Notes           string        `json:"notes"`
}

// CheckoutService orchestrates order submission: it freezes the cart into a
// submission record, creates the customer and the order in the downstream
// services in sequence, and clears the cart only after the order is confirmed.
//
// There is no compensation step. A customer created before a failed order
// creation stays behind in the customer service; the submission record keeps
// the customer id so the gap is at least visible.
type CheckoutService struct {
	subs               repository.SubmissionRepository
	carts              *CartService
	producer           *event.Producer
	httpClient         HTTPDoer
	customerServiceURL string
	orderServiceURL    string
	timeouts           SubmitTimeouts
	logger             *slog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	subs repository.SubmissionRepository,
	carts *CartService,
	producer *event.Producer,
	httpClient HTTPDoer,
	customerServiceURL string,
	orderServiceURL string,
	timeouts SubmitTimeouts,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		subs:               subs,
		carts:              carts,
		producer:           producer,
		httpClient:         httpClient,
		customerServiceURL: customerServiceURL,
		orderServiceURL:    orderServiceURL,
		timeouts:           timeouts,
		logger:             logger,
	}
}

// Submit runs the order submission pipeline for the user's cart. Downstream
// failures do not surface as errors: the returned submission carries the
// outcome, and a failed submission leaves the cart untouched so the user can
// retry. Only validation and persistence problems return an error.
func (s *CheckoutService) Submit(ctx context.Context, userID string, input SubmitInput) (*domain.Submission, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, apperrors.InvalidInput("cart is empty")
	}
	if unresolved := cart.UnresolvedSelections(); len(unresolved) > 0 {
		return nil, apperrors.InvalidInput(fmt.Sprintf("size and color must be chosen for: %v", unresolved))
	}

	sub := s.newSubmission(userID, cart, input)
	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}

	s.logger.InfoContext(ctx, "order submission started",
		slog.String("submission_id", sub.ID),
		slog.String("user_id", userID),
		slog.String("total", sub.Total.String()),
	)

	// Step 1: create the customer.
	sub.Status = domain.SubmissionCreatingCustomer
	s.persist(ctx, sub)

	customerID, err := s.createCustomer(ctx, sub, input)
	if err != nil {
		return s.fail(ctx, sub, domain.StepCreateCustomer, err), nil
	}
	sub.CustomerID = customerID
	sub.Step(domain.StepCreateCustomer).Complete()

	// Step 2: create the order.
	sub.Status = domain.SubmissionCreatingOrder
	s.persist(ctx, sub)

	orderNumber, err := s.createOrder(ctx, sub, customerID)
	if err != nil {
		return s.fail(ctx, sub, domain.StepCreateOrder, err), nil
	}
	sub.OrderNumber = orderNumber
	sub.Step(domain.StepCreateOrder).Complete()

	sub.Status = domain.SubmissionSucceeded
	s.persist(ctx, sub)

	// The cart is cleared only on this path. A failed submission must leave
	// it intact.
	if err := s.carts.ClearCart(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear cart after successful order",
			slog.String("submission_id", sub.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishOrderSubmitted(ctx, sub); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.submitted event",
			slog.String("submission_id", sub.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order submission succeeded",
		slog.String("submission_id", sub.ID),
		slog.String("order_number", orderNumber),
	)

	return sub, nil
}

// GetSubmission retrieves a submission by id, scoped to the requesting user.
func (s *CheckoutService) GetSubmission(ctx context.Context, userID, id string) (*domain.Submission, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if id == "" {
		return nil, apperrors.InvalidInput("submission id is required")
	}

	sub, err := s.subs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, apperrors.NotFound("submission", id)
	}

	return sub, nil
}

// ListSubmissions returns the user's most recent submissions.
func (s *CheckoutService) ListSubmissions(ctx context.Context, userID string, limit int) ([]domain.Submission, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	return s.subs.ListByUser(ctx, userID, limit)
}

// newSubmission freezes the cart and the priced breakdown into a pending
// submission record.
func (s *CheckoutService) newSubmission(userID string, cart *domain.Cart, input SubmitInput) *domain.Submission {
	breakdown := domain.ComputeBreakdown(cart, cart.Coupon)

	items := make([]domain.OrderLine, len(cart.Items))
	for i, item := range cart.Items {
		items[i] = domain.OrderLine{
			ProductID: item.Product.ProductID,
			Name:      item.Product.Name,
			Size:      item.SelectedSize,
			Color:     item.SelectedColor,
			Quantity:  item.Quantity,
			UnitPrice: item.Product.Price,
		}
	}

	shipping := domain.Address{
		FullName:    input.FullName,
		AddressLine: input.ShippingAddress.AddressLine,
		City:        input.ShippingAddress.City,
		State:       input.ShippingAddress.State,
		PostalCode:  input.ShippingAddress.PostalCode,
		Country:     input.ShippingAddress.Country,
		Phone:       input.Phone,
	}
	billing := shipping
	if input.BillingAddress != nil {
		billing = domain.Address{
			FullName:    input.FullName,
			AddressLine: input.BillingAddress.AddressLine,
			City:        input.BillingAddress.City,
			State:       input.BillingAddress.State,
			PostalCode:  input.BillingAddress.PostalCode,
			Country:     input.BillingAddress.Country,
			Phone:       input.Phone,
		}
	}

	now := time.Now().UTC()
	return &domain.Submission{
		ID:              uuid.New().String(),
		UserID:          userID,
		Status:          domain.SubmissionPending,
		Items:           items,
		Subtotal:        breakdown.Subtotal,
		Discount:        breakdown.Discount,
		Shipping:        breakdown.Shipping,
		Tax:             breakdown.Tax,
		Total:           breakdown.Total,
		Currency:        cart.Currency,
		CouponCode:      cart.Coupon.Code,
		PaymentMethod:   input.PaymentMethod,
		ShippingAddress: shipping,
		BillingAddress:  billing,
		Notes:           input.Notes,
		Steps: []domain.SubmissionStep{
			domain.NewSubmissionStep(domain.StepCreateCustomer),
			domain.NewSubmissionStep(domain.StepCreateOrder),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// fail records a step failure and moves the submission to the failed state.
// The cart is deliberately not cleared here.
func (s *CheckoutService) fail(ctx context.Context, sub *domain.Submission, step string, cause error) *domain.Submission {
	if st := sub.Step(step); st != nil {
		st.Fail(cause.Error())
	}
	sub.MarkFailed(cause.Error())
	s.persist(ctx, sub)

	if err := s.producer.PublishOrderFailed(ctx, sub, step); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.failed event",
			slog.String("submission_id", sub.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.WarnContext(ctx, "order submission failed",
		slog.String("submission_id", sub.ID),
		slog.String("step", step),
		slog.String("error", cause.Error()),
	)

	return sub
}

// persist updates the submission record, logging instead of failing the
// pipeline when the write does not go through. The in-memory submission is
// authoritative for the caller; the record catches up on the next write.
func (s *CheckoutService) persist(ctx context.Context, sub *domain.Submission) {
	if err := s.subs.Update(ctx, sub); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist submission",
			slog.String("submission_id", sub.ID),
			slog.String("status", sub.Status),
			slog.String("error", err.Error()),
		)
	}
}

// createCustomer calls the customer service to register the buyer.
func (s *CheckoutService) createCustomer(ctx context.Context, sub *domain.Submission, input SubmitInput) (string, error) {
	if s.timeouts.CustomerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeouts.CustomerTimeout)
		defer cancel()
	}

	type createCustomerRequest struct {
		FullName string `json:"full_name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Address  struct {
			AddressLine string `json:"address_line"`
			City        string `json:"city"`
			State       string `json:"state,omitempty"`
			PostalCode  string `json:"postal_code"`
			Country     string `json:"country"`
		} `json:"address"`
		SubmissionID string `json:"submission_id"`
	}

	type createCustomerResponse struct {
		CustomerID string `json:"customer_id"`
	}

	req := createCustomerRequest{
		FullName:     input.FullName,
		Email:        input.Email,
		Phone:        input.Phone,
		SubmissionID: sub.ID,
	}
	req.Address.AddressLine = sub.ShippingAddress.AddressLine
	req.Address.City = sub.ShippingAddress.City
	req.Address.State = sub.ShippingAddress.State
	req.Address.PostalCode = sub.ShippingAddress.PostalCode
	req.Address.Country = sub.ShippingAddress.Country

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal create customer request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.customerServiceURL+"/api/customers", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create customer request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(ctx, httpReq)
	if err != nil {
		return "", fmt.Errorf("call customer service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", httpclient.ParseResponseError(resp, "customer")
	}

	var customerResp createCustomerResponse
	if err := json.NewDecoder(resp.Body).Decode(&customerResp); err != nil {
		return "", fmt.Errorf("decode customer response: %w", err)
	}
	if customerResp.CustomerID == "" {
		return "", fmt.Errorf("customer service returned no customer id")
	}

	s.logger.InfoContext(ctx, "customer created",
		slog.String("submission_id", sub.ID),
		slog.String("customer_id", customerResp.CustomerID),
	)

	return customerResp.CustomerID, nil
}

// createOrder calls the order service to place the order for the customer.
func (s *CheckoutService) createOrder(ctx context.Context, sub *domain.Submission, customerID string) (string, error) {
	if s.timeouts.OrderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeouts.OrderTimeout)
		defer cancel()
	}

	type orderLine struct {
		ProductID string          `json:"product_id"`
		Name      string          `json:"name"`
		Size      string          `json:"size"`
		Color     string          `json:"color"`
		Quantity  int             `json:"quantity"`
		UnitPrice decimal.Decimal `json:"unit_price"`
	}

	type createOrderRequest struct {
		CustomerID      string          `json:"customer_id"`
		Items           []orderLine     `json:"items"`
		Subtotal        decimal.Decimal `json:"subtotal"`
		Discount        decimal.Decimal `json:"discount"`
		Shipping        decimal.Decimal `json:"shipping"`
		Tax             decimal.Decimal `json:"tax"`
		Total           decimal.Decimal `json:"total"`
		Currency        string          `json:"currency"`
		CouponCode      string          `json:"coupon_code,omitempty"`
		PaymentMethod   string          `json:"payment_method"`
		ShippingAddress domain.Address  `json:"shipping_address"`
		BillingAddress  domain.Address  `json:"billing_address"`
		Notes           string          `json:"notes,omitempty"`
		SubmissionID    string          `json:"submission_id"`
	}

	type createOrderResponse struct {
		OrderNumber string `json:"order_number"`
	}

	req := createOrderRequest{
		CustomerID:      customerID,
		Items:           make([]orderLine, len(sub.Items)),
		Subtotal:        sub.Subtotal,
		Discount:        sub.Discount,
		Shipping:        sub.Shipping,
		Tax:             sub.Tax,
		Total:           sub.Total,
		Currency:        sub.Currency,
		CouponCode:      sub.CouponCode,
		PaymentMethod:   sub.PaymentMethod,
		ShippingAddress: sub.ShippingAddress,
		BillingAddress:  sub.BillingAddress,
		Notes:           sub.Notes,
		SubmissionID:    sub.ID,
	}
	for i, item := range sub.Items {
		req.Items[i] = orderLine{
			ProductID: item.ProductID,
			Name:      item.Name,
			Size:      item.Size,
			Color:     item.Color,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal create order request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.orderServiceURL+"/api/orders", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create order request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(ctx, httpReq)
	if err != nil {
		return "", fmt.Errorf("call order service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", httpclient.ParseResponseError(resp, "order")
	}

	var orderResp createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&orderResp); err != nil {
		return "", fmt.Errorf("decode order response: %w", err)
	}
	if orderResp.OrderNumber == "" {
		return "", fmt.Errorf("order service returned no order number")
	}

	s.logger.InfoContext(ctx, "order created",
		slog.String("submission_id", sub.ID),
		slog.String("order_number", orderResp.OrderNumber),
	)

	return orderResp.OrderNumber, nil
}
