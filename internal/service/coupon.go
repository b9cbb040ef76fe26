package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/Haseeb71/zagro-storefront/pkg/errors"
	"github.com/Haseeb71/zagro-storefront/pkg/httpclient"

	"github.com/Haseeb71/zagro-storefront/internal/domain"
)

// HTTPDoer is the interface for executing HTTP requests against downstream
// services.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// CircuitOpenFallback replaces the raw circuit breaker error with a structured
// one carrying a retry hint.
func CircuitOpenFallback(_ context.Context, _ error) (*http.Response, error) {
	return nil, apperrors.ServiceUnavailable("downstream service is temporarily unavailable, please retry after 30 seconds")
}

// CouponService validates coupon codes against the campaign service and
// records the outcome in the cart's coupon slot.
type CouponService struct {
	carts           *CartService
	httpClient      HTTPDoer
	campaignURL     string
	validateTimeout time.Duration
	logger          *slog.Logger
}

// NewCouponService creates a new coupon service.
func NewCouponService(
	carts *CartService,
	httpClient HTTPDoer,
	campaignURL string,
	validateTimeout time.Duration,
	logger *slog.Logger,
) *CouponService {
	return &CouponService{
		carts:           carts,
		httpClient:      httpClient,
		campaignURL:     campaignURL,
		validateTimeout: validateTimeout,
		logger:          logger,
	}
}

// ApplyCoupon validates a code against the campaign service and stores the
// outcome in the cart. A rejected code is recorded on the cart, not returned
// as an error, so the caller always gets the resulting coupon state. Applying
// while a coupon is already active is rejected with a conflict.
func (s *CouponService) ApplyCoupon(ctx context.Context, userID, code string) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperrors.InvalidInput("coupon code is required")
	}

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart.Coupon.Status == domain.CouponApplied {
		return nil, apperrors.Conflict("a coupon is already applied, remove it first")
	}

	expectedVersion := cart.Version

	result, err := s.validateCoupon(ctx, code, cart)
	if err != nil {
		return nil, err
	}

	cart.Coupon.Apply(result)
	cart.UpdatedAt = time.Now().UTC()

	if err := s.carts.saveAndPublish(ctx, cart, expectedVersion); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "coupon attempt recorded",
		slog.String("user_id", userID),
		slog.String("code", code),
		slog.String("status", string(cart.Coupon.Status)),
	)

	return cart, nil
}

// RemoveCoupon resets the cart's coupon slot regardless of its state.
func (s *CouponService) RemoveCoupon(ctx context.Context, userID string) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if cart.Coupon.Status == domain.CouponNone {
		return cart, nil
	}

	expectedVersion := cart.Version
	cart.Coupon.Remove()
	cart.UpdatedAt = time.Now().UTC()

	if err := s.carts.saveAndPublish(ctx, cart, expectedVersion); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "coupon removed",
		slog.String("user_id", userID),
	)

	return cart, nil
}

// validateCoupon calls the campaign service to validate the code against the
// current cart contents.
func (s *CouponService) validateCoupon(ctx context.Context, code string, cart *domain.Cart) (domain.CouponValidation, error) {
	if s.validateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.validateTimeout)
		defer cancel()
	}

	type validateRequest struct {
		Code        string          `json:"code"`
		UserID      string          `json:"user_id"`
		OrderAmount decimal.Decimal `json:"order_amount"`
		ProductIDs  []string        `json:"product_ids"`
		CategoryIDs []string        `json:"category_ids"`
	}

	type validateResponse struct {
		Valid              bool            `json:"valid"`
		Expired            bool            `json:"expired"`
		Code               string          `json:"code"`
		DiscountAmount     decimal.Decimal `json:"discount_amount"`
		DiscountPercentage decimal.Decimal `json:"discount_percentage"`
		Description        string          `json:"description"`
		Message            string          `json:"message"`
	}

	req := validateRequest{
		Code:        code,
		UserID:      cart.UserID,
		OrderAmount: cart.TotalPrice,
		ProductIDs:  cart.ProductIDs(),
		CategoryIDs: cart.CategoryIDs(),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return domain.CouponValidation{}, fmt.Errorf("marshal validate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.campaignURL+"/api/coupons/validate", bytes.NewReader(body))
	if err != nil {
		return domain.CouponValidation{}, fmt.Errorf("create validate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(ctx, httpReq)
	if err != nil {
		return domain.CouponValidation{}, fmt.Errorf("call campaign service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.CouponValidation{}, httpclient.ParseResponseError(resp, "campaign")
	}

	var validateResp validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&validateResp); err != nil {
		return domain.CouponValidation{}, fmt.Errorf("decode validate response: %w", err)
	}

	if validateResp.Code == "" {
		validateResp.Code = code
	}

	return domain.CouponValidation{
		Code:               validateResp.Code,
		Valid:              validateResp.Valid,
		Expired:            validateResp.Expired,
		DiscountAmount:     validateResp.DiscountAmount,
		DiscountPercentage: validateResp.DiscountPercentage,
		Description:        validateResp.Description,
		Message:            validateResp.Message,
	}, nil
}
