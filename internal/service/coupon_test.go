package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Haseeb71/zagro-storefront/pkg/errors"

	"github.com/Haseeb71/zagro-storefront/internal/domain"
)

// --- HTTP stubs ---

type doerFunc func(ctx context.Context, req *http.Request) (*http.Response, error)

func (f doerFunc) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return f(ctx, req)
}

func jsonResponse(t *testing.T, status int, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(data)),
	}
}

func newCouponService(repo *mockCartRepository, doer HTTPDoer) *CouponService {
	carts := newTestService(repo)
	return NewCouponService(carts, doer, "http://campaign.local", 2*time.Second, newTestLogger())
}

// ============================================================================
// ApplyCoupon Tests
// ============================================================================

func TestApplyCoupon_ValidCode(t *testing.T) {
	repo := new(mockCartRepository)
	var gotPath string
	doer := doerFunc(func(ctx context.Context, req *http.Request) (*http.Response, error) {
		gotPath = req.URL.Path
		return jsonResponse(t, http.StatusOK, map[string]any{
			"valid":           true,
			"code":            "SAVE20",
			"discount_amount": "20",
			"description":     "20 off orders over 100",
		}), nil
	})
	svc := newCouponService(repo, doer)

	repo.On("Get", mock.Anything, "user-1").Return(cartWithItem("user-1"), nil)
	repo.On("SaveIfVersion", mock.Anything, mock.Anything, 1).Return(true, nil)

	cart, err := svc.ApplyCoupon(context.Background(), "user-1", "SAVE20")

	require.NoError(t, err)
	assert.Equal(t, "/api/coupons/validate", gotPath)
	assert.Equal(t, domain.CouponApplied, cart.Coupon.Status)
	assert.Equal(t, "SAVE20", cart.Coupon.Code)
	assert.True(t, cart.Coupon.DiscountAmount.Equal(decimal.NewFromInt(20)))
	repo.AssertExpectations(t)
}

func TestApplyCoupon_InvalidCodeIsRecordedNotErrored(t *testing.T) {
	repo := new(mockCartRepository)
	doer := doerFunc(func(ctx context.Context, req *http.Request) (*http.Response, error) {
		return jsonResponse(t, http.StatusOK, map[string]any{
			"valid":   false,
			"code":    "NOPE",
			"message": "unknown coupon code",
		}), nil
	})
	svc := newCouponService(repo, doer)

	repo.On("Get", mock.Anything, "user-1").Return(cartWithItem("user-1"), nil)
	repo.On("SaveIfVersion", mock.Anything, mock.Anything, 1).Return(true, nil)

	cart, err := svc.ApplyCoupon(context.Background(), "user-1", "NOPE")

	require.NoError(t, err)
	assert.Equal(t, domain.CouponInvalid, cart.Coupon.Status)
	assert.Equal(t, "unknown coupon code", cart.Coupon.Message)
	assert.True(t, cart.Coupon.Discount().IsZero())
}

func TestApplyCoupon_ExpiredCode(t *testing.T) {
	repo := new(mockCartRepository)
	doer := doerFunc(func(ctx context.Context, req *http.Request) (*http.Response, error) {
		return jsonResponse(t, http.StatusOK, map[string]any{
			"expired": true,
			"code":    "OLD",
			"message": "coupon expired",
		}), nil
	})
	svc := newCouponService(repo, doer)

	repo.On("Get", mock.Anything, "user-1").Return(cartWithItem("user-1"), nil)
	repo.On("SaveIfVersion", mock.Anything, mock.Anything, 1).Return(true, nil)

	cart, err := svc.ApplyCoupon(context.Background(), "user-1", "OLD")

	require.NoError(t, err)
	assert.Equal(t, domain.CouponExpired, cart.Coupon.Status)
}

func TestApplyCoupon_AlreadyAppliedConflict(t *testing.T) {
	repo := new(mockCartRepository)
	called := false
	doer := doerFunc(func(ctx context.Context, req *http.Request) (*http.Response, error) {
		called = true
		return jsonResponse(t, http.StatusOK, map[string]any{"valid": true}), nil
	})
	svc := newCouponService(repo, doer)

	existing := cartWithItem("user-1")
	existing.Coupon.Apply(domain.CouponValidation{Code: "FIRST", Valid: true, DiscountAmount: decimal.NewFromInt(5)})
	repo.On("Get", mock.Anything, "user-1").Return(existing, nil)

	_, err := svc.ApplyCoupon(context.Background(), "user-1", "SECOND")

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.False(t, called)
	repo.AssertNotCalled(t, "SaveIfVersion", mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyCoupon_EmptyCode(t *testing.T) {
	svc := newCouponService(new(mockCartRepository), doerFunc(nil))

	_, err := svc.ApplyCoupon(context.Background(), "user-1", "   ")

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestApplyCoupon_CampaignServiceDown(t *testing.T) {
	repo := new(mockCartRepository)
	doer := doerFunc(func(ctx context.Context, req *http.Request) (*http.Response, error) {
		return jsonResponse(t, http.StatusInternalServerError, map[string]any{
			"error": map[string]any{"code": "INTERNAL", "message": "boom"},
		}), nil
	})
	svc := newCouponService(repo, doer)

	repo.On("Get", mock.Anything, "user-1").Return(cartWithItem("user-1"), nil)

	_, err := svc.ApplyCoupon(context.Background(), "user-1", "SAVE20")

	assert.Error(t, err)
	repo.AssertNotCalled(t, "SaveIfVersion", mock.Anything, mock.Anything, mock.Anything)
}

// ============================================================================
// RemoveCoupon Tests
// ============================================================================

func TestRemoveCoupon_ResetsAppliedCoupon(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newCouponService(repo, doerFunc(nil))

	existing := cartWithItem("user-1")
	existing.Coupon.Apply(domain.CouponValidation{Code: "SAVE20", Valid: true, DiscountAmount: decimal.NewFromInt(20)})
	repo.On("Get", mock.Anything, "user-1").Return(existing, nil)
	repo.On("SaveIfVersion", mock.Anything, mock.Anything, 1).Return(true, nil)

	cart, err := svc.RemoveCoupon(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, domain.CouponNone, cart.Coupon.Status)
	assert.Empty(t, cart.Coupon.Code)
}

func TestRemoveCoupon_NoCouponIsNoOp(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newCouponService(repo, doerFunc(nil))

	repo.On("Get", mock.Anything, "user-1").Return(cartWithItem("user-1"), nil)

	cart, err := svc.RemoveCoupon(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, domain.CouponNone, cart.Coupon.Status)
	repo.AssertNotCalled(t, "SaveIfVersion", mock.Anything, mock.Anything, mock.Anything)
}
