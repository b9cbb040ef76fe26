package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Haseeb71/zagro-storefront/pkg/errors"

	"github.com/Haseeb71/zagro-storefront/internal/domain"
	"github.com/Haseeb71/zagro-storefront/internal/service"
)

// ============================================================================
// Mock SubmissionRepository
// ============================================================================

type mockSubmissionRepository struct {
	mock.Mock
}

func (m *mockSubmissionRepository) Create(ctx context.Context, sub *domain.Submission) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *mockSubmissionRepository) Update(ctx context.Context, sub *domain.Submission) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *mockSubmissionRepository) GetByID(ctx context.Context, id string) (*domain.Submission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Submission), args.Error(1)
}

func (m *mockSubmissionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Submission, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Submission), args.Error(1)
}

// ============================================================================
// Test helpers
// ============================================================================

// checkoutDoer answers the customer and order creation calls in sequence.
type checkoutDoer struct {
	t         *testing.T
	responses map[string]*http.Response
}

func (d *checkoutDoer) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	for suffix, resp := range d.responses {
		if len(req.URL.Path) >= len(suffix) && req.URL.Path[len(req.URL.Path)-len(suffix):] == suffix {
			return resp, nil
		}
	}
	d.t.Fatalf("unexpected downstream call: %s", req.URL.Path)
	return nil, nil
}

func setupCheckoutRouter(t *testing.T, subs *mockSubmissionRepository, cartRepo *mockCartRepository, doer service.HTTPDoer) *chi.Mux {
	cartSvc := testCartService(cartRepo)
	checkoutSvc := service.NewCheckoutService(subs, cartSvc, testEventProducer(), doer,
		"http://customer.local", "http://order.local",
		service.SubmitTimeouts{CustomerTimeout: time.Second, OrderTimeout: time.Second},
		testLogger(),
	)
	handler := NewCheckoutHandler(checkoutSvc, testLogger())

	r := chi.NewRouter()
	r.Route("/api/v1/checkout", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(UserIDFromHeader)

		r.Post("/", handler.Submit)
		r.Get("/", handler.ListSubmissions)
		r.Get("/{submissionID}", handler.GetSubmission)
	})
	return r
}

func submitBody() map[string]any {
	return map[string]any{
		"full_name": "Jordan Doe",
		"email":     "jordan@example.com",
		"phone":     "+923001234567",
		"shipping_address": map[string]any{
			"address_line": "123 Main St",
			"city":         "Lahore",
			"postal_code":  "54000",
			"country":      "PK",
		},
		"payment_method": "cod",
	}
}

// ============================================================================
// POST /api/v1/checkout
// ============================================================================

func TestSubmit_Returns201OnSuccess(t *testing.T) {
	subs := new(mockSubmissionRepository)
	cartRepo := new(mockCartRepository)
	doer := &checkoutDoer{t: t, responses: map[string]*http.Response{
		"/api/customers": okDoer(t, map[string]any{"customer_id": "cust-42"}).resp,
		"/api/orders":    okDoer(t, map[string]any{"order_number": "ORD-1"}).resp,
	}}
	router := setupCheckoutRouter(t, subs, cartRepo, doer)

	cartRepo.On("Get", mock.Anything, "user-123").Return(sampleCart(), nil)
	cartRepo.On("Delete", mock.Anything, "user-123").Return(nil)
	subs.On("Create", mock.Anything, mock.Anything).Return(nil)
	subs.On("Update", mock.Anything, mock.Anything).Return(nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/checkout", submitBody())

	assert.Equal(t, http.StatusCreated, rec.Code)
	data := decodeResponse(t, rec).Data.(map[string]any)
	assert.Equal(t, "succeeded", data["status"])
	assert.Equal(t, "ORD-1", data["order_number"])
}

func TestSubmit_Returns200OnFailedSubmission(t *testing.T) {
	subs := new(mockSubmissionRepository)
	cartRepo := new(mockCartRepository)
	doer := &checkoutDoer{t: t, responses: map[string]*http.Response{
		"/api/customers": {
			StatusCode: http.StatusServiceUnavailable,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       http.NoBody,
		},
	}}
	router := setupCheckoutRouter(t, subs, cartRepo, doer)

	cartRepo.On("Get", mock.Anything, "user-123").Return(sampleCart(), nil)
	subs.On("Create", mock.Anything, mock.Anything).Return(nil)
	subs.On("Update", mock.Anything, mock.Anything).Return(nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/checkout", submitBody())

	assert.Equal(t, http.StatusOK, rec.Code)
	data := decodeResponse(t, rec).Data.(map[string]any)
	assert.Equal(t, "failed", data["status"])
	cartRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestSubmit_ValidationFailure(t *testing.T) {
	router := setupCheckoutRouter(t, new(mockSubmissionRepository), new(mockCartRepository), nil)

	body := submitBody()
	body["email"] = "not-an-email"
	rec := doJSON(t, router, http.MethodPost, "/api/v1/checkout", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestSubmit_EmptyCartRejected(t *testing.T) {
	subs := new(mockSubmissionRepository)
	cartRepo := new(mockCartRepository)
	router := setupCheckoutRouter(t, subs, cartRepo, nil)

	cartRepo.On("Get", mock.Anything, "user-123").Return(nil, apperrors.NotFound("cart", "user-123"))

	rec := doJSON(t, router, http.MethodPost, "/api/v1/checkout", submitBody())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	subs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// ============================================================================
// GET /api/v1/checkout/{submissionID}
// ============================================================================

func TestGetSubmission_Success(t *testing.T) {
	subs := new(mockSubmissionRepository)
	router := setupCheckoutRouter(t, subs, new(mockCartRepository), nil)

	subs.On("GetByID", mock.Anything, "sub-1").Return(&domain.Submission{
		ID:     "sub-1",
		UserID: "user-123",
		Status: domain.SubmissionSucceeded,
	}, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/checkout/sub-1", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	data := decodeResponse(t, rec).Data.(map[string]any)
	assert.Equal(t, "sub-1", data["id"])
}

func TestGetSubmission_NotFound(t *testing.T) {
	subs := new(mockSubmissionRepository)
	router := setupCheckoutRouter(t, subs, new(mockCartRepository), nil)

	subs.On("GetByID", mock.Anything, "missing").Return(nil, apperrors.NotFound("submission", "missing"))

	rec := doJSON(t, router, http.MethodGet, "/api/v1/checkout/missing", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ============================================================================
// GET /api/v1/checkout
// ============================================================================

func TestListSubmissions_Success(t *testing.T) {
	subs := new(mockSubmissionRepository)
	router := setupCheckoutRouter(t, subs, new(mockCartRepository), nil)

	subs.On("ListByUser", mock.Anything, "user-123", 20).Return([]domain.Submission{
		{ID: "sub-2", UserID: "user-123", Status: domain.SubmissionSucceeded},
		{ID: "sub-1", UserID: "user-123", Status: domain.SubmissionFailed},
	}, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/checkout", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	data := decodeResponse(t, rec).Data.([]any)
	assert.Len(t, data, 2)
}

func TestListSubmissions_BadLimit(t *testing.T) {
	router := setupCheckoutRouter(t, new(mockSubmissionRepository), new(mockCartRepository), nil)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/checkout?limit=abc", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
