package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Haseeb71/zagro-storefront/pkg/errors"
	pkgkafka "github.com/Haseeb71/zagro-storefront/pkg/kafka"

	"github.com/Haseeb71/zagro-storefront/internal/domain"
	"github.com/Haseeb71/zagro-storefront/internal/event"
)

// --- Mock Repository ---

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *mockCartRepository) SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error) {
	args := m.Called(ctx, cart, expectedVersion)
	return args.Bool(0), args.Error(1)
}

func (m *mockCartRepository) Delete(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestService(repo *mockCartRepository) *CartService {
	logger := newTestLogger()
	// A Kafka producer with no reachable broker; publish failures are logged
	// and swallowed by the service.
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	kafkaProducer := pkgkafka.NewProducer(kafkaCfg, logger)
	producer := event.NewProducer(kafkaProducer, logger)
	return NewCartService(repo, producer, logger, 7*24*time.Hour)
}

func cartWithItem(userID string) *domain.Cart {
	c := &domain.Cart{
		ID:       "cart-123",
		UserID:   userID,
		Items:    []domain.LineItem{},
		Coupon:   domain.NewCouponState(),
		Currency: "USD",
		Version:  1,
	}
	c.AddItem(domain.ProductSnapshot{
		ProductID: "prod-1",
		Name:      "Trail Runner",
		Price:     decimal.RequireFromString("19.99"),
	}, 2, "42", "Black", "")
	return c
}

func sampleAddInput() AddItemInput {
	return AddItemInput{
		Product: ProductInput{
			ID:    "prod-1",
			Name:  "Trail Runner",
			Price: decimal.RequireFromString("19.99"),
		},
		Quantity:      1,
		SelectedSize:  "42",
		SelectedColor: "Black",
	}
}

// ============================================================================
// GetCart Tests
// ============================================================================

func TestGetCart_ReturnsEmptyCartWhenMissing(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)

	repo.On("Get", mock.Anything, "user-1").Return(nil, apperrors.NotFound("cart", "user-1"))

	cart, err := svc.GetCart(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, "user-1", cart.UserID)
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0, cart.Version)
	repo.AssertExpectations(t)
}

func TestGetCart_EmptyUserID(t *testing.T) {
	svc := newTestService(new(mockCartRepository))

	_, err := svc.GetCart(context.Background(), "")

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestGetCart_RepoError(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)

	repo.On("Get", mock.Anything, "user-1").Return(nil, errors.New("redis down"))

	_, err := svc.GetCart(context.Background(), "user-1")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
}

// ============================================================================
// AddItem Tests
// ============================================================================

func TestAddItem_NewCart(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)

	repo.On("Get", mock.Anything, "user-1").Return(nil, apperrors.NotFound("cart", "user-1"))
	repo.On("SaveIfVersion", mock.Anything, mock.Anything, 0).Return(true, nil)

	cart, err := svc.AddItem(context.Background(), "user-1", sampleAddInput())

	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "prod-1::42::Black", cart.Items[0].ID)
	assert.Equal(t, 1, cart.TotalItems)
	assert.True(t, cart.IsOpen)
	repo.AssertExpectations(t)
}

func TestAddItem_MergesExistingLine(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)

	existing := cartWithItem("user-1")
	repo.On("Get", mock.Anything, "user-1").Return(existing, nil)
	repo.On("SaveIfVersion", mock.Anything, mock.Anything, 1).Return(true, nil)

	cart, err := svc.AddItem(context.Background(), "user-1", sampleAddInput())

	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	repo.AssertExpectations(t)
}

func TestAddItem_DefaultQuantityIsOne(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)

	repo.On("Get", mock.Anything, "user-1").Return(nil, apperrors.NotFound("cart", "user-1"))
	repo.On("SaveIfVersion", mock.Anything, mock.Anything, 0).Return(true, nil)

	input := sampleAddInput()
	input.Quantity = 0
	cart, err := svc.AddItem(context.Background(), "user-1", input)

	require.NoError(t, err)
	assert.Equal(t, 1, cart.Items[0].Quantity)
}

func TestAddItem_ValidationErrors(t *testing.T) {
	svc := newTestService(new(mockCartRepository))
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*AddItemInput)
	}{
		{"missing product id", func(in *AddItemInput) { in.Product.ID = "" }},
		{"missing product name", func(in *AddItemInput) { in.Product.Name = "" }},
		{"negative quantity", func(in *AddItemInput) { in.Quantity = -1 }},
		{"excessive quantity", func(in *AddItemInput) { in.Quantity = MaxQuantityPerItem + 1 }},
		{"negative price", func(in *AddItemInput) { in.Product.Price = decimal.NewFromInt(-1) }},
		{"excessive price", func(in *AddItemInput) { in.Product.Price = MaxUnitPrice.Add(decimal.NewFromInt(1)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := sampleAddInput()
			tt.mutate(&input)
			_, err := svc.AddItem(ctx, "user-1", input)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}

func TestAddItem_CombinedQuantityLimit(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)

	existing := cartWithItem("user-1")
	existing.UpdateQuantity("prod-1::42::Black", MaxQuantityPerItem)
	repo.On("Get", mock.Anything, "user-1").Return(existing, nil)

	_, err := svc.AddItem(context.Background(), "user-1", sampleAddInput())

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	repo.AssertNotCalled(t, "SaveIfVersion", mock.Anything, mock.Anything, mock.Anything)
}

func TestAddItem_VersionConflict(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)

	repo.On("Get", mock.Anything, "user-1").Return(cartWithItem("user-1"), nil)
	repo.On("SaveIfVersion", mock.Anything, mock.Anything, 1).Return(false, nil)

	_, err := svc.AddItem(context.Background(), "user-1", sampleAddInput())

	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

// ============================================================================
// UpdateQuantity Tests
// ============================================================================

func TestUpdateQuantity_SetsQuantity(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)

	repo.On("Get", mock.Anything, "user-1").Return(cartWithItem("user-1"), nil)
	repo.On("SaveIfVersion", mock.Anything, mock.Anything, 1).Return(true, nil)

	cart, err := svc.UpdateQuantity(context.Background(), "user-1", "prod-1::42::Black", 5)

	require.NoError(t, err)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, 5, cart.TotalItems)
}

func TestUpdateQuantity_ZeroRemovesLine(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)

	repo.On("Get", mock.Anything, "user-1").Return(cartWithItem("user-1"), nil)
	repo.On("SaveIfVersion", mock.Anything, mock.Anything, 1).Return(true, nil)

	cart, err := svc.UpdateQuantity(context.Background(), "user-1", "prod-1::42::Black", 0)

	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.TotalPrice.IsZero())
}

func TestUpdateQuantity_UnknownItemIsNoOp(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)

	repo.On("Get", mock.Anything, "user-1").Return(cartWithItem("user-1"), nil)

	cart, err := svc.UpdateQuantity(context.Background(), "user-1", "prod-9::M::Red", 3)

	require.NoError(t, err)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	repo.AssertNotCalled(t, "SaveIfVersion", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateQuantity_MissingCartIsNoOp(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)

	repo.On("Get", mock.Anything, "user-1").Return(nil, apperrors.NotFound("cart", "user-1"))

	cart, err := svc.UpdateQuantity(context.Background(), "user-1", "prod-1::42::Black", 3)

	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	repo.AssertNotCalled(t, "SaveIfVersion", mock.Anything, mock.Anything, mock.Anything)
}

// ============================================================================
// RemoveItem Tests
// ============================================================================

func TestRemoveItem_RemovesLine(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)

	repo.On("Get", mock.Anything, "user-1").Return(cartWithItem("user-1"), nil)
	repo.On("SaveIfVersion", mock.Anything, mock.Anything, 1).Return(true, nil)

	cart, err := svc.RemoveItem(context.Background(), "user-1", "prod-1::42::Black")

	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestRemoveItem_UnknownItemIsNoOp(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)

	repo.On("Get", mock.Anything, "user-1").Return(cartWithItem("user-1"), nil)

	cart, err := svc.RemoveItem(context.Background(), "user-1", "missing")

	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	repo.AssertNotCalled(t, "SaveIfVersion", mock.Anything, mock.Anything, mock.Anything)
}

// ============================================================================
// UpdateItemDetails Tests
// ============================================================================

func TestUpdateItemDetails_ReplacesSelection(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)

	repo.On("Get", mock.Anything, "user-1").Return(cartWithItem("user-1"), nil)
	repo.On("SaveIfVersion", mock.Anything, mock.Anything, 1).Return(true, nil)

	cart, err := svc.UpdateItemDetails(context.Background(), "user-1", "prod-1::42::Black", UpdateDetailsInput{
		SelectedSize:  "43",
		SelectedColor: "White",
		SelectedImage: "white.jpg",
	})

	require.NoError(t, err)
	assert.Equal(t, "prod-1::42::Black", cart.Items[0].ID)
	assert.Equal(t, "43", cart.Items[0].SelectedSize)
	assert.Equal(t, "White", cart.Items[0].SelectedColor)
	assert.True(t, cart.Items[0].Replaced)
}

func TestUpdateItemDetails_UnknownItemIsNoOp(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)

	repo.On("Get", mock.Anything, "user-1").Return(cartWithItem("user-1"), nil)

	_, err := svc.UpdateItemDetails(context.Background(), "user-1", "missing", UpdateDetailsInput{})

	require.NoError(t, err)
	repo.AssertNotCalled(t, "SaveIfVersion", mock.Anything, mock.Anything, mock.Anything)
}

// ============================================================================
// OpenCart / CloseCart Tests
// ============================================================================

func TestOpenCart(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)

	repo.On("Get", mock.Anything, "user-1").Return(cartWithItem("user-1"), nil)
	repo.On("SaveIfVersion", mock.Anything, mock.Anything, 1).Return(true, nil)

	cart, err := svc.OpenCart(context.Background(), "user-1")

	require.NoError(t, err)
	assert.True(t, cart.IsOpen)
}

func TestCloseCart_ClearsAutoClose(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)

	existing := cartWithItem("user-1")
	existing.IsOpen = true
	repo.On("Get", mock.Anything, "user-1").Return(existing, nil)
	repo.On("SaveIfVersion", mock.Anything, mock.Anything, 1).Return(true, nil)

	cart, err := svc.CloseCart(context.Background(), "user-1")

	require.NoError(t, err)
	assert.False(t, cart.IsOpen)
	assert.True(t, cart.AutoCloseAt.IsZero())
}

// ============================================================================
// ClearCart Tests
// ============================================================================

func TestClearCart_DeletesCart(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)

	repo.On("Delete", mock.Anything, "user-1").Return(nil)

	err := svc.ClearCart(context.Background(), "user-1")

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestClearCart_RepoError(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)

	repo.On("Delete", mock.Anything, "user-1").Return(errors.New("redis down"))

	err := svc.ClearCart(context.Background(), "user-1")

	assert.Error(t, err)
}
