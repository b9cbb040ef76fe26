package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Haseeb71/zagro-storefront/pkg/errors"

	"github.com/Haseeb71/zagro-storefront/internal/domain"
)

func setupRepo(t *testing.T) (*CartRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCartRepository(client, time.Hour), mr
}

func testCart(userID string) *domain.Cart {
	c := &domain.Cart{
		ID:       "cart-1",
		UserID:   userID,
		Currency: "USD",
		Coupon:   domain.NewCouponState(),
	}
	c.AddItem(domain.ProductSnapshot{
		ProductID: "p1",
		Name:      "Sneaker",
		Price:     decimal.RequireFromString("59.99"),
	}, 2, "42", "White", "")
	return c
}

// ============================================================================
// Get / Save Tests
// ============================================================================

func TestCartRepository_Get_NotFound(t *testing.T) {
	repo, _ := setupRepo(t)

	_, err := repo.Get(context.Background(), "nobody")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCartRepository_SaveAndGet(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	cart := testCart("user-1")

	require.NoError(t, repo.Save(ctx, cart))

	got, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "p1::42::White", got.Items[0].ID)
	assert.Equal(t, 2, got.TotalItems)
	assert.True(t, got.TotalPrice.Equal(decimal.RequireFromString("119.98")))
}

func TestCartRepository_Get_RecomputesStoredTotals(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	cart := testCart("user-1")
	cart.TotalItems = 999
	cart.TotalPrice = decimal.NewFromInt(1)
	require.NoError(t, repo.Save(ctx, cart))

	got, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalItems)
	assert.True(t, got.TotalPrice.Equal(decimal.RequireFromString("119.98")))
}

func TestCartRepository_Save_SetsTTL(t *testing.T) {
	repo, mr := setupRepo(t)

	require.NoError(t, repo.Save(context.Background(), testCart("user-1")))

	assert.Equal(t, time.Hour, mr.TTL("cart:user-1"))
}

func TestCartRepository_Get_CorruptPayload(t *testing.T) {
	repo, mr := setupRepo(t)
	require.NoError(t, mr.Set("cart:user-1", "not json"))

	_, err := repo.Get(context.Background(), "user-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal cart")
}

// ============================================================================
// SaveIfVersion Tests
// ============================================================================

func TestSaveIfVersion_NewCart(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	cart := testCart("user-1")

	ok, err := repo.SaveIfVersion(ctx, cart, 0)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, cart.Version)

	got, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
}

func TestSaveIfVersion_SequentialUpdates(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	cart := testCart("user-1")

	ok, err := repo.SaveIfVersion(ctx, cart, 0)
	require.NoError(t, err)
	require.True(t, ok)

	cart.UpdateQuantity("p1::42::White", 5)
	ok, err = repo.SaveIfVersion(ctx, cart, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, cart.Version)
}

func TestSaveIfVersion_VersionMismatch(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	stored := testCart("user-1")
	ok, err := repo.SaveIfVersion(ctx, stored, 0)
	require.NoError(t, err)
	require.True(t, ok)

	stale := testCart("user-1")
	ok, err = repo.SaveIfVersion(ctx, stale, 0)

	require.NoError(t, err)
	assert.False(t, ok)

	// The stored cart is untouched.
	got, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
}

func TestSaveIfVersion_MissingKeyWithNonZeroVersion(t *testing.T) {
	repo, _ := setupRepo(t)

	ok, err := repo.SaveIfVersion(context.Background(), testCart("user-1"), 3)

	require.NoError(t, err)
	assert.False(t, ok)
}

// ============================================================================
// Delete Tests
// ============================================================================

func TestCartRepository_Delete(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, testCart("user-1")))

	require.NoError(t, repo.Delete(ctx, "user-1"))

	_, err := repo.Get(ctx, "user-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCartRepository_Delete_AbsentKey(t *testing.T) {
	repo, _ := setupRepo(t)

	assert.NoError(t, repo.Delete(context.Background(), "nobody"))
}
