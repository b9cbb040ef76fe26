package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/Haseeb71/zagro-storefront/pkg/errors"

	"github.com/Haseeb71/zagro-storefront/internal/domain"
	"github.com/Haseeb71/zagro-storefront/internal/event"
	"github.com/Haseeb71/zagro-storefront/internal/repository"
)

// Cart operation upper-bound limits to prevent abuse.
const (
	// MaxQuantityPerItem is the maximum quantity allowed for a single cart line.
	MaxQuantityPerItem = 100
	// MaxLinesPerCart is the maximum number of distinct lines allowed in a cart.
	MaxLinesPerCart = 50
)

// MaxUnitPrice is the maximum unit price accepted for a cart line.
var MaxUnitPrice = decimal.NewFromInt(100_000)

// ProductInput is the product snapshot supplied when adding an item.
type ProductInput struct {
	ID            string          `json:"id" validate:"required"`
	Name          string          `json:"name" validate:"required"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Brand         string          `json:"brand"`
	Category      string          `json:"category"`
	Rating        float64         `json:"rating"`
	ImageURL      string          `json:"image_url"`
	OnSale        bool            `json:"on_sale"`
	Featured      bool            `json:"featured"`
}

// AddItemInput holds the parameters for adding an item to the cart. A zero
// quantity defaults to one.
type AddItemInput struct {
	Product       ProductInput `json:"product"`
	Quantity      int          `json:"quantity"`
	SelectedSize  string       `json:"selected_size"`
	SelectedColor string       `json:"selected_color"`
	SelectedImage string       `json:"selected_image"`
}

// UpdateDetailsInput holds the replacement selection for a cart line.
type UpdateDetailsInput struct {
	SelectedSize  string `json:"selected_size"`
	SelectedColor string `json:"selected_color"`
	SelectedImage string `json:"selected_image"`
}

// CartService implements the business logic for cart operations.
type CartService struct {
	repo     repository.CartRepository
	producer *event.Producer
	logger   *slog.Logger
	cartTTL  time.Duration
}

// NewCartService creates a new cart service.
func NewCartService(repo repository.CartRepository, producer *event.Producer, logger *slog.Logger, cartTTL time.Duration) *CartService {
	return &CartService{
		repo:     repo,
		producer: producer,
		logger:   logger,
		cartTTL:  cartTTL,
	}
}

// GetCart retrieves the cart for a user. If no cart exists, returns an empty
// cart without persisting it.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.newEmptyCart(userID), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	return cart, nil
}

// AddItem adds a selection to the user's cart, merging into an existing line
// when the identity key matches. Uses optimistic locking to prevent lost
// updates on concurrent cart modifications.
func (s *CartService) AddItem(ctx context.Context, userID string, input AddItemInput) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if input.Product.ID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if input.Product.Name == "" {
		return nil, apperrors.InvalidInput("product name is required")
	}
	if input.Quantity == 0 {
		input.Quantity = 1
	}
	if input.Quantity < 0 {
		return nil, apperrors.InvalidInput("quantity must be greater than 0")
	}
	if input.Quantity > MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}
	if input.Product.Price.IsNegative() {
		return nil, apperrors.InvalidInput("price must not be negative")
	}
	if input.Product.Price.GreaterThan(MaxUnitPrice) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("price must not exceed %s", MaxUnitPrice))
	}

	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	expectedVersion := cart.Version
	itemID := domain.LineItemID(input.Product.ID, input.SelectedSize, input.SelectedColor)

	if i := cart.FindItemIndex(itemID); i >= 0 {
		if cart.Items[i].Quantity+input.Quantity > MaxQuantityPerItem {
			return nil, apperrors.InvalidInput(fmt.Sprintf("combined quantity must not exceed %d", MaxQuantityPerItem))
		}
	} else if len(cart.Items) >= MaxLinesPerCart {
		return nil, apperrors.InvalidInput(fmt.Sprintf("cart must not contain more than %d items", MaxLinesPerCart))
	}

	cart.AddItem(domain.ProductSnapshot{
		ProductID:     input.Product.ID,
		Name:          input.Product.Name,
		Price:         input.Product.Price,
		OriginalPrice: input.Product.OriginalPrice,
		Brand:         input.Product.Brand,
		Category:      input.Product.Category,
		Rating:        input.Product.Rating,
		ImageURL:      input.Product.ImageURL,
		OnSale:        input.Product.OnSale,
		Featured:      input.Product.Featured,
	}, input.Quantity, input.SelectedSize, input.SelectedColor, input.SelectedImage)
	cart.IsOpen = true
	cart.UpdatedAt = time.Now().UTC()

	if err := s.saveAndPublish(ctx, cart, expectedVersion); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("user_id", userID),
		slog.String("item_id", itemID),
		slog.Int("quantity", input.Quantity),
	)

	return cart, nil
}

// UpdateQuantity sets the quantity of a cart line. Zero removes the line; an
// unknown item id leaves the cart untouched and is not an error.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if itemID == "" {
		return nil, apperrors.InvalidInput("item id is required")
	}
	if quantity > MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if cart.FindItemIndex(itemID) < 0 {
		s.logger.DebugContext(ctx, "quantity update for unknown cart item ignored",
			slog.String("user_id", userID),
			slog.String("item_id", itemID),
		)
		return cart, nil
	}

	expectedVersion := cart.Version
	cart.UpdateQuantity(itemID, quantity)
	cart.UpdatedAt = time.Now().UTC()

	if err := s.saveAndPublish(ctx, cart, expectedVersion); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "cart item quantity updated",
		slog.String("user_id", userID),
		slog.String("item_id", itemID),
		slog.Int("quantity", quantity),
	)

	return cart, nil
}

// RemoveItem removes a line from the cart. An unknown item id leaves the cart
// untouched and is not an error.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if itemID == "" {
		return nil, apperrors.InvalidInput("item id is required")
	}

	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if cart.FindItemIndex(itemID) < 0 {
		return cart, nil
	}

	expectedVersion := cart.Version
	cart.RemoveItem(itemID)
	cart.UpdatedAt = time.Now().UTC()

	if err := s.saveAndPublish(ctx, cart, expectedVersion); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("user_id", userID),
		slog.String("item_id", itemID),
	)

	return cart, nil
}

// UpdateItemDetails replaces the size, color, and image of a cart line while
// keeping its identity key stable. An unknown item id leaves the cart
// untouched and is not an error.
func (s *CartService) UpdateItemDetails(ctx context.Context, userID, itemID string, input UpdateDetailsInput) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if itemID == "" {
		return nil, apperrors.InvalidInput("item id is required")
	}

	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if cart.FindItemIndex(itemID) < 0 {
		return cart, nil
	}

	expectedVersion := cart.Version
	cart.UpdateItemDetails(itemID, input.SelectedSize, input.SelectedColor, input.SelectedImage)
	cart.UpdatedAt = time.Now().UTC()

	if err := s.saveAndPublish(ctx, cart, expectedVersion); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "cart item details replaced",
		slog.String("user_id", userID),
		slog.String("item_id", itemID),
	)

	return cart, nil
}

// OpenCart marks the cart drawer as visible.
func (s *CartService) OpenCart(ctx context.Context, userID string) (*domain.Cart, error) {
	return s.setOpen(ctx, userID, true)
}

// CloseCart hides the cart drawer.
func (s *CartService) CloseCart(ctx context.Context, userID string) (*domain.Cart, error) {
	return s.setOpen(ctx, userID, false)
}

func (s *CartService) setOpen(ctx context.Context, userID string, open bool) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	expectedVersion := cart.Version
	if open {
		cart.Open()
	} else {
		cart.Close()
	}
	cart.UpdatedAt = time.Now().UTC()

	ok, err := s.repo.SaveIfVersion(ctx, cart, expectedVersion)
	if err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	if !ok {
		return nil, apperrors.Conflict("cart was modified concurrently, please retry")
	}

	return cart, nil
}

// ClearCart removes the user's cart entirely. It is called after a confirmed
// order and by the explicit clear endpoint; an order failure never reaches it.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	if userID == "" {
		return apperrors.InvalidInput("user id is required")
	}

	if err := s.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}

	if err := s.producer.PublishCartCleared(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "cart cleared",
		slog.String("user_id", userID),
	)

	return nil
}

// saveAndPublish persists the cart with optimistic locking and emits a
// cart.updated event. Publish failures are logged, not surfaced: the cart
// write is the source of truth.
func (s *CartService) saveAndPublish(ctx context.Context, cart *domain.Cart, expectedVersion int) error {
	ok, err := s.repo.SaveIfVersion(ctx, cart, expectedVersion)
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	if !ok {
		return apperrors.Conflict("cart was modified concurrently, please retry")
	}

	if err := s.producer.PublishCartUpdated(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("user_id", cart.UserID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// getOrCreateCart retrieves the cart for a user, creating an empty one if it
// does not exist.
func (s *CartService) getOrCreateCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.newEmptyCart(userID), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// newEmptyCart creates a new empty cart for the given user.
func (s *CartService) newEmptyCart(userID string) *domain.Cart {
	now := time.Now().UTC()
	return &domain.Cart{
		ID:        uuid.New().String(),
		UserID:    userID,
		Items:     []domain.LineItem{},
		Coupon:    domain.NewCouponState(),
		Currency:  "USD",
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
