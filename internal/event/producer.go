// Package event publishes storefront domain events to Kafka.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	pkgkafka "github.com/Haseeb71/zagro-storefront/pkg/kafka"

	"github.com/Haseeb71/zagro-storefront/internal/domain"
)

// Kafka topic constants for storefront domain events.
const (
	TopicCartUpdated    = "storefront.cart.updated"
	TopicCartCleared    = "storefront.cart.cleared"
	TopicOrderSubmitted = "storefront.order.submitted"
	TopicOrderFailed    = "storefront.order.failed"
)

// Aggregate type constants.
const (
	AggregateTypeCart       = "cart"
	AggregateTypeSubmission = "order_submission"
)

// Source identifier for events originating from the storefront service.
const SourceStorefront = "storefront-service"

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	UserID     string          `json:"user_id"`
	Items      []CartLineData  `json:"items"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Currency   string          `json:"currency"`
}

// CartLineData is the line payload within cart events.
type CartLineData struct {
	ItemID    string          `json:"item_id"`
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	UserID string `json:"user_id"`
}

// OrderSubmittedData is the payload for an order.submitted event.
type OrderSubmittedData struct {
	SubmissionID string          `json:"submission_id"`
	UserID       string          `json:"user_id"`
	CustomerID   string          `json:"customer_id"`
	OrderNumber  string          `json:"order_number"`
	Total        decimal.Decimal `json:"total"`
	Currency     string          `json:"currency"`
}

// OrderFailedData is the payload for an order.failed event.
type OrderFailedData struct {
	SubmissionID  string `json:"submission_id"`
	UserID        string `json:"user_id"`
	FailedStep    string `json:"failed_step"`
	FailureReason string `json:"failure_reason"`
}

// Producer publishes storefront domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the storefront service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCartUpdated publishes a cart.updated event after any cart mutation.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart *domain.Cart) error {
	items := make([]CartLineData, len(cart.Items))
	for i, item := range cart.Items {
		items[i] = CartLineData{
			ItemID:    item.ID,
			ProductID: item.Product.ProductID,
			Name:      item.Product.Name,
			Size:      item.SelectedSize,
			Color:     item.SelectedColor,
			Price:     item.Product.Price,
			Quantity:  item.Quantity,
		}
	}

	data := CartUpdatedData{
		UserID:     cart.UserID,
		Items:      items,
		TotalItems: cart.TotalItems,
		TotalPrice: cart.TotalPrice,
		Currency:   cart.Currency,
	}

	event, err := pkgkafka.NewEvent(TopicCartUpdated, cart.UserID, AggregateTypeCart, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create cart.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartUpdated, event); err != nil {
		return fmt.Errorf("publish cart.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.String("user_id", cart.UserID),
		slog.Int("total_items", cart.TotalItems),
	)

	return nil
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, userID string) error {
	event, err := pkgkafka.NewEvent(TopicCartCleared, userID, AggregateTypeCart, SourceStorefront, CartClearedData{UserID: userID})
	if err != nil {
		return fmt.Errorf("create cart.cleared event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartCleared, event); err != nil {
		return fmt.Errorf("publish cart.cleared event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.cleared event",
		slog.String("user_id", userID),
	)

	return nil
}

// PublishOrderSubmitted publishes an order.submitted event for a successful
// submission.
func (p *Producer) PublishOrderSubmitted(ctx context.Context, sub *domain.Submission) error {
	data := OrderSubmittedData{
		SubmissionID: sub.ID,
		UserID:       sub.UserID,
		CustomerID:   sub.CustomerID,
		OrderNumber:  sub.OrderNumber,
		Total:        sub.Total,
		Currency:     sub.Currency,
	}

	event, err := pkgkafka.NewEvent(TopicOrderSubmitted, sub.ID, AggregateTypeSubmission, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create order.submitted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderSubmitted, event); err != nil {
		return fmt.Errorf("publish order.submitted event: %w", err)
	}

	p.logger.InfoContext(ctx, "published order.submitted event",
		slog.String("submission_id", sub.ID),
		slog.String("order_number", sub.OrderNumber),
	)

	return nil
}

// PublishOrderFailed publishes an order.failed event for a failed submission.
func (p *Producer) PublishOrderFailed(ctx context.Context, sub *domain.Submission, failedStep string) error {
	data := OrderFailedData{
		SubmissionID:  sub.ID,
		UserID:        sub.UserID,
		FailedStep:    failedStep,
		FailureReason: sub.FailureReason,
	}

	event, err := pkgkafka.NewEvent(TopicOrderFailed, sub.ID, AggregateTypeSubmission, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create order.failed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderFailed, event); err != nil {
		return fmt.Errorf("publish order.failed event: %w", err)
	}

	p.logger.WarnContext(ctx, "published order.failed event",
		slog.String("submission_id", sub.ID),
		slog.String("failed_step", failedStep),
	)

	return nil
}
