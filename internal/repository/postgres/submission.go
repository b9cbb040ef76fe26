// Package postgres provides the PostgreSQL-backed submission repository.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Haseeb71/zagro-storefront/pkg/database"
	apperrors "github.com/Haseeb71/zagro-storefront/pkg/errors"

	"github.com/Haseeb71/zagro-storefront/internal/domain"
)

const submissionColumns = `id, user_id, status, items,
		subtotal, discount, shipping, tax, total,
		currency, coupon_code, payment_method,
		shipping_address, billing_address, notes,
		customer_id, order_number, failure_reason, steps,
		created_at, updated_at`

// SubmissionRepository implements repository.SubmissionRepository using
// PostgreSQL.
type SubmissionRepository struct {
	db database.DBTX
}

// NewSubmissionRepository creates a new PostgreSQL-backed submission repository.
func NewSubmissionRepository(db database.DBTX) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create inserts a new submission record.
func (r *SubmissionRepository) Create(ctx context.Context, sub *domain.Submission) error {
	itemsJSON, shippingJSON, billingJSON, stepsJSON, err := marshalFields(sub)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO order_submissions (` + submissionColumns + `
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9,
			$10, $11, $12,
			$13, $14, $15,
			$16, $17, $18, $19,
			$20, $21
		)`

	_, err = r.db.Exec(ctx, query,
		sub.ID,
		sub.UserID,
		sub.Status,
		itemsJSON,
		sub.Subtotal,
		sub.Discount,
		sub.Shipping,
		sub.Tax,
		sub.Total,
		sub.Currency,
		nullableString(sub.CouponCode),
		sub.PaymentMethod,
		shippingJSON,
		billingJSON,
		nullableString(sub.Notes),
		nullableString(sub.CustomerID),
		nullableString(sub.OrderNumber),
		nullableString(sub.FailureReason),
		stepsJSON,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}

	return nil
}

// Update modifies an existing submission record.
func (r *SubmissionRepository) Update(ctx context.Context, sub *domain.Submission) error {
	itemsJSON, shippingJSON, billingJSON, stepsJSON, err := marshalFields(sub)
	if err != nil {
		return err
	}

	sub.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE order_submissions
		SET status = $1, items = $2,
			subtotal = $3, discount = $4, shipping = $5, tax = $6, total = $7,
			currency = $8, coupon_code = $9, payment_method = $10,
			shipping_address = $11, billing_address = $12, notes = $13,
			customer_id = $14, order_number = $15, failure_reason = $16, steps = $17,
			updated_at = $18
		WHERE id = $19`

	ct, err := r.db.Exec(ctx, query,
		sub.Status,
		itemsJSON,
		sub.Subtotal,
		sub.Discount,
		sub.Shipping,
		sub.Tax,
		sub.Total,
		sub.Currency,
		nullableString(sub.CouponCode),
		sub.PaymentMethod,
		shippingJSON,
		billingJSON,
		nullableString(sub.Notes),
		nullableString(sub.CustomerID),
		nullableString(sub.OrderNumber),
		nullableString(sub.FailureReason),
		stepsJSON,
		sub.UpdatedAt,
		sub.ID,
	)
	if err != nil {
		return fmt.Errorf("update submission: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("submission", sub.ID)
	}

	return nil
}

// GetByID retrieves a submission by its ID.
func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*domain.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM order_submissions
		WHERE id = $1`

	sub, err := scanSubmission(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("submission", id)
		}
		return nil, fmt.Errorf("get submission: %w", err)
	}

	return sub, nil
}

// ListByUser returns the user's most recent submissions, newest first.
func (r *SubmissionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM order_submissions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	subs := []domain.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission row: %w", err)
		}
		subs = append(subs, *sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submission rows: %w", err)
	}

	return subs, nil
}

// scanSubmission scans one submission from a row. pgx.Row and pgx.Rows share
// the Scan signature, so both single-row and multi-row paths go through here.
func scanSubmission(row pgx.Row) (*domain.Submission, error) {
	var (
		sub           domain.Submission
		itemsJSON     []byte
		shippingJSON  []byte
		billingJSON   []byte
		stepsJSON     []byte
		couponCode    *string
		notes         *string
		customerID    *string
		orderNumber   *string
		failureReason *string
	)

	if err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.Status,
		&itemsJSON,
		&sub.Subtotal,
		&sub.Discount,
		&sub.Shipping,
		&sub.Tax,
		&sub.Total,
		&sub.Currency,
		&couponCode,
		&sub.PaymentMethod,
		&shippingJSON,
		&billingJSON,
		&notes,
		&customerID,
		&orderNumber,
		&failureReason,
		&stepsJSON,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if itemsJSON != nil {
		if err := json.Unmarshal(itemsJSON, &sub.Items); err != nil {
			return nil, fmt.Errorf("unmarshal items: %w", err)
		}
	}
	if sub.Items == nil {
		sub.Items = []domain.OrderLine{}
	}

	if shippingJSON != nil {
		if err := json.Unmarshal(shippingJSON, &sub.ShippingAddress); err != nil {
			return nil, fmt.Errorf("unmarshal shipping address: %w", err)
		}
	}
	if billingJSON != nil {
		if err := json.Unmarshal(billingJSON, &sub.BillingAddress); err != nil {
			return nil, fmt.Errorf("unmarshal billing address: %w", err)
		}
	}

	if stepsJSON != nil {
		if err := json.Unmarshal(stepsJSON, &sub.Steps); err != nil {
			return nil, fmt.Errorf("unmarshal steps: %w", err)
		}
	}
	if sub.Steps == nil {
		sub.Steps = []domain.SubmissionStep{}
	}

	if couponCode != nil {
		sub.CouponCode = *couponCode
	}
	if notes != nil {
		sub.Notes = *notes
	}
	if customerID != nil {
		sub.CustomerID = *customerID
	}
	if orderNumber != nil {
		sub.OrderNumber = *orderNumber
	}
	if failureReason != nil {
		sub.FailureReason = *failureReason
	}

	return &sub, nil
}

// marshalFields serializes the JSON document columns of a submission.
func marshalFields(sub *domain.Submission) (items, shipping, billing, steps []byte, err error) {
	items, err = json.Marshal(sub.Items)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal items: %w", err)
	}
	shipping, err = json.Marshal(sub.ShippingAddress)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal shipping address: %w", err)
	}
	billing, err = json.Marshal(sub.BillingAddress)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal billing address: %w", err)
	}
	steps, err = json.Marshal(sub.Steps)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal steps: %w", err)
	}
	return items, shipping, billing, steps, nil
}

// nullableString returns nil for the empty string so optional columns store
// NULL instead of "".
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
