package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Submission status constants.
const (
	SubmissionPending          = "pending"
	SubmissionCreatingCustomer = "creating_customer"
	SubmissionCreatingOrder    = "creating_order"
	SubmissionSucceeded        = "succeeded"
	SubmissionFailed           = "failed"
)

// Submission step status constants.
const (
	StepPending   = "pending"
	StepCompleted = "completed"
	StepFailed    = "failed"
)

// Submission step name constants. Customer creation runs before order
// creation; there is no compensation step, so an order failure after customer
// creation leaves the customer record in place.
const (
	StepCreateCustomer = "create_customer"
	StepCreateOrder    = "create_order"
)

// SubmissionStep tracks the execution of a single step in the order
// submission pipeline.
type SubmissionStep struct {
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	ExecutedAt time.Time `json:"executed_at,omitempty"`
}

// NewSubmissionStep creates a step in the pending state.
func NewSubmissionStep(name string) SubmissionStep {
	return SubmissionStep{
		Name:   name,
		Status: StepPending,
	}
}

// Complete marks the step as successfully completed.
func (s *SubmissionStep) Complete() {
	s.Status = StepCompleted
	s.ExecutedAt = time.Now().UTC()
}

// Fail marks the step as failed with the given error message.
func (s *SubmissionStep) Fail(err string) {
	s.Status = StepFailed
	s.Error = err
	s.ExecutedAt = time.Now().UTC()
}

// Address represents a shipping or billing address.
type Address struct {
	FullName    string `json:"full_name"`
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	State       string `json:"state,omitempty"`
	PostalCode  string `json:"postal_code"`
	Country     string `json:"country"`
	Phone       string `json:"phone,omitempty"`
}

// OrderLine is a cart line frozen into an order submission.
type OrderLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Submission is the persistent record of one order submission attempt. It
// freezes the cart lines and the price breakdown at submission time and walks
// the status machine pending -> creating_customer -> creating_order ->
// succeeded or failed.
type Submission struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	Status          string           `json:"status"`
	Items           []OrderLine      `json:"items"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
	Discount        decimal.Decimal  `json:"discount"`
	Shipping        decimal.Decimal  `json:"shipping"`
	Tax             decimal.Decimal  `json:"tax"`
	Total           decimal.Decimal  `json:"total"`
	Currency        string           `json:"currency"`
	CouponCode      string           `json:"coupon_code,omitempty"`
	PaymentMethod   string           `json:"payment_method"`
	ShippingAddress Address          `json:"shipping_address"`
	BillingAddress  Address          `json:"billing_address"`
	Notes           string           `json:"notes,omitempty"`
	CustomerID      string           `json:"customer_id,omitempty"`
	OrderNumber     string           `json:"order_number,omitempty"`
	FailureReason   string           `json:"failure_reason,omitempty"`
	Steps           []SubmissionStep `json:"steps"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// IsTerminal returns true if the submission reached a final state.
func (s *Submission) IsTerminal() bool {
	return s.Status == SubmissionSucceeded || s.Status == SubmissionFailed
}

// MarkFailed moves the submission to the failed state with the given reason.
func (s *Submission) MarkFailed(reason string) {
	s.Status = SubmissionFailed
	s.FailureReason = reason
	s.UpdatedAt = time.Now().UTC()
}

// Step returns a pointer to the named step, or nil if the submission has no
// such step.
func (s *Submission) Step(name string) *SubmissionStep {
	for i := range s.Steps {
		if s.Steps[i].Name == name {
			return &s.Steps[i]
		}
	}
	return nil
}

// ValidSubmissionStatuses returns the set of valid submission statuses.
func ValidSubmissionStatuses() []string {
	return []string{
		SubmissionPending,
		SubmissionCreatingCustomer,
		SubmissionCreatingOrder,
		SubmissionSucceeded,
		SubmissionFailed,
	}
}

// IsValidSubmissionStatus checks whether the given string is a valid
// submission status.
func IsValidSubmissionStatus(status string) bool {
	for _, s := range ValidSubmissionStatuses() {
		if s == status {
			return true
		}
	}
	return false
}
