package domain

import "github.com/shopspring/decimal"

// CouponStatus enumerates the states of the cart's coupon slot. The slot holds
// at most one coupon; applying a second requires removing the first.
type CouponStatus string

const (
	// CouponNone means no coupon has been attempted.
	CouponNone CouponStatus = "none"
	// CouponApplied means a coupon passed validation and its discount counts
	// toward the total.
	CouponApplied CouponStatus = "applied"
	// CouponInvalid means the last attempted code was rejected. The rejection
	// is kept so the UI can display it; it contributes no discount.
	CouponInvalid CouponStatus = "invalid"
	// CouponExpired means the last attempted code was recognized but past its
	// validity window.
	CouponExpired CouponStatus = "expired"
)

// CouponValidation is the outcome of validating a code against the campaign
// service.
type CouponValidation struct {
	Code               string
	Valid              bool
	Expired            bool
	DiscountAmount     decimal.Decimal
	DiscountPercentage decimal.Decimal
	Description        string
	Message            string
}

// CouponState is the cart's single coupon slot.
type CouponState struct {
	Status             CouponStatus    `json:"status"`
	Code               string          `json:"code,omitempty"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	Description        string          `json:"description,omitempty"`
	Message            string          `json:"message,omitempty"`
}

// NewCouponState returns an empty coupon slot.
func NewCouponState() CouponState {
	return CouponState{Status: CouponNone}
}

// Apply records a validation outcome in the slot. It returns false when a
// coupon is already applied: an applied coupon is never overwritten, not even
// by a failed attempt with another code, and must be removed first.
func (s *CouponState) Apply(result CouponValidation) bool {
	if s.Status == CouponApplied {
		return false
	}

	switch {
	case result.Expired:
		*s = CouponState{Status: CouponExpired, Code: result.Code, Message: result.Message}
	case !result.Valid:
		*s = CouponState{Status: CouponInvalid, Code: result.Code, Message: result.Message}
	default:
		*s = CouponState{
			Status:             CouponApplied,
			Code:               result.Code,
			DiscountAmount:     result.DiscountAmount,
			DiscountPercentage: result.DiscountPercentage,
			Description:        result.Description,
			Message:            result.Message,
		}
	}
	return true
}

// Remove resets the slot regardless of its current state. This is the only
// transition out of the applied state.
func (s *CouponState) Remove() {
	*s = NewCouponState()
}

// Discount returns the amount to subtract from the order total. Only an
// applied coupon contributes; invalid and expired attempts are worth zero.
func (s CouponState) Discount() decimal.Decimal {
	if s.Status == CouponApplied {
		return s.DiscountAmount
	}
	return decimal.Zero
}
