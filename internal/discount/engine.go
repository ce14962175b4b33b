package discount

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/comicink/backend-tees/internal/money"
)

var (
	// ErrInvalidCoupon is returned when no coupon exists for the code.
	ErrInvalidCoupon = errors.New("coupon code not found")
	// ErrCouponInactive is returned when the coupon status is not active.
	ErrCouponInactive = errors.New("coupon is not active")
	// ErrCouponNotYetValid is returned before the coupon's start time.
	ErrCouponNotYetValid = errors.New("coupon is not yet valid")
	// ErrCouponExpired is returned after the coupon's expiry time.
	ErrCouponExpired = errors.New("coupon has expired")
	// ErrCouponLimitReached indicates the usage quota is exhausted.
	ErrCouponLimitReached = errors.New("coupon usage limit reached")
	// ErrInvalidPercentage rejects admin writes outside 0-100.
	ErrInvalidPercentage = errors.New("discount percentage must be between 0 and 100")
)

// Status enumerates the coupon lifecycle states.
type Status string

const (
	StatusActive   Status = "active"
	StatusExpired  Status = "expired"
	StatusInactive Status = "inactive"
)

// Discount is a coupon record. Codes are stored canonicalized to
// uppercase; a nil MaxUsage or time bound means unlimited/unbounded.
type Discount struct {
	ID         bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Code       string        `bson:"code" json:"code"`
	Percent    int           `bson:"discountPercentage" json:"discountPercentage"`
	UsageCount int64         `bson:"usageCount" json:"usageCount"`
	MaxUsage   *int64        `bson:"maxUsageLimit,omitempty" json:"maxUsageLimit,omitempty"`
	Status     Status        `bson:"status" json:"status"`
	StartsAt   *time.Time    `bson:"startsAt,omitempty" json:"startsAt,omitempty"`
	ExpiresAt  *time.Time    `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	CreatedAt  time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// Usage records one settled coupon use. The (couponId, orderId) pair is
// unique, which is what makes settlement idempotent per order.
type Usage struct {
	ID       bson.ObjectID `bson:"_id,omitempty"`
	CouponID bson.ObjectID `bson:"couponId"`
	OrderID  string        `bson:"orderId"`
	UserID   string        `bson:"userId,omitempty"`
	Amount   money.Amount  `bson:"amount"`
	UsedAt   time.Time     `bson:"usedAt"`
}

// Quote is the priced outcome of a successful validation.
type Quote struct {
	Code    string       `json:"code"`
	Percent int          `json:"discountPercentage"`
	Amount  money.Amount `json:"discountAmount"`
}

// CanonicalCode normalizes a coupon code for lookup and storage.
func CanonicalCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate applies the documented checks in order; the first failing
// check wins. An expired-but-still-active coupon therefore fails with
// ErrCouponExpired even when its usage quota is also exhausted.
func (d Discount) Validate(now time.Time) error {
	if d.Status != StatusActive {
		return ErrCouponInactive
	}
	if d.StartsAt != nil && d.StartsAt.After(now) {
		return ErrCouponNotYetValid
	}
	if d.ExpiresAt != nil && d.ExpiresAt.Before(now) {
		return ErrCouponExpired
	}
	if d.MaxUsage != nil && d.UsageCount >= *d.MaxUsage {
		return ErrCouponLimitReached
	}
	return nil
}

// PriceQuote computes the discount amount for a subtotal, rounded
// half-up to the minor unit.
func (d Discount) PriceQuote(subtotal money.Amount) Quote {
	return Quote{
		Code:    d.Code,
		Percent: d.Percent,
		Amount:  money.Percent(subtotal, d.Percent),
	}
}

// ValidatePercentage guards admin writes.
func ValidatePercentage(pct int) error {
	if pct < 0 || pct > 100 {
		return ErrInvalidPercentage
	}
	return nil
}
