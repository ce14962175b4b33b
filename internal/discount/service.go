package discount

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/comicink/backend-tees/internal/money"
)

// ErrNotFound indicates the requested coupon record does not exist.
var ErrNotFound = errors.New("discount not found")

// ErrDuplicateUsage indicates a settlement record already exists for the
// (coupon, order) pair.
var ErrDuplicateUsage = errors.New("discount usage already recorded")

// Store captures the persistence operations the resolver needs.
// IncrementUsage must be an atomic read-modify-write conditioned on
// remaining capacity so that concurrent settlements can never push
// usageCount past maxUsageLimit.
type Store interface {
	GetByCode(ctx context.Context, code string) (Discount, error)
	GetByID(ctx context.Context, id bson.ObjectID) (Discount, error)
	Create(ctx context.Context, d Discount) (Discount, error)
	Update(ctx context.Context, d Discount) (Discount, error)
	Delete(ctx context.Context, id bson.ObjectID) error
	List(ctx context.Context, page, perPage int) ([]Discount, int64, error)
	MarkExpired(ctx context.Context, id bson.ObjectID) error
	Deactivate(ctx context.Context, id bson.ObjectID) error
	UsageExists(ctx context.Context, couponID bson.ObjectID, orderID string) (bool, error)
	InsertUsage(ctx context.Context, u Usage) error
	IncrementUsage(ctx context.Context, id bson.ObjectID) (Discount, error)
}

// Service resolves coupon codes against their activity window and usage
// limits, and settles usage after captured payments.
type Service struct {
	S   Store
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ValidateAndPrice checks a code against the current instant and prices
// the discount for the given subtotal. It has one deliberate side
// effect: a coupon read past its expiry is persisted as expired. It
// never touches the usage count, so validation is replayable.
func (s *Service) ValidateAndPrice(ctx context.Context, code string, subtotal money.Amount) (Quote, error) {
	if s == nil || s.S == nil {
		return Quote{}, errors.New("discount service not configured")
	}
	canonical := CanonicalCode(code)
	if canonical == "" {
		return Quote{}, ErrInvalidCoupon
	}
	d, err := s.S.GetByCode(ctx, canonical)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Quote{}, ErrInvalidCoupon
		}
		return Quote{}, err
	}
	if err := d.Validate(s.now()); err != nil {
		if errors.Is(err, ErrCouponExpired) {
			// best effort; validation fails with Expired either way
			_ = s.S.MarkExpired(ctx, d.ID)
		}
		return Quote{}, err
	}
	return d.PriceQuote(subtotal), nil
}

// RecordUsage settles one coupon use for a captured order. It is
// idempotent per order: a retry for the same order neither inserts a
// second usage record nor increments the counter again. The increment
// itself is conditioned on remaining capacity; when it reaches the
// limit the coupon is deactivated.
func (s *Service) RecordUsage(ctx context.Context, code, orderID, userID string, amount money.Amount) error {
	if s == nil || s.S == nil {
		return errors.New("discount service not configured")
	}
	canonical := CanonicalCode(code)
	if canonical == "" || orderID == "" {
		return nil
	}
	d, err := s.S.GetByCode(ctx, canonical)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	exists, err := s.S.UsageExists(ctx, d.ID, orderID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	usage := Usage{
		CouponID: d.ID,
		OrderID:  orderID,
		UserID:   userID,
		Amount:   money.Clamp(amount),
		UsedAt:   s.now(),
	}
	if err := s.S.InsertUsage(ctx, usage); err != nil {
		if errors.Is(err, ErrDuplicateUsage) {
			return nil
		}
		return err
	}
	updated, err := s.S.IncrementUsage(ctx, d.ID)
	if err != nil {
		return err
	}
	if updated.MaxUsage != nil && updated.UsageCount >= *updated.MaxUsage {
		if err := s.S.Deactivate(ctx, updated.ID); err != nil {
			return err
		}
	}
	return nil
}

// CreateDiscount validates and stores a new coupon with a canonical code.
func (s *Service) CreateDiscount(ctx context.Context, d Discount) (Discount, error) {
	if s == nil || s.S == nil {
		return Discount{}, errors.New("discount service not configured")
	}
	d.Code = CanonicalCode(d.Code)
	if d.Code == "" {
		return Discount{}, ErrInvalidCoupon
	}
	if err := ValidatePercentage(d.Percent); err != nil {
		return Discount{}, err
	}
	if d.Status == "" {
		d.Status = StatusActive
	}
	now := s.now()
	d.CreatedAt = now
	d.UpdatedAt = now
	return s.S.Create(ctx, d)
}

// UpdateDiscount applies admin edits to an existing coupon.
func (s *Service) UpdateDiscount(ctx context.Context, d Discount) (Discount, error) {
	if s == nil || s.S == nil {
		return Discount{}, errors.New("discount service not configured")
	}
	d.Code = CanonicalCode(d.Code)
	if err := ValidatePercentage(d.Percent); err != nil {
		return Discount{}, err
	}
	d.UpdatedAt = s.now()
	return s.S.Update(ctx, d)
}
