package cart

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/comicink/backend-tees/internal/discount"
	"github.com/comicink/backend-tees/internal/money"
)

// ErrNotFound indicates the requested cart could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrItemNotFound indicates the cart has no line item with the given key.
var ErrItemNotFound = errors.New("cart item not found")

// ErrInvalidQuantity rejects quantity updates below one.
var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// ErrConflict signals the cart changed underneath an item mutation. The
// service retries mutations on conflict; a raw overwrite of another
// request's items is never an acceptable resolution.
var ErrConflict = errors.New("cart was modified concurrently")

// Cart is a user's server-held cart. Rev guards item writes: every
// change to Items must go through the merge-aware mutation path with the
// revision it read, so two concurrent writers cannot clobber each other.
type Cart struct {
	ID         bson.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     string        `bson:"userId" json:"userId"`
	Items      []LineItem    `bson:"items" json:"items"`
	CouponCode string        `bson:"couponCode,omitempty" json:"couponCode,omitempty"`
	Rev        int64         `bson:"rev" json:"-"`
	CreatedAt  time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time     `bson:"updatedAt" json:"updatedAt"`
	ExpiresAt  time.Time     `bson:"expiresAt" json:"expiresAt"`
}

// Subtotal sums the extended price of every line item.
func (c Cart) Subtotal() money.Amount {
	var total money.Amount
	for _, it := range c.Items {
		total += it.Subtotal()
	}
	return total
}

// Store captures the persistence operations for carts. ReplaceItems must
// fail with ErrConflict when rev no longer matches the stored revision.
type Store interface {
	GetByUser(ctx context.Context, userID string) (Cart, error)
	Create(ctx context.Context, c Cart) (Cart, error)
	ReplaceItems(ctx context.Context, id bson.ObjectID, rev int64, items []LineItem, expiresAt time.Time) error
	SetCoupon(ctx context.Context, id bson.ObjectID, code string) error
}

// CouponValidator prices a coupon code against a subtotal without side
// effects on the usage counter.
type CouponValidator interface {
	ValidateAndPrice(ctx context.Context, code string, subtotal money.Amount) (discount.Quote, error)
}

// Service encapsulates cart domain operations.
type Service struct {
	S          Store
	Coupons    CouponValidator
	TTL        time.Duration
	Now        func() time.Time
	MaxRetries int
}

func (s *Service) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) retries() int {
	if s == nil || s.MaxRetries <= 0 {
		return 3
	}
	return s.MaxRetries
}

// Ensure loads the user's active cart, creating an empty one if needed.
func (s *Service) Ensure(ctx context.Context, userID string) (Cart, error) {
	if s == nil || s.S == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	if userID == "" {
		return Cart{}, ErrInvalidInput
	}
	c, err := s.S.GetByUser(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Cart{}, err
	}
	now := s.now()
	return s.S.Create(ctx, Cart{
		UserID:    userID,
		Items:     []LineItem{},
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.ttl()),
	})
}

// mutateItems applies fn to the current item set and writes the result
// back under the revision it read, retrying a bounded number of times
// when a concurrent writer got there first.
func (s *Service) mutateItems(ctx context.Context, userID string, fn func([]LineItem) ([]LineItem, error)) (Cart, error) {
	var lastErr error
	for attempt := 0; attempt < s.retries(); attempt++ {
		c, err := s.Ensure(ctx, userID)
		if err != nil {
			return Cart{}, err
		}
		items, err := fn(c.Items)
		if err != nil {
			return Cart{}, err
		}
		expires := s.now().Add(s.ttl())
		if err := s.S.ReplaceItems(ctx, c.ID, c.Rev, items, expires); err != nil {
			if errors.Is(err, ErrConflict) {
				lastErr = err
				continue
			}
			return Cart{}, err
		}
		c.Items = items
		c.Rev++
		c.ExpiresAt = expires
		return c, nil
	}
	return Cart{}, lastErr
}

// AddItem normalizes and adds a single item to the cart. Unlike batch
// merges, an invalid item here is a loud error rather than a silent drop.
func (s *Service) AddItem(ctx context.Context, userID string, raw RawItem) (Cart, error) {
	if _, err := Normalize(raw); err != nil {
		return Cart{}, err
	}
	return s.mutateItems(ctx, userID, func(items []LineItem) ([]LineItem, error) {
		return Merge(items, []RawItem{raw}).Items, nil
	})
}

// MergeGuest folds a client-held guest cart into the user's server cart.
// Invalid guest items are dropped and counted, never fatal.
func (s *Service) MergeGuest(ctx context.Context, userID string, guest []RawItem) (Cart, int, error) {
	dropped := 0
	c, err := s.mutateItems(ctx, userID, func(items []LineItem) ([]LineItem, error) {
		res := Merge(items, guest)
		dropped = res.Dropped
		return res.Items, nil
	})
	return c, dropped, err
}

// UpdateQty sets the quantity of an existing line item.
func (s *Service) UpdateQty(ctx context.Context, userID string, key ItemKey, qty int) (Cart, error) {
	if qty < 1 {
		return Cart{}, ErrInvalidQuantity
	}
	return s.mutateItems(ctx, userID, func(items []LineItem) ([]LineItem, error) {
		for i := range items {
			if items[i].Key() == key {
				out := make([]LineItem, len(items))
				copy(out, items)
				out[i].Qty = qty
				return out, nil
			}
		}
		return nil, ErrItemNotFound
	})
}

// RemoveItem deletes the line item with the given key.
func (s *Service) RemoveItem(ctx context.Context, userID string, key ItemKey) (Cart, error) {
	return s.mutateItems(ctx, userID, func(items []LineItem) ([]LineItem, error) {
		out := make([]LineItem, 0, len(items))
		found := false
		for _, it := range items {
			if it.Key() == key {
				found = true
				continue
			}
			out = append(out, it)
		}
		if !found {
			return nil, ErrItemNotFound
		}
		return out, nil
	})
}

// ApplyCoupon validates the code against the cart's current subtotal
// and remembers it on the cart. Usage is not recorded here; that only
// happens after a captured payment.
func (s *Service) ApplyCoupon(ctx context.Context, userID, code string) (discount.Quote, error) {
	if s == nil || s.Coupons == nil {
		return discount.Quote{}, errors.New("cart service not configured")
	}
	c, err := s.Ensure(ctx, userID)
	if err != nil {
		return discount.Quote{}, err
	}
	quote, err := s.Coupons.ValidateAndPrice(ctx, code, c.Subtotal())
	if err != nil {
		return discount.Quote{}, err
	}
	if err := s.S.SetCoupon(ctx, c.ID, quote.Code); err != nil {
		return discount.Quote{}, err
	}
	return quote, nil
}

// Clear empties the cart and removes any applied coupon.
func (s *Service) Clear(ctx context.Context, userID string) error {
	if _, err := s.mutateItems(ctx, userID, func([]LineItem) ([]LineItem, error) {
		return []LineItem{}, nil
	}); err != nil {
		return err
	}
	return s.RemoveCoupon(ctx, userID)
}

// RemoveCoupon clears any applied coupon from the cart.
func (s *Service) RemoveCoupon(ctx context.Context, userID string) error {
	c, err := s.Ensure(ctx, userID)
	if err != nil {
		return err
	}
	return s.S.SetCoupon(ctx, c.ID, "")
}
