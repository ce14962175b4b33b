package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/comicink/backend-tees/internal/discount"
	"github.com/comicink/backend-tees/internal/money"
)

type stubCartStore struct {
	mu       sync.Mutex
	carts    map[string]Cart
	conflict int
}

func newStubCartStore() *stubCartStore {
	return &stubCartStore{carts: map[string]Cart{}}
}

func (s *stubCartStore) GetByUser(_ context.Context, userID string) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[userID]
	if !ok {
		return Cart{}, ErrNotFound
	}
	return c, nil
}

func (s *stubCartStore) Create(_ context.Context, c Cart) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = bson.NewObjectID()
	s.carts[c.UserID] = c
	return c, nil
}

func (s *stubCartStore) ReplaceItems(_ context.Context, id bson.ObjectID, rev int64, items []LineItem, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conflict > 0 {
		s.conflict--
		return ErrConflict
	}
	for uid, c := range s.carts {
		if c.ID == id {
			if c.Rev != rev {
				return ErrConflict
			}
			c.Items = items
			c.Rev++
			c.ExpiresAt = expiresAt
			s.carts[uid] = c
			return nil
		}
	}
	return ErrNotFound
}

func (s *stubCartStore) SetCoupon(_ context.Context, id bson.ObjectID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for uid, c := range s.carts {
		if c.ID == id {
			c.CouponCode = code
			s.carts[uid] = c
			return nil
		}
	}
	return ErrNotFound
}

type stubValidator struct {
	quote discount.Quote
	err   error

	gotCode     string
	gotSubtotal money.Amount
}

func (v *stubValidator) ValidateAndPrice(_ context.Context, code string, subtotal money.Amount) (discount.Quote, error) {
	v.gotCode = code
	v.gotSubtotal = subtotal
	if v.err != nil {
		return discount.Quote{}, v.err
	}
	return v.quote, nil
}

func newCartService(store *stubCartStore) *Service {
	return &Service{
		S:   store,
		Now: func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
		TTL: 48 * time.Hour,
	}
}

func TestEnsureCreatesEmptyCart(t *testing.T) {
	store := newStubCartStore()
	svc := newCartService(store)

	c, err := svc.Ensure(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, "user-1", c.UserID)
	require.Empty(t, c.Items)
	require.Equal(t, c.CreatedAt.Add(48*time.Hour), c.ExpiresAt)

	again, err := svc.Ensure(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, c.ID, again.ID)
}

func TestAddItemRejectsInvalidProduct(t *testing.T) {
	store := newStubCartStore()
	svc := newCartService(store)

	_, err := svc.AddItem(context.Background(), "user-1", RawItem{ProductID: "nope"})
	require.ErrorIs(t, err, ErrInvalidProductID)
}

func TestAddItemAccumulatesQuantity(t *testing.T) {
	store := newStubCartStore()
	svc := newCartService(store)
	raw := RawItem{
		ProductID: "64a7f0c2b3d4e5f60718293a",
		Name:      "Kapow Tee",
		Price:     LooseNumber{Value: 2500, Valid: true},
		Size:      "L",
		Color:     "Red",
		Quantity:  LooseNumber{Value: 2, Valid: true},
	}

	_, err := svc.AddItem(context.Background(), "user-1", raw)
	require.NoError(t, err)
	c, err := svc.AddItem(context.Background(), "user-1", raw)
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	require.Equal(t, 4, c.Items[0].Qty)
	require.EqualValues(t, 10000, c.Subtotal())
}

func TestMergeGuestReportsDropped(t *testing.T) {
	store := newStubCartStore()
	svc := newCartService(store)

	guest := []RawItem{
		{ProductID: "64a7f0c2b3d4e5f60718293a", Price: LooseNumber{Value: 999, Valid: true}, Quantity: LooseNumber{Value: 1, Valid: true}},
		{ProductID: "not-a-product"},
		{ProductID: ""},
	}
	c, dropped, err := svc.MergeGuest(context.Background(), "user-1", guest)
	require.NoError(t, err)
	require.Equal(t, 2, dropped)
	require.Len(t, c.Items, 1)
}

func TestUpdateQtyAndRemove(t *testing.T) {
	store := newStubCartStore()
	svc := newCartService(store)
	raw := RawItem{ProductID: "64a7f0c2b3d4e5f60718293a", Price: LooseNumber{Value: 500, Valid: true}, Quantity: LooseNumber{Value: 1, Valid: true}}
	_, err := svc.AddItem(context.Background(), "user-1", raw)
	require.NoError(t, err)

	key := ItemKey{ProductID: "64a7f0c2b3d4e5f60718293a", Size: DefaultSize, Color: DefaultColor}

	c, err := svc.UpdateQty(context.Background(), "user-1", key, 7)
	require.NoError(t, err)
	require.Equal(t, 7, c.Items[0].Qty)

	_, err = svc.UpdateQty(context.Background(), "user-1", key, 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.UpdateQty(context.Background(), "user-1", ItemKey{ProductID: "64a7f0c2b3d4e5f60718293a", Size: "XL", Color: DefaultColor}, 1)
	require.ErrorIs(t, err, ErrItemNotFound)

	c, err = svc.RemoveItem(context.Background(), "user-1", key)
	require.NoError(t, err)
	require.Empty(t, c.Items)

	_, err = svc.RemoveItem(context.Background(), "user-1", key)
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestMutationRetriesOnConflict(t *testing.T) {
	store := newStubCartStore()
	svc := newCartService(store)
	raw := RawItem{ProductID: "64a7f0c2b3d4e5f60718293a", Price: LooseNumber{Value: 500, Valid: true}, Quantity: LooseNumber{Value: 1, Valid: true}}

	_, err := svc.AddItem(context.Background(), "user-1", raw)
	require.NoError(t, err)

	store.mu.Lock()
	store.conflict = 2
	store.mu.Unlock()

	c, err := svc.AddItem(context.Background(), "user-1", raw)
	require.NoError(t, err)
	require.Equal(t, 2, c.Items[0].Qty)
}

func TestMutationGivesUpAfterRetries(t *testing.T) {
	store := newStubCartStore()
	svc := newCartService(store)
	svc.MaxRetries = 2
	raw := RawItem{ProductID: "64a7f0c2b3d4e5f60718293a", Price: LooseNumber{Value: 500, Valid: true}, Quantity: LooseNumber{Value: 1, Valid: true}}

	_, err := svc.AddItem(context.Background(), "user-1", raw)
	require.NoError(t, err)

	store.mu.Lock()
	store.conflict = 10
	store.mu.Unlock()

	_, err = svc.AddItem(context.Background(), "user-1", raw)
	require.ErrorIs(t, err, ErrConflict)
}

func TestConcurrentAddsConserveQuantity(t *testing.T) {
	store := newStubCartStore()
	svc := newCartService(store)
	svc.MaxRetries = 20
	raw := RawItem{ProductID: "64a7f0c2b3d4e5f60718293a", Price: LooseNumber{Value: 500, Valid: true}, Quantity: LooseNumber{Value: 1, Valid: true}}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddItem(context.Background(), "user-1", raw)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err := svc.Ensure(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	require.Equal(t, 8, c.Items[0].Qty)
}

func TestApplyCouponUsesCartSubtotal(t *testing.T) {
	store := newStubCartStore()
	svc := newCartService(store)
	val := &stubValidator{quote: discount.Quote{Code: "BAMPOW10", Percent: 10, Amount: 100}}
	svc.Coupons = val

	raw := RawItem{ProductID: "64a7f0c2b3d4e5f60718293a", Price: LooseNumber{Value: 500, Valid: true}, Quantity: LooseNumber{Value: 2, Valid: true}}
	_, err := svc.AddItem(context.Background(), "user-1", raw)
	require.NoError(t, err)

	q, err := svc.ApplyCoupon(context.Background(), "user-1", "bampow10")
	require.NoError(t, err)
	require.Equal(t, "BAMPOW10", q.Code)
	require.EqualValues(t, 1000, val.gotSubtotal)

	c, err := svc.Ensure(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, "BAMPOW10", c.CouponCode)
}

func TestApplyCouponPropagatesValidationError(t *testing.T) {
	store := newStubCartStore()
	svc := newCartService(store)
	svc.Coupons = &stubValidator{err: discount.ErrCouponExpired}

	_, err := svc.ApplyCoupon(context.Background(), "user-1", "OLD")
	require.ErrorIs(t, err, discount.ErrCouponExpired)

	c, err := svc.Ensure(context.Background(), "user-1")
	require.NoError(t, err)
	require.Empty(t, c.CouponCode)
}

func TestRemoveCouponClearsCode(t *testing.T) {
	store := newStubCartStore()
	svc := newCartService(store)
	svc.Coupons = &stubValidator{quote: discount.Quote{Code: "BAMPOW10", Percent: 10}}

	_, err := svc.ApplyCoupon(context.Background(), "user-1", "BAMPOW10")
	require.NoError(t, err)
	require.NoError(t, svc.RemoveCoupon(context.Background(), "user-1"))

	c, err := svc.Ensure(context.Background(), "user-1")
	require.NoError(t, err)
	require.Empty(t, c.CouponCode)
}

func TestEnsureRequiresUser(t *testing.T) {
	svc := newCartService(newStubCartStore())
	_, err := svc.Ensure(context.Background(), "")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidInput))
}
