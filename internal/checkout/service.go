package checkout

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/comicink/backend-tees/internal/cart"
	"github.com/comicink/backend-tees/internal/catalog"
	"github.com/comicink/backend-tees/internal/discount"
	"github.com/comicink/backend-tees/internal/money"
	"github.com/comicink/backend-tees/internal/order"
	"github.com/comicink/backend-tees/internal/payment"
	"github.com/comicink/backend-tees/internal/pricing"
)

var (
	// ErrEmptyCart rejects checkout on a cart with no items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrUnknownProducts rejects checkout when a cart references
	// products the catalog no longer has.
	ErrUnknownProducts = errors.New("cart references unknown products")
)

// Input is the client's checkout request. Amounts never appear here;
// the pricing pipeline is the only source of the charged total.
type Input struct {
	ShippingMethod string        `json:"shippingMethod" validate:"required,oneof=standard express"`
	CouponCode     string        `json:"couponCode" validate:"omitempty,max=64"`
	Email          string        `json:"email" validate:"required,email"`
	Address        order.Address `json:"address" validate:"required"`
}

// Result is the created pending order plus what the client needs to
// continue at the payment provider.
type Result struct {
	Order      order.Order       `json:"order"`
	Breakdown  pricing.Breakdown `json:"breakdown"`
	ApproveURL string            `json:"approveUrl,omitempty"`
}

// Service turns a cart into a priced pending order with a provider
// payment attached.
type Service struct {
	Carts    *cart.Service
	Catalog  *catalog.Service
	Coupons  *discount.Service
	Orders   order.Store
	Gateway  payment.Gateway
	Pricing  pricing.Config
	Currency string
	Validate *validator.Validate
	Log      zerolog.Logger
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Checkout prices the user's cart and creates a pending order.
func (s *Service) Checkout(ctx context.Context, userID string, in Input) (Result, error) {
	if s.Validate != nil {
		if err := s.Validate.Struct(in); err != nil {
			return Result{}, err
		}
	}
	method, err := pricing.ParseShippingMethod(in.ShippingMethod)
	if err != nil {
		return Result{}, err
	}

	c, err := s.Carts.Ensure(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	if len(c.Items) == 0 {
		return Result{}, ErrEmptyCart
	}
	if err := s.verifyProducts(ctx, c.Items); err != nil {
		return Result{}, err
	}

	code := discount.CanonicalCode(in.CouponCode)
	if code == "" {
		code = discount.CanonicalCode(c.CouponCode)
	}
	var discountAmt money.Amount
	if code != "" {
		quote, err := s.Coupons.ValidateAndPrice(ctx, code, c.Subtotal())
		if err != nil {
			return Result{}, err
		}
		discountAmt = quote.Amount
		code = quote.Code
	}

	items := make([]pricing.Item, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, pricing.Item{Qty: it.Qty, UnitPrice: it.UnitPrice})
	}
	breakdown, err := pricing.Compute(items, method, discountAmt, s.Pricing)
	if err != nil {
		return Result{}, err
	}

	now := s.now()
	o, err := s.Orders.Create(ctx, order.Order{
		Reference:      newReference(),
		UserID:         userID,
		Email:          in.Email,
		Items:          c.Items,
		Pricing:        breakdown,
		Currency:       s.Currency,
		Status:         order.StatusPending,
		ShippingMethod: method,
		CouponCode:     code,
		Address:        in.Address,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return Result{}, err
	}

	gw, err := s.Gateway.CreateOrder(ctx, payment.CreateOrderRequest{
		ReferenceID: o.Reference,
		Currency:    s.Currency,
		Breakdown:   breakdown,
	})
	if err != nil {
		// the pending order stays for inspection, nothing was charged
		if serr := s.Orders.UpdateStatus(ctx, o.ID, order.StatusCancelled); serr != nil {
			s.Log.Error().Err(serr).Str("orderId", o.ID.Hex()).Msg("cancel order after gateway failure")
		}
		return Result{}, err
	}
	if err := s.Orders.SetGatewayOrderID(ctx, o.ID, gw.ID); err != nil {
		return Result{}, err
	}
	o.GatewayOrderID = gw.ID

	if err := s.Carts.Clear(ctx, userID); err != nil {
		s.Log.Warn().Err(err).Str("userId", userID).Msg("clear cart after checkout")
	}

	return Result{Order: o, Breakdown: breakdown, ApproveURL: gw.ApproveURL}, nil
}

func (s *Service) verifyProducts(ctx context.Context, items []cart.LineItem) error {
	if s.Catalog == nil {
		return nil
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	missing, err := s.Catalog.VerifyExists(ctx, ids)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return ErrUnknownProducts
	}
	return nil
}

// newReference mints the customer-facing order number, also used as the
// provider reference so support can correlate the two.
func newReference() string {
	return "CI-" + strings.ToUpper(uuid.NewString()[:8])
}
