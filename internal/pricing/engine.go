package pricing

import (
	"errors"
	"strings"

	"github.com/comicink/backend-tees/internal/money"
)

// ErrInvalidShippingMethod is returned for any shipping method other
// than standard or express.
var ErrInvalidShippingMethod = errors.New("invalid shipping method")

// ShippingMethod selects how the order is delivered.
type ShippingMethod string

const (
	ShippingStandard ShippingMethod = "standard"
	ShippingExpress  ShippingMethod = "express"
)

// ParseShippingMethod normalizes a client-supplied shipping method.
func ParseShippingMethod(value string) (ShippingMethod, error) {
	switch ShippingMethod(strings.ToLower(strings.TrimSpace(value))) {
	case ShippingStandard:
		return ShippingStandard, nil
	case ShippingExpress:
		return ShippingExpress, nil
	default:
		return "", ErrInvalidShippingMethod
	}
}

// Item is one line considered for pricing.
type Item struct {
	Qty       int
	UnitPrice money.Amount
}

// Breakdown is the authoritative pricing snapshot for an order. This
// exact breakdown, and nothing recomputed from client input, is what is
// handed to the payment gateway and persisted with the order.
type Breakdown struct {
	Subtotal money.Amount `bson:"subtotal" json:"subtotal"`
	Discount money.Amount `bson:"discount" json:"discount"`
	Shipping money.Amount `bson:"shipping" json:"shipping"`
	Tax      money.Amount `bson:"tax" json:"tax"`
	Total    money.Amount `bson:"total" json:"total"`
}

// Config holds the deployment's pricing knobs. Rates and the threshold
// are minor-unit amounts; the tax rate is carried in basis points.
type Config struct {
	TaxBps                int
	StandardRate          money.Amount
	ExpressRate           money.Amount
	FreeShippingThreshold money.Amount
}

// ShippingCost resolves the delivery cost for a method and subtotal.
// Standard shipping is free once the subtotal exceeds the configured
// threshold; express is always the flat express rate.
func (c Config) ShippingCost(method ShippingMethod, subtotal money.Amount) (money.Amount, error) {
	switch method {
	case ShippingExpress:
		return c.ExpressRate, nil
	case ShippingStandard:
		if subtotal > c.FreeShippingThreshold {
			return 0, nil
		}
		return c.StandardRate, nil
	default:
		return 0, ErrInvalidShippingMethod
	}
}

// Compute derives the full pricing breakdown for a canonical cart.
// Discount and tax are each rounded to the minor unit before the total
// is summed, so the total is a sum of already-rounded components and the
// displayed and charged amounts can never drift apart by a cent. Tax is
// applied to the post-discount amount; that ordering is load bearing.
func Compute(items []Item, method ShippingMethod, discount money.Amount, cfg Config) (Breakdown, error) {
	var subtotal money.Amount
	for _, it := range items {
		subtotal += money.Line(it.UnitPrice, it.Qty)
	}

	shipping, err := cfg.ShippingCost(method, subtotal)
	if err != nil {
		return Breakdown{}, err
	}

	if discount > subtotal {
		discount = subtotal
	}
	discount = money.Clamp(discount)

	taxable := money.Clamp(subtotal - discount)
	tax := money.Bps(taxable, cfg.TaxBps)

	return Breakdown{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping,
		Tax:      tax,
		Total:    taxable + shipping + tax,
	}, nil
}
