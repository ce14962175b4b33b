package order

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/comicink/backend-tees/internal/cart"
	"github.com/comicink/backend-tees/internal/pricing"
)

// ErrNotFound indicates the order does not exist.
var ErrNotFound = errors.New("order not found")

// ErrNotPending indicates a state transition was attempted on an order
// that already left the pending state.
var ErrNotPending = errors.New("order is not pending")

// Status enumerates the order lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// Address is the shipping destination captured at checkout.
type Address struct {
	Name       string `bson:"name" json:"name" validate:"required"`
	Line1      string `bson:"line1" json:"line1" validate:"required"`
	Line2      string `bson:"line2,omitempty" json:"line2,omitempty"`
	City       string `bson:"city" json:"city" validate:"required"`
	State      string `bson:"state,omitempty" json:"state,omitempty"`
	PostalCode string `bson:"postalCode" json:"postalCode" validate:"required"`
	Country    string `bson:"country" json:"country" validate:"required,iso3166_1_alpha2"`
}

// Order is a placed order. Pricing is the server-computed breakdown;
// nothing client-supplied ever becomes the charged amount.
type Order struct {
	ID             bson.ObjectID          `bson:"_id,omitempty" json:"id"`
	Reference      string                 `bson:"reference" json:"reference"`
	UserID         string                 `bson:"userId" json:"userId"`
	Email          string                 `bson:"email,omitempty" json:"email,omitempty"`
	Items          []cart.LineItem        `bson:"items" json:"items"`
	Pricing        pricing.Breakdown      `bson:"pricing" json:"pricing"`
	Currency       string                 `bson:"currency" json:"currency"`
	Status         Status                 `bson:"status" json:"status"`
	ShippingMethod pricing.ShippingMethod `bson:"shippingMethod" json:"shippingMethod"`
	CouponCode     string                 `bson:"couponCode,omitempty" json:"couponCode,omitempty"`
	GatewayOrderID string                 `bson:"gatewayOrderId,omitempty" json:"-"`
	TransactionID  string                 `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	Address        Address                `bson:"address" json:"address"`
	CreatedAt      time.Time              `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time              `bson:"updatedAt" json:"updatedAt"`
	PaidAt         *time.Time             `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
}

// Store captures order persistence. MarkPaid must be conditional on the
// order still being pending so a replayed capture cannot double-settle.
type Store interface {
	Create(ctx context.Context, o Order) (Order, error)
	GetByID(ctx context.Context, id bson.ObjectID) (Order, error)
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (Order, error)
	ListByUser(ctx context.Context, userID string, page, perPage int) ([]Order, int64, error)
	MarkPaid(ctx context.Context, id bson.ObjectID, transactionID string, paidAt time.Time) error
	UpdateStatus(ctx context.Context, id bson.ObjectID, status Status) error
	SetGatewayOrderID(ctx context.Context, id bson.ObjectID, gatewayOrderID string) error
}
