package payment

import (
	"context"
	"errors"

	"github.com/comicink/backend-tees/internal/pricing"
)

// ErrGatewayUnavailable wraps transport-level failures talking to the
// payment provider. Callers treat it as transient and never retry a
// capture without the original idempotency key.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// ErrCaptureDeclined indicates the provider refused to capture funds.
var ErrCaptureDeclined = errors.New("payment capture declined")

// Status is the normalized provider-side state of a payment.
type Status string

const (
	StatusCreated  Status = "created"
	StatusApproved Status = "approved"
	StatusPaid     Status = "paid"
	StatusDeclined Status = "declined"
)

// CreateOrderRequest carries the server-priced amount to the provider.
// The breakdown fields are sent explicitly so the provider re-checks
// that the components sum to the total.
type CreateOrderRequest struct {
	ReferenceID string
	Currency    string
	Breakdown   pricing.Breakdown
}

// GatewayOrder is the provider's handle for a created payment.
type GatewayOrder struct {
	ID         string
	Status     Status
	ApproveURL string
}

// CaptureResult is the normalized outcome of a capture attempt.
type CaptureResult struct {
	Status        Status
	TransactionID string
	Raw           []byte
}

// Gateway abstracts the payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (GatewayOrder, error)
	CaptureOrder(ctx context.Context, gatewayOrderID string) (CaptureResult, error)
}
