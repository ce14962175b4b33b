package payment

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/comicink/backend-tees/internal/discount"
	"github.com/comicink/backend-tees/internal/notify"
	"github.com/comicink/backend-tees/internal/order"
)

// ErrNotOwner indicates the caller does not own the order being captured.
var ErrNotOwner = errors.New("order does not belong to caller")

// ErrNotApproved indicates the provider has not approved the payment yet.
var ErrNotApproved = errors.New("payment not approved by provider")

// Enqueuer is the slice of asynq.Client used for post-capture tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Service settles payments. Capture is idempotent: replaying a capture
// for an already-paid order succeeds without side effects, and coupon
// usage is recorded at most once per order.
type Service struct {
	Orders  order.Store
	Gateway Gateway
	Coupons *discount.Service
	Tasks   Enqueuer
	Log     zerolog.Logger
	Now     func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CaptureOutcome reports the settled order back to the handler.
type CaptureOutcome struct {
	Order          order.Order
	AlreadySettled bool
}

// Capture captures the provider payment for a pending order and
// settles the order and its coupon usage.
func (s *Service) Capture(ctx context.Context, userID string, orderID bson.ObjectID) (CaptureOutcome, error) {
	o, err := s.Orders.GetByID(ctx, orderID)
	if err != nil {
		return CaptureOutcome{}, err
	}
	if o.UserID != userID {
		return CaptureOutcome{}, ErrNotOwner
	}
	if o.Status == order.StatusPaid {
		return CaptureOutcome{Order: o, AlreadySettled: true}, nil
	}
	if o.Status != order.StatusPending {
		return CaptureOutcome{}, order.ErrNotPending
	}

	res, err := s.Gateway.CaptureOrder(ctx, o.GatewayOrderID)
	if err != nil {
		return CaptureOutcome{}, err
	}
	if res.Status != StatusPaid {
		if res.Status == StatusDeclined {
			return CaptureOutcome{}, ErrCaptureDeclined
		}
		return CaptureOutcome{}, ErrNotApproved
	}

	paidAt := s.now()
	if err := s.Orders.MarkPaid(ctx, o.ID, res.TransactionID, paidAt); err != nil {
		if errors.Is(err, order.ErrNotPending) {
			// another capture settled first; report the stored state
			settled, gerr := s.Orders.GetByID(ctx, o.ID)
			if gerr != nil {
				return CaptureOutcome{}, gerr
			}
			return CaptureOutcome{Order: settled, AlreadySettled: true}, nil
		}
		return CaptureOutcome{}, err
	}
	o.Status = order.StatusPaid
	o.TransactionID = res.TransactionID
	o.PaidAt = &paidAt

	if o.CouponCode != "" && s.Coupons != nil {
		if err := s.Coupons.RecordUsage(ctx, o.CouponCode, o.ID.Hex(), o.UserID, o.Pricing.Discount); err != nil {
			s.Log.Error().Err(err).Str("orderId", o.ID.Hex()).Str("coupon", o.CouponCode).
				Msg("coupon usage settlement failed")
		}
	}
	s.enqueueConfirmation(ctx, o)

	return CaptureOutcome{Order: o}, nil
}

func (s *Service) enqueueConfirmation(ctx context.Context, o order.Order) {
	if s.Tasks == nil {
		return
	}
	task, err := notify.NewOrderConfirmationTask(notify.OrderConfirmationPayload{
		OrderID:   o.ID.Hex(),
		Reference: o.Reference,
		UserID:    o.UserID,
		Email:     o.Email,
		Total:     o.Pricing.Total,
	})
	if err != nil {
		s.Log.Error().Err(err).Str("orderId", o.ID.Hex()).Msg("build confirmation task")
		return
	}
	if _, err := s.Tasks.EnqueueContext(ctx, task, asynq.MaxRetry(5)); err != nil {
		s.Log.Error().Err(err).Str("orderId", o.ID.Hex()).Msg("enqueue confirmation task")
	}
}
