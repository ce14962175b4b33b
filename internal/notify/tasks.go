package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/comicink/backend-tees/internal/common"
	"github.com/comicink/backend-tees/internal/money"
)

// TypeOrderConfirmation is the asynq task type for post-payment mail.
const TypeOrderConfirmation = "email:order_confirmation"

// OrderConfirmationPayload is the task body for a confirmation email.
type OrderConfirmationPayload struct {
	OrderID   string       `json:"orderId"`
	Reference string       `json:"reference"`
	UserID    string       `json:"userId"`
	Email     string       `json:"email,omitempty"`
	Total     money.Amount `json:"total"`
}

func (p OrderConfirmationPayload) displayRef() string {
	if p.Reference != "" {
		return p.Reference
	}
	return p.OrderID
}

// NewOrderConfirmationTask builds the asynq task for a captured order.
func NewOrderConfirmationTask(p OrderConfirmationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeOrderConfirmation, data), nil
}

// Worker handles notification tasks on the asynq consumer side.
type Worker struct {
	Sender common.EmailSender
	Log    zerolog.Logger
}

// Register binds task handlers onto the asynq mux.
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeOrderConfirmation, w.HandleOrderConfirmation)
}

// HandleOrderConfirmation renders and sends the confirmation email. A
// payload without a recipient is acknowledged, not retried.
func (w *Worker) HandleOrderConfirmation(_ context.Context, t *asynq.Task) error {
	var p OrderConfirmationPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if p.Email == "" {
		w.Log.Warn().Str("orderId", p.OrderID).Msg("confirmation skipped, no recipient")
		return nil
	}
	subject := fmt.Sprintf("Your ComicInk order %s is confirmed", p.displayRef())
	html := fmt.Sprintf(
		"<h1>Thanks for your order!</h1><p>Order <b>%s</b> is paid. Total charged: <b>%d.%02d</b>.</p>",
		p.displayRef(), p.Total/100, p.Total%100,
	)
	if err := w.Sender.Send(p.Email, subject, html); err != nil {
		return fmt.Errorf("send confirmation for order %s: %w", p.OrderID, err)
	}
	w.Log.Info().Str("orderId", p.OrderID).Msg("confirmation email sent")
	return nil
}
