package payment

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/comicink/backend-tees/internal/common"
	"github.com/comicink/backend-tees/internal/obs"
	"github.com/comicink/backend-tees/internal/order"
)

// Handler exposes the capture endpoint.
type Handler struct {
	Svc *Service
}

// Routes mounts the payment endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/capture", h.Capture)
	return r
}

// Capture handles POST /payments/capture after the shopper approved
// the payment at the provider.
func (h *Handler) Capture(w http.ResponseWriter, r *http.Request) {
	uid, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var payload struct {
		OrderID string `json:"orderId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.OrderID == "" {
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "orderId required", nil)
		return
	}
	id, err := bson.ObjectIDFromHex(payload.OrderID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid order id", nil)
		return
	}
	out, err := h.Svc.Capture(r.Context(), uid, id)
	if obs.CaptureTotal != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		obs.CaptureTotal.WithLabelValues(result).Inc()
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]any{
		"order":          out.Order,
		"alreadySettled": out.AlreadySettled,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, order.ErrNotFound), errors.Is(err, ErrNotOwner):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
	case errors.Is(err, order.ErrNotPending):
		common.JSONError(w, http.StatusConflict, "ORDER_NOT_PENDING", err.Error(), nil)
	case errors.Is(err, ErrCaptureDeclined):
		common.JSONError(w, http.StatusPaymentRequired, "PAYMENT_DECLINED", err.Error(), nil)
	case errors.Is(err, ErrNotApproved):
		common.JSONError(w, http.StatusConflict, "PAYMENT_NOT_APPROVED", err.Error(), nil)
	case errors.Is(err, ErrGatewayUnavailable):
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "payment provider unavailable", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
