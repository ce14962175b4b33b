package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/comicink/backend-tees/internal/common"
	"github.com/comicink/backend-tees/internal/discount"
	"github.com/comicink/backend-tees/internal/payment"
	"github.com/comicink/backend-tees/internal/pricing"
)

// Handler exposes the checkout endpoint.
type Handler struct {
	Svc *Service
}

// Checkout handles POST /checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	uid, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid checkout payload", nil)
		return
	}
	res, err := h.Svc.Checkout(r.Context(), uid, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, res)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verr validator.ValidationErrors
	if errors.As(err, &verr) {
		details := map[string]any{}
		for _, fe := range verr {
			details[fe.Field()] = fe.Tag()
		}
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "checkout payload failed validation", details)
		return
	}
	switch {
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusBadRequest, "EMPTY_CART", err.Error(), nil)
	case errors.Is(err, ErrUnknownProducts):
		common.JSONError(w, http.StatusConflict, "UNKNOWN_PRODUCTS", err.Error(), nil)
	case errors.Is(err, pricing.ErrInvalidShippingMethod):
		common.JSONError(w, http.StatusBadRequest, "INVALID_SHIPPING_METHOD", err.Error(), nil)
	case errors.Is(err, payment.ErrGatewayUnavailable):
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "payment provider unavailable", nil)
	case errors.Is(err, discount.ErrInvalidCoupon),
		errors.Is(err, discount.ErrCouponInactive),
		errors.Is(err, discount.ErrCouponNotYetValid),
		errors.Is(err, discount.ErrCouponExpired),
		errors.Is(err, discount.ErrCouponLimitReached):
		discount.WriteError(w, err)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
