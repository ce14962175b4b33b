package cart

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/comicink/backend-tees/internal/common"
	"github.com/comicink/backend-tees/internal/discount"
	"github.com/comicink/backend-tees/internal/obs"
)

// Handler wires cart services to HTTP. All routes require an
// authenticated user; guest carts live on the client until merged.
type Handler struct {
	Svc *Service
}

// Routes mounts the cart endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Get)
	r.Post("/items", h.AddItem)
	r.Put("/items", h.UpdateItem)
	r.Delete("/items", h.RemoveItem)
	r.Post("/merge", h.Merge)
	r.Post("/coupon", h.ApplyCoupon)
	r.Delete("/coupon", h.RemoveCoupon)
	return r
}

func (h *Handler) user(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid, ok := common.UserID(r.Context())
	if !ok || uid == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return "", false
	}
	return uid, true
}

// Get returns the user's cart, creating an empty one on first access.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.user(w, r)
	if !ok {
		return
	}
	c, err := h.Svc.Ensure(r.Context(), uid)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, cartBody(c, 0))
}

// AddItem adds one item to the cart. A single invalid item is a client
// error here, unlike the tolerant batch merge.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.user(w, r)
	if !ok {
		return
	}
	var raw RawItem
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid item payload", nil)
		return
	}
	c, err := h.Svc.AddItem(r.Context(), uid, raw)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, cartBody(c, 0))
}

// UpdateItem sets the quantity on an existing line item.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.user(w, r)
	if !ok {
		return
	}
	var payload struct {
		ProductID string `json:"productId"`
		Size      string `json:"size"`
		Color     string `json:"color"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid item payload", nil)
		return
	}
	c, err := h.Svc.UpdateQty(r.Context(), uid, itemKeyFrom(payload.ProductID, payload.Size, payload.Color), payload.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, cartBody(c, 0))
}

// RemoveItem deletes a line item identified by its variant key.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.user(w, r)
	if !ok {
		return
	}
	var payload struct {
		ProductID string `json:"productId"`
		Size      string `json:"size"`
		Color     string `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid item payload", nil)
		return
	}
	c, err := h.Svc.RemoveItem(r.Context(), uid, itemKeyFrom(payload.ProductID, payload.Size, payload.Color))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, cartBody(c, 0))
}

// Merge folds a client-held guest cart into the user's server cart.
// The body must be {"items": [...]}; anything else is rejected whole,
// while individually malformed items are dropped and counted.
func (h *Handler) Merge(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.user(w, r)
	if !ok {
		return
	}
	var payload struct {
		Items *[]RawItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Items == nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "body must contain an items array", nil)
		return
	}
	c, dropped, err := h.Svc.MergeGuest(r.Context(), uid, *payload.Items)
	if err != nil {
		if obs.CartMergeTotal != nil {
			obs.CartMergeTotal.WithLabelValues("error").Inc()
		}
		h.writeError(w, err)
		return
	}
	if obs.CartMergeTotal != nil {
		obs.CartMergeTotal.WithLabelValues("ok").Inc()
	}
	if dropped > 0 && obs.CartItemsDropped != nil {
		obs.CartItemsDropped.Add(float64(dropped))
	}
	common.JSONData(w, http.StatusOK, cartBody(c, dropped))
}

// ApplyCoupon validates a code against the cart subtotal and stores it.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.user(w, r)
	if !ok {
		return
	}
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || strings.TrimSpace(payload.Code) == "" {
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "coupon code required", nil)
		return
	}
	quote, err := h.Svc.ApplyCoupon(r.Context(), uid, payload.Code)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]any{
		"code":               quote.Code,
		"discountPercentage": quote.Percent,
		"discountAmount":     quote.Amount,
	})
}

// RemoveCoupon clears the applied coupon.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.user(w, r)
	if !ok {
		return
	}
	if err := h.Svc.RemoveCoupon(r.Context(), uid); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]any{"removed": true})
}

func itemKeyFrom(productID, size, color string) ItemKey {
	size = strings.TrimSpace(size)
	if size == "" {
		size = DefaultSize
	}
	color = strings.TrimSpace(color)
	if color == "" {
		color = DefaultColor
	}
	return ItemKey{ProductID: strings.TrimSpace(productID), Size: size, Color: color}
}

func cartBody(c Cart, dropped int) map[string]any {
	body := map[string]any{
		"id":       c.ID.Hex(),
		"items":    c.Items,
		"subtotal": c.Subtotal(),
	}
	if c.CouponCode != "" {
		body["couponCode"] = c.CouponCode
	}
	if dropped > 0 {
		body["droppedItems"] = dropped
	}
	return body
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		code := appErr.Code
		if code == "" {
			code = "BAD_REQUEST"
		}
		common.JSONError(w, status, code, appErr.Message, appErr.Details)
		return
	}
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidProductID), errors.Is(err, ErrInvalidQuantity):
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error(), nil)
	case errors.Is(err, ErrItemNotFound):
		common.JSONError(w, http.StatusNotFound, "ITEM_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrConflict):
		common.JSONError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case errors.Is(err, discount.ErrInvalidCoupon):
		common.JSONError(w, http.StatusNotFound, "COUPON_INVALID", err.Error(), nil)
	case errors.Is(err, discount.ErrCouponInactive):
		common.JSONError(w, http.StatusBadRequest, "COUPON_INACTIVE", err.Error(), nil)
	case errors.Is(err, discount.ErrCouponNotYetValid):
		common.JSONError(w, http.StatusBadRequest, "COUPON_NOT_YET_VALID", err.Error(), nil)
	case errors.Is(err, discount.ErrCouponExpired):
		common.JSONError(w, http.StatusBadRequest, "COUPON_EXPIRED", err.Error(), nil)
	case errors.Is(err, discount.ErrCouponLimitReached):
		common.JSONError(w, http.StatusBadRequest, "COUPON_LIMIT_REACHED", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
