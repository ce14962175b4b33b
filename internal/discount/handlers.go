package discount

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/comicink/backend-tees/internal/common"
	"github.com/comicink/backend-tees/internal/money"
	"github.com/comicink/backend-tees/internal/obs"
)

// Handler exposes coupon validation to shoppers and CRUD to admins.
type Handler struct {
	Svc *Service
}

// PublicRoutes mounts the shopper-facing validation endpoint.
func (h *Handler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/validate", h.Validate)
	return r
}

// AdminRoutes mounts the coupon management endpoints.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	return r
}

type discountPayload struct {
	Code      string     `json:"code"`
	Percent   int        `json:"discountPercentage"`
	MaxUsage  *int64     `json:"maxUsageLimit"`
	Status    string     `json:"status"`
	StartsAt  *time.Time `json:"startsAt"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// Validate prices a coupon code against a caller-supplied subtotal. The
// subtotal here is advisory; checkout re-prices from the server cart.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Code     string       `json:"code"`
		Subtotal money.Amount `json:"subtotal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || strings.TrimSpace(payload.Code) == "" {
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "coupon code required", nil)
		return
	}
	quote, err := h.Svc.ValidateAndPrice(r.Context(), payload.Code, money.Clamp(payload.Subtotal))
	if obs.CouponValidationTotal != nil {
		obs.CouponValidationTotal.WithLabelValues(validationResult(err)).Inc()
	}
	if err != nil {
		WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, quote)
}

// List returns coupons newest first with pagination.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	items, total, err := h.Svc.S.List(r.Context(), page, perPage)
	if err != nil {
		WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       items,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: total},
	})
}

// Create stores a new coupon.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload discountPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid coupon payload", nil)
		return
	}
	d, err := h.Svc.CreateDiscount(r.Context(), Discount{
		Code:      payload.Code,
		Percent:   payload.Percent,
		MaxUsage:  payload.MaxUsage,
		Status:    Status(payload.Status),
		StartsAt:  payload.StartsAt,
		ExpiresAt: payload.ExpiresAt,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, d)
}

// GetByID returns one coupon.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := bson.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid coupon id", nil)
		return
	}
	d, err := h.Svc.S.GetByID(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, d)
}

// Update applies admin edits to a coupon.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := bson.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid coupon id", nil)
		return
	}
	existing, err := h.Svc.S.GetByID(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	var payload discountPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid coupon payload", nil)
		return
	}
	existing.Code = payload.Code
	existing.Percent = payload.Percent
	existing.MaxUsage = payload.MaxUsage
	if payload.Status != "" {
		existing.Status = Status(payload.Status)
	}
	existing.StartsAt = payload.StartsAt
	existing.ExpiresAt = payload.ExpiresAt
	d, err := h.Svc.UpdateDiscount(r.Context(), existing)
	if err != nil {
		WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, d)
}

// Delete removes a coupon.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := bson.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid coupon id", nil)
		return
	}
	if err := h.Svc.S.Delete(r.Context(), id); err != nil {
		WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusNoContent, nil)
}

func validationResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidCoupon):
		return "invalid"
	case errors.Is(err, ErrCouponInactive):
		return "inactive"
	case errors.Is(err, ErrCouponNotYetValid):
		return "not_yet_valid"
	case errors.Is(err, ErrCouponExpired):
		return "expired"
	case errors.Is(err, ErrCouponLimitReached):
		return "limit_reached"
	default:
		return "error"
	}
}

// WriteError maps coupon errors to HTTP responses. Validation failures
// carry their specific reason so the shopper sees why a code failed.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
	case errors.Is(err, ErrInvalidCoupon), errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "COUPON_INVALID", "coupon code not found", nil)
	case errors.Is(err, ErrCouponInactive):
		common.JSONError(w, http.StatusBadRequest, "COUPON_INACTIVE", err.Error(), nil)
	case errors.Is(err, ErrCouponNotYetValid):
		common.JSONError(w, http.StatusBadRequest, "COUPON_NOT_YET_VALID", err.Error(), nil)
	case errors.Is(err, ErrCouponExpired):
		common.JSONError(w, http.StatusBadRequest, "COUPON_EXPIRED", err.Error(), nil)
	case errors.Is(err, ErrCouponLimitReached):
		common.JSONError(w, http.StatusBadRequest, "COUPON_LIMIT_REACHED", err.Error(), nil)
	case errors.Is(err, ErrInvalidPercentage):
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
