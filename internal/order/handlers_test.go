package order

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/comicink/backend-tees/internal/common"
)

type stubOrderStore struct {
	orders map[bson.ObjectID]Order
}

func newStubOrderStore() *stubOrderStore {
	return &stubOrderStore{orders: map[bson.ObjectID]Order{}}
}

func (s *stubOrderStore) Create(_ context.Context, o Order) (Order, error) {
	o.ID = bson.NewObjectID()
	s.orders[o.ID] = o
	return o, nil
}

func (s *stubOrderStore) GetByID(_ context.Context, id bson.ObjectID) (Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (s *stubOrderStore) GetByGatewayOrderID(_ context.Context, gid string) (Order, error) {
	for _, o := range s.orders {
		if o.GatewayOrderID == gid {
			return o, nil
		}
	}
	return Order{}, ErrNotFound
}

func (s *stubOrderStore) ListByUser(_ context.Context, userID string, page, perPage int) ([]Order, int64, error) {
	var out []Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, int64(len(out)), nil
}

func (s *stubOrderStore) MarkPaid(_ context.Context, id bson.ObjectID, txID string, at time.Time) error {
	o, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	if o.Status != StatusPending {
		return ErrNotPending
	}
	o.Status = StatusPaid
	o.TransactionID = txID
	o.PaidAt = &at
	s.orders[id] = o
	return nil
}

func (s *stubOrderStore) UpdateStatus(_ context.Context, id bson.ObjectID, status Status) error {
	o, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	s.orders[id] = o
	return nil
}

func (s *stubOrderStore) SetGatewayOrderID(_ context.Context, id bson.ObjectID, gid string) error {
	o, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.GatewayOrderID = gid
	s.orders[id] = o
	return nil
}

var _ Store = (*stubOrderStore)(nil)

func doRequest(h *Handler, path, userID, role string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if userID != "" {
		req = req.WithContext(common.WithUser(req.Context(), userID, role))
	}
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	return rr
}

func TestListReturnsOnlyOwnOrders(t *testing.T) {
	store := newStubOrderStore()
	_, err := store.Create(context.Background(), Order{UserID: "user-1", Reference: "CI-AAAA1111"})
	require.NoError(t, err)
	_, err = store.Create(context.Background(), Order{UserID: "user-2", Reference: "CI-BBBB2222"})
	require.NoError(t, err)

	rr := doRequest(&Handler{S: store}, "/", "user-1", "customer")

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "CI-AAAA1111")
	require.NotContains(t, rr.Body.String(), "CI-BBBB2222")
}

func TestListRequiresAuthentication(t *testing.T) {
	rr := doRequest(&Handler{S: newStubOrderStore()}, "/", "", "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGetForeignOrderReportsNotFound(t *testing.T) {
	store := newStubOrderStore()
	o, err := store.Create(context.Background(), Order{UserID: "user-1"})
	require.NoError(t, err)

	rr := doRequest(&Handler{S: store}, "/"+o.ID.Hex(), "user-2", "customer")

	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetAdminSeesAnyOrder(t *testing.T) {
	store := newStubOrderStore()
	o, err := store.Create(context.Background(), Order{UserID: "user-1", Reference: "CI-CCCC3333"})
	require.NoError(t, err)

	rr := doRequest(&Handler{S: store}, "/"+o.ID.Hex(), "admin-1", common.RoleAdmin)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "CI-CCCC3333")
}

func TestGetRejectsMalformedID(t *testing.T) {
	rr := doRequest(&Handler{S: newStubOrderStore()}, "/not-an-id", "user-1", "customer")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
