package catalog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type stubCatalogStore struct {
	mu       sync.Mutex
	products map[bson.ObjectID]Product
	getCalls int
}

func (s *stubCatalogStore) GetByID(_ context.Context, id bson.ObjectID) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	p, ok := s.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (s *stubCatalogStore) List(_ context.Context, category string, _, _ int) ([]Product, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		if category == "" || p.Category == category {
			out = append(out, p)
		}
	}
	return out, int64(len(out)), nil
}

func (s *stubCatalogStore) ExistsMany(_ context.Context, ids []bson.ObjectID) (map[bson.ObjectID]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[bson.ObjectID]bool, len(ids))
	for _, id := range ids {
		_, ok := s.products[id]
		out[id] = ok
	}
	return out, nil
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestGetCachesProduct(t *testing.T) {
	cache, _ := newTestCache(t)
	id := bson.NewObjectID()
	store := &stubCatalogStore{products: map[bson.ObjectID]Product{
		id: {ID: id, Name: "Kapow Tee", Price: 2500, Published: true},
	}}
	svc := &Service{S: store, Cache: cache}

	p, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "Kapow Tee", p.Name)

	p, err = svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "Kapow Tee", p.Name)
	require.Equal(t, 1, store.getCalls)
}

func TestGetFallsThroughOnCacheExpiry(t *testing.T) {
	cache, mr := newTestCache(t)
	id := bson.NewObjectID()
	store := &stubCatalogStore{products: map[bson.ObjectID]Product{
		id: {ID: id, Name: "Zap Tee", Price: 1999},
	}}
	svc := &Service{S: store, Cache: cache}

	_, err := svc.Get(context.Background(), id)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 2, store.getCalls)
}

func TestGetNotFound(t *testing.T) {
	cache, _ := newTestCache(t)
	svc := &Service{S: &stubCatalogStore{products: map[bson.ObjectID]Product{}}, Cache: cache}

	_, err := svc.Get(context.Background(), bson.NewObjectID())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNilCacheIsTransparent(t *testing.T) {
	id := bson.NewObjectID()
	store := &stubCatalogStore{products: map[bson.ObjectID]Product{
		id: {ID: id, Name: "Pow Tee"},
	}}
	svc := &Service{S: store}

	_, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	_, err = svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 2, store.getCalls)
}

func TestVerifyExistsReportsMissing(t *testing.T) {
	id := bson.NewObjectID()
	store := &stubCatalogStore{products: map[bson.ObjectID]Product{
		id: {ID: id},
	}}
	svc := &Service{S: store}

	ghost := bson.NewObjectID()
	missing, err := svc.VerifyExists(context.Background(), []string{id.Hex(), ghost.Hex(), "garbage"})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{ghost.Hex(), "garbage"}, missing)
}
