package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/comicink/backend-tees/internal/money"
)

// ErrNotFound indicates the product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a published t-shirt design.
type Product struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string        `bson:"name" json:"name"`
	Slug        string        `bson:"slug" json:"slug"`
	Description string        `bson:"description,omitempty" json:"description,omitempty"`
	Price       money.Amount  `bson:"price" json:"price"`
	Image       string        `bson:"image,omitempty" json:"image,omitempty"`
	Sizes       []string      `bson:"sizes,omitempty" json:"sizes,omitempty"`
	Colors      []string      `bson:"colors,omitempty" json:"colors,omitempty"`
	Category    string        `bson:"category,omitempty" json:"category,omitempty"`
	Published   bool          `bson:"published" json:"published"`
	CreatedAt   time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// Store captures the catalog persistence operations.
type Store interface {
	GetByID(ctx context.Context, id bson.ObjectID) (Product, error)
	List(ctx context.Context, category string, page, perPage int) ([]Product, int64, error)
	ExistsMany(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]bool, error)
}

// Service orchestrates catalog reads with a cache-aside layer.
type Service struct {
	S     Store
	Cache *Cache
}

func productKey(id bson.ObjectID) string {
	return "catalog:product:" + id.Hex()
}

func listKey(category string, page, perPage int) string {
	return fmt.Sprintf("catalog:list:%s:%d:%d", category, page, perPage)
}

// Get loads one product, preferring the cache. Cache failures fall
// through to the store rather than failing the read.
func (s *Service) Get(ctx context.Context, id bson.ObjectID) (Product, error) {
	if s == nil || s.S == nil {
		return Product{}, errors.New("catalog service not configured")
	}
	var cached Product
	if ok, err := s.Cache.GetJSON(ctx, productKey(id), &cached); err == nil && ok {
		return cached, nil
	}
	p, err := s.S.GetByID(ctx, id)
	if err != nil {
		return Product{}, err
	}
	_ = s.Cache.SetJSON(ctx, productKey(id), p)
	return p, nil
}

type listPayload struct {
	Items []Product `json:"items"`
	Total int64     `json:"total"`
}

// List returns published products, optionally filtered by category.
func (s *Service) List(ctx context.Context, category string, page, perPage int) ([]Product, int64, error) {
	if s == nil || s.S == nil {
		return nil, 0, errors.New("catalog service not configured")
	}
	key := listKey(category, page, perPage)
	var cached listPayload
	if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached.Items, cached.Total, nil
	}
	items, total, err := s.S.List(ctx, category, page, perPage)
	if err != nil {
		return nil, 0, err
	}
	_ = s.Cache.SetJSON(ctx, key, listPayload{Items: items, Total: total})
	return items, total, nil
}

// VerifyExists checks that every referenced product id resolves to a
// catalog record. It returns the hex ids that do not.
func (s *Service) VerifyExists(ctx context.Context, hexIDs []string) ([]string, error) {
	if s == nil || s.S == nil {
		return nil, errors.New("catalog service not configured")
	}
	ids := make([]bson.ObjectID, 0, len(hexIDs))
	missing := make([]string, 0)
	for _, h := range hexIDs {
		id, err := bson.ObjectIDFromHex(h)
		if err != nil {
			missing = append(missing, h)
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return missing, nil
	}
	found, err := s.S.ExistsMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id.Hex())
		}
	}
	return missing, nil
}
