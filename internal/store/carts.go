package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/comicink/backend-tees/internal/cart"
)

// CartStore implements cart.Store on MongoDB.
type CartStore struct {
	C *mongo.Collection
}

// NewCartStore binds the store to its collection.
func NewCartStore(db *mongo.Database) *CartStore {
	return &CartStore{C: db.Collection(CollCarts)}
}

func (s *CartStore) GetByUser(ctx context.Context, userID string) (cart.Cart, error) {
	var c cart.Cart
	err := s.C.FindOne(ctx, bson.D{{Key: "userId", Value: userID}}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return cart.Cart{}, cart.ErrNotFound
		}
		return cart.Cart{}, err
	}
	return c, nil
}

func (s *CartStore) Create(ctx context.Context, c cart.Cart) (cart.Cart, error) {
	res, err := s.C.InsertOne(ctx, c)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// concurrent first access; the winner's cart is the cart
			return s.GetByUser(ctx, c.UserID)
		}
		return cart.Cart{}, err
	}
	if id, ok := res.InsertedID.(bson.ObjectID); ok {
		c.ID = id
	}
	return c, nil
}

// ReplaceItems writes the item set conditioned on the revision the
// caller read. A lost race surfaces as cart.ErrConflict so the caller
// re-reads and re-merges instead of overwriting.
func (s *CartStore) ReplaceItems(ctx context.Context, id bson.ObjectID, rev int64, items []cart.LineItem, expiresAt time.Time) error {
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "rev", Value: rev},
	}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "items", Value: items},
			{Key: "updatedAt", Value: time.Now()},
			{Key: "expiresAt", Value: expiresAt},
		}},
		{Key: "$inc", Value: bson.D{{Key: "rev", Value: 1}}},
	}
	res, err := s.C.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		count, err := s.C.CountDocuments(ctx, bson.D{{Key: "_id", Value: id}})
		if err != nil {
			return err
		}
		if count == 0 {
			return cart.ErrNotFound
		}
		return cart.ErrConflict
	}
	return nil
}

func (s *CartStore) SetCoupon(ctx context.Context, id bson.ObjectID, code string) error {
	var update bson.D
	if code == "" {
		update = bson.D{
			{Key: "$unset", Value: bson.D{{Key: "couponCode", Value: ""}}},
			{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: time.Now()}}},
		}
	} else {
		update = bson.D{
			{Key: "$set", Value: bson.D{
				{Key: "couponCode", Value: code},
				{Key: "updatedAt", Value: time.Now()},
			}},
		}
	}
	res, err := s.C.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return cart.ErrNotFound
	}
	return nil
}

var _ cart.Store = (*CartStore)(nil)
