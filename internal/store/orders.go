package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/comicink/backend-tees/internal/order"
)

// OrderStore implements order.Store on MongoDB.
type OrderStore struct {
	C *mongo.Collection
}

// NewOrderStore binds the store to its collection.
func NewOrderStore(db *mongo.Database) *OrderStore {
	return &OrderStore{C: db.Collection(CollOrders)}
}

func (s *OrderStore) Create(ctx context.Context, o order.Order) (order.Order, error) {
	res, err := s.C.InsertOne(ctx, o)
	if err != nil {
		return order.Order{}, err
	}
	if id, ok := res.InsertedID.(bson.ObjectID); ok {
		o.ID = id
	}
	return o, nil
}

func (s *OrderStore) GetByID(ctx context.Context, id bson.ObjectID) (order.Order, error) {
	var o order.Order
	err := s.C.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&o)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return order.Order{}, order.ErrNotFound
		}
		return order.Order{}, err
	}
	return o, nil
}

func (s *OrderStore) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (order.Order, error) {
	var o order.Order
	err := s.C.FindOne(ctx, bson.D{{Key: "gatewayOrderId", Value: gatewayOrderID}}).Decode(&o)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return order.Order{}, order.ErrNotFound
		}
		return order.Order{}, err
	}
	return o, nil
}

func (s *OrderStore) ListByUser(ctx context.Context, userID string, page, perPage int) ([]order.Order, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	filter := bson.D{{Key: "userId", Value: userID}}
	total, err := s.C.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * perPage)).
		SetLimit(int64(perPage))
	cursor, err := s.C.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)
	var out []order.Order
	if err := cursor.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// MarkPaid transitions pending to paid in one conditional update so a
// replayed capture cannot settle an order twice.
func (s *OrderStore) MarkPaid(ctx context.Context, id bson.ObjectID, transactionID string, paidAt time.Time) error {
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "status", Value: order.StatusPending},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: order.StatusPaid},
		{Key: "transactionId", Value: transactionID},
		{Key: "paidAt", Value: paidAt},
		{Key: "updatedAt", Value: time.Now()},
	}}}
	res, err := s.C.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		count, cerr := s.C.CountDocuments(ctx, bson.D{{Key: "_id", Value: id}})
		if cerr != nil {
			return cerr
		}
		if count == 0 {
			return order.ErrNotFound
		}
		return order.ErrNotPending
	}
	return nil
}

func (s *OrderStore) UpdateStatus(ctx context.Context, id bson.ObjectID, status order.Status) error {
	res, err := s.C.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "status", Value: status},
			{Key: "updatedAt", Value: time.Now()},
		}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (s *OrderStore) SetGatewayOrderID(ctx context.Context, id bson.ObjectID, gatewayOrderID string) error {
	res, err := s.C.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "gatewayOrderId", Value: gatewayOrderID},
			{Key: "updatedAt", Value: time.Now()},
		}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return order.ErrNotFound
	}
	return nil
}

var _ order.Store = (*OrderStore)(nil)
