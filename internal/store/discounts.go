package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/comicink/backend-tees/internal/discount"
)

// DiscountStore implements discount.Store on MongoDB.
type DiscountStore struct {
	C      *mongo.Collection
	Usages *mongo.Collection
}

// NewDiscountStore binds the store to its collections.
func NewDiscountStore(db *mongo.Database) *DiscountStore {
	return &DiscountStore{
		C:      db.Collection(CollDiscounts),
		Usages: db.Collection(CollUsages),
	}
}

func (s *DiscountStore) GetByCode(ctx context.Context, code string) (discount.Discount, error) {
	var d discount.Discount
	err := s.C.FindOne(ctx, bson.D{{Key: "code", Value: code}}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return discount.Discount{}, discount.ErrNotFound
		}
		return discount.Discount{}, err
	}
	return d, nil
}

func (s *DiscountStore) GetByID(ctx context.Context, id bson.ObjectID) (discount.Discount, error) {
	var d discount.Discount
	err := s.C.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return discount.Discount{}, discount.ErrNotFound
		}
		return discount.Discount{}, err
	}
	return d, nil
}

func (s *DiscountStore) Create(ctx context.Context, d discount.Discount) (discount.Discount, error) {
	res, err := s.C.InsertOne(ctx, d)
	if err != nil {
		return discount.Discount{}, err
	}
	if id, ok := res.InsertedID.(bson.ObjectID); ok {
		d.ID = id
	}
	return d, nil
}

func (s *DiscountStore) Update(ctx context.Context, d discount.Discount) (discount.Discount, error) {
	res, err := s.C.ReplaceOne(ctx, bson.D{{Key: "_id", Value: d.ID}}, d)
	if err != nil {
		return discount.Discount{}, err
	}
	if res.MatchedCount == 0 {
		return discount.Discount{}, discount.ErrNotFound
	}
	return d, nil
}

func (s *DiscountStore) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := s.C.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return discount.ErrNotFound
	}
	return nil
}

func (s *DiscountStore) List(ctx context.Context, page, perPage int) ([]discount.Discount, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	total, err := s.C.CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * perPage)).
		SetLimit(int64(perPage))
	cursor, err := s.C.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)
	var out []discount.Discount
	if err := cursor.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *DiscountStore) setStatus(ctx context.Context, id bson.ObjectID, status discount.Status) error {
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
		return discount.ErrNotFound
	}
	return nil
}

func (s *DiscountStore) MarkExpired(ctx context.Context, id bson.ObjectID) error {
	return s.setStatus(ctx, id, discount.StatusExpired)
}

func (s *DiscountStore) Deactivate(ctx context.Context, id bson.ObjectID) error {
	return s.setStatus(ctx, id, discount.StatusInactive)
}

func (s *DiscountStore) UsageExists(ctx context.Context, couponID bson.ObjectID, orderID string) (bool, error) {
	count, err := s.Usages.CountDocuments(ctx, bson.D{
		{Key: "couponId", Value: couponID},
		{Key: "orderId", Value: orderID},
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *DiscountStore) InsertUsage(ctx context.Context, u discount.Usage) error {
	if _, err := s.Usages.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return discount.ErrDuplicateUsage
		}
		return err
	}
	return nil
}

// IncrementUsage bumps usageCount in a single conditional update: the
// filter only matches while capacity remains, so concurrent settlements
// can never push the counter past maxUsageLimit.
func (s *DiscountStore) IncrementUsage(ctx context.Context, id bson.ObjectID) (discount.Discount, error) {
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "maxUsageLimit", Value: bson.D{{Key: "$exists", Value: false}}}},
			bson.D{{Key: "maxUsageLimit", Value: nil}},
			bson.D{{Key: "$expr", Value: bson.D{
				{Key: "$lt", Value: bson.A{"$usageCount", "$maxUsageLimit"}},
			}}},
		}},
	}
	update := bson.D{
		{Key: "$inc", Value: bson.D{{Key: "usageCount", Value: 1}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: time.Now()}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var d discount.Discount
	if err := s.C.FindOneAndUpdate(ctx, filter, update, opts).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			count, cerr := s.C.CountDocuments(ctx, bson.D{{Key: "_id", Value: id}})
			if cerr != nil {
				return discount.Discount{}, cerr
			}
			if count == 0 {
				return discount.Discount{}, discount.ErrNotFound
			}
			return discount.Discount{}, discount.ErrCouponLimitReached
		}
		return discount.Discount{}, err
	}
	return d, nil
}

var _ discount.Store = (*DiscountStore)(nil)
