package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/comicink/backend-tees/internal/catalog"
)

// ProductStore implements catalog.Store on MongoDB.
type ProductStore struct {
	C *mongo.Collection
}

// NewProductStore binds the store to its collection.
func NewProductStore(db *mongo.Database) *ProductStore {
	return &ProductStore{C: db.Collection(CollProducts)}
}

func (s *ProductStore) GetByID(ctx context.Context, id bson.ObjectID) (catalog.Product, error) {
	var p catalog.Product
	err := s.C.FindOne(ctx, bson.D{
		{Key: "_id", Value: id},
		{Key: "published", Value: true},
	}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return catalog.Product{}, catalog.ErrNotFound
		}
		return catalog.Product{}, err
	}
	return p, nil
}

func (s *ProductStore) List(ctx context.Context, category string, page, perPage int) ([]catalog.Product, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	filter := bson.D{{Key: "published", Value: true}}
	if category != "" {
		filter = append(filter, bson.E{Key: "category", Value: category})
	}
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
	var out []catalog.Product
	if err := cursor.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *ProductStore) ExistsMany(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]bool, error) {
	out := make(map[bson.ObjectID]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	filter := bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}
	opts := options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.C.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var rows []struct {
		ID bson.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = true
	}
	return out, nil
}

var _ catalog.Store = (*ProductStore)(nil)
