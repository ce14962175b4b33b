package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Collection names used across the service.
const (
	CollCarts     = "carts"
	CollDiscounts = "discounts"
	CollUsages    = "discount_usages"
	CollOrders    = "orders"
	CollProducts  = "products"
)

// Connect opens a MongoDB client and verifies connectivity.
func Connect(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	clientOptions := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)
	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, client.Database(dbName), nil
}

type indexConfig struct {
	collection string
	model      mongo.IndexModel
}

var requiredIndexes = []indexConfig{
	{
		collection: CollCarts,
		model: mongo.IndexModel{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_cart_user_unique"),
		},
	},
	{
		collection: CollCarts,
		model: mongo.IndexModel{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_cart_ttl"),
		},
	},
	{
		collection: CollDiscounts,
		model: mongo.IndexModel{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_discount_code_unique"),
		},
	},
	// the unique pair is what makes usage settlement idempotent per order
	{
		collection: CollUsages,
		model: mongo.IndexModel{
			Keys: bson.D{
				{Key: "couponId", Value: 1},
				{Key: "orderId", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("idx_usage_coupon_order_unique"),
		},
	},
	{
		collection: CollOrders,
		model: mongo.IndexModel{
			Keys: bson.D{
				{Key: "userId", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("idx_order_user_history"),
		},
	},
	{
		collection: CollOrders,
		model: mongo.IndexModel{
			Keys:    bson.D{{Key: "gatewayOrderId", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("idx_order_gateway"),
		},
	},
	{
		collection: CollProducts,
		model: mongo.IndexModel{
			Keys:    bson.D{{Key: "category", Value: 1}},
			Options: options.Index().SetName("idx_product_category"),
		},
	},
}

// EnsureIndexes creates the indexes the stores rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, idx := range requiredIndexes {
		if _, err := db.Collection(idx.collection).Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("create index on %s: %w", idx.collection, err)
		}
	}
	return nil
}
