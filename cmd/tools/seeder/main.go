package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/comicink/backend-tees/internal/catalog"
	"github.com/comicink/backend-tees/internal/discount"
	"github.com/comicink/backend-tees/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		log.Fatal("MONGO_URI is not set")
	}
	dbName := os.Getenv("MONGO_DATABASE")
	if dbName == "" {
		dbName = "comicink"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, db, err := store.Connect(ctx, uri, dbName)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer func() {
		_ = client.Disconnect(context.Background())
	}()

	if err := store.EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("Failed to ensure indexes: %v", err)
	}

	seedProducts(ctx, db)
	seedCoupons(ctx, db)

	log.Println("Seeding completed successfully!")
}

func seedProducts(ctx context.Context, db *mongo.Database) {
	now := time.Now()
	products := []catalog.Product{
		{Name: "Web Slinger Tee", Slug: "web-slinger-tee", Price: 2499, Category: "heroes", Sizes: []string{"S", "M", "L", "XL"}, Colors: []string{"red", "black"}},
		{Name: "Dark Knight Classic", Slug: "dark-knight-classic", Price: 2699, Category: "heroes", Sizes: []string{"S", "M", "L", "XL", "XXL"}, Colors: []string{"black", "grey"}},
		{Name: "Gamma Smash", Slug: "gamma-smash", Price: 2299, Category: "heroes", Sizes: []string{"M", "L", "XL"}, Colors: []string{"green"}},
		{Name: "Clown Prince", Slug: "clown-prince", Price: 2499, Category: "villains", Sizes: []string{"S", "M", "L"}, Colors: []string{"purple", "white"}},
		{Name: "Symbiote Slim Fit", Slug: "symbiote-slim-fit", Price: 2799, Category: "villains", Sizes: []string{"S", "M", "L", "XL"}, Colors: []string{"black"}},
		{Name: "Halftone Panel Print", Slug: "halftone-panel-print", Price: 1999, Category: "retro", Sizes: []string{"S", "M", "L", "XL"}, Colors: []string{"white", "navy"}},
		{Name: "Golden Age Cover Art", Slug: "golden-age-cover-art", Price: 2199, Category: "retro", Sizes: []string{"M", "L", "XL"}, Colors: []string{"cream"}},
	}

	log.Println("Seeding Products...")
	coll := db.Collection(store.CollProducts)
	for _, p := range products {
		p.Published = true
		p.CreatedAt = now
		p.UpdatedAt = now
		filter := bson.M{"slug": p.Slug}
		update := bson.M{"$setOnInsert": p}
		opts := options.UpdateOne().SetUpsert(true)
		if _, err := coll.UpdateOne(ctx, filter, update, opts); err != nil {
			log.Fatalf("Failed to seed product %s: %v", p.Slug, err)
		}
	}
}

func seedCoupons(ctx context.Context, db *mongo.Database) {
	now := time.Now()
	limited := int64(100)
	in30d := now.Add(30 * 24 * time.Hour)
	coupons := []discount.Discount{
		{Code: "HERO10", Percent: 10, Status: discount.StatusActive},
		{Code: "SIDEKICK15", Percent: 15, Status: discount.StatusActive, MaxUsage: &limited},
		{Code: "LAUNCH25", Percent: 25, Status: discount.StatusActive, ExpiresAt: &in30d},
	}

	log.Println("Seeding Coupons...")
	coll := db.Collection(store.CollDiscounts)
	for _, d := range coupons {
		d.CreatedAt = now
		d.UpdatedAt = now
		filter := bson.M{"code": d.Code}
		update := bson.M{"$setOnInsert": d}
		opts := options.UpdateOne().SetUpsert(true)
		if _, err := coll.UpdateOne(ctx, filter, update, opts); err != nil {
			log.Fatalf("Failed to seed coupon %s: %v", d.Code, err)
		}
	}
}
