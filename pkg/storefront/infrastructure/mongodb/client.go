package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	productsCollection     = "products"
	accessoriesCollection  = "accessories"
	inventoryLogCollection = "inventory_log"
	ordersCollection       = "orders"
	billsCollection        = "bills"
	countersCollection     = "counters"
)

func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connect to mongo")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "ping mongo")
	}
	return client, nil
}

// EnsureIndexes creates the indexes the repositories rely on. The unique
// order_id index is what makes bill creation idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		billsCollection: {
			{Keys: bson.D{{Key: "order_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uq_bills_order_id")},
			{Keys: bson.D{{Key: "bill_number", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uq_bills_bill_number")},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "bill_date", Value: -1}}},
		},
		ordersCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "bill_id", Value: 1}}},
		},
		inventoryLogCollection: {
			{Keys: bson.D{{Key: "variant", Value: 1}, {Key: "item_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
	}
	for collection, models := range indexes {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "create indexes on %s", collection)
		}
	}
	return nil
}
