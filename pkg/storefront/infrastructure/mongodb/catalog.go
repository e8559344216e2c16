package mongodb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/model"
)

var _ model.CatalogRepository = &CatalogRepository{}

var catalogCollections = map[model.Variant]string{
	model.Product:   productsCollection,
	model.Accessory: accessoriesCollection,
}

type CatalogRepository struct {
	db *mongo.Database
}

func NewCatalogRepository(db *mongo.Database) *CatalogRepository {
	return &CatalogRepository{db: db}
}

type catalogItemDoc struct {
	ID        string      `bson:"_id"`
	Name      string      `bson:"name"`
	Price     int64       `bson:"price"`
	Stock     int         `bson:"stock"`
	Reviews   []reviewDoc `bson:"reviews"`
	CreatedAt time.Time   `bson:"created_at"`
	UpdatedAt time.Time   `bson:"updated_at"`
}

type reviewDoc struct {
	User      string    `bson:"user"`
	Value     int       `bson:"value"`
	Text      string    `bson:"text"`
	CreatedAt time.Time `bson:"created_at"`
}

type inventoryLogDoc struct {
	ID          string    `bson:"_id"`
	ItemID      string    `bson:"item_id"`
	Variant     string    `bson:"variant"`
	Action      string    `bson:"action"`
	Quantity    int       `bson:"quantity"`
	NewStock    int       `bson:"new_stock"`
	Reference   string    `bson:"reference"`
	PerformedBy string    `bson:"performed_by"`
	Note        string    `bson:"note"`
	CreatedAt   time.Time `bson:"created_at"`
}

func (r *CatalogRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *CatalogRepository) Create(ctx context.Context, item *model.CatalogItem) error {
	coll, err := r.collection(item.Variant)
	if err != nil {
		return err
	}
	doc := catalogItemDoc{
		ID:        item.ID.String(),
		Name:      item.Name,
		Price:     int64(item.Price),
		Stock:     item.Stock,
		Reviews:   []reviewDoc{},
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
	_, err = coll.InsertOne(ctx, doc)
	return errors.Wrapf(err, "insert %s", item.Variant)
}

func (r *CatalogRepository) Find(ctx context.Context, variant model.Variant, id uuid.UUID) (*model.CatalogItem, error) {
	coll, err := r.collection(variant)
	if err != nil {
		return nil, err
	}
	var doc catalogItemDoc
	if err := coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrCatalogItemNotFound
		}
		return nil, errors.Wrapf(err, "find %s", variant)
	}
	return fromCatalogDoc(variant, doc)
}

// DecrementStock returns the document as it was before the update, so the
// change reports the units actually taken.
func (r *CatalogRepository) DecrementStock(ctx context.Context, variant model.Variant, id uuid.UUID, quantity int, policy model.StockPolicy) (model.StockChange, error) {
	coll, err := r.collection(variant)
	if err != nil {
		return model.StockChange{}, err
	}

	filter, update := decrementUpdate(id, quantity, policy, time.Now().UTC())
	before, err := r.updateStock(ctx, coll, filter, update, options.Before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, err := r.Find(ctx, variant, id); err != nil {
			return model.StockChange{}, err
		}
		return model.StockChange{}, model.ErrInsufficientStock
	}
	if err != nil {
		return model.StockChange{}, errors.Wrapf(err, "decrement %s stock", variant)
	}
	return model.DecrementFrom(before, quantity), nil
}

func decrementUpdate(id uuid.UUID, quantity int, policy model.StockPolicy, now time.Time) (bson.M, interface{}) {
	filter := bson.M{"_id": id.String()}
	if policy == model.StrictStock {
		filter["stock"] = bson.M{"$gte": quantity}
		return filter, bson.M{
			"$inc": bson.M{"stock": -quantity},
			"$set": bson.M{"updated_at": now},
		}
	}
	return filter, mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "stock", Value: bson.M{"$max": bson.A{0, bson.M{"$subtract": bson.A{"$stock", quantity}}}}},
			{Key: "updated_at", Value: now},
		}}},
	}
}

func (r *CatalogRepository) IncrementStock(ctx context.Context, variant model.Variant, id uuid.UUID, quantity int) (int, error) {
	coll, err := r.collection(variant)
	if err != nil {
		return 0, err
	}
	stock, err := r.updateStock(ctx, coll, bson.M{"_id": id.String()}, bson.M{
		"$inc": bson.M{"stock": quantity},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}, options.After)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, model.ErrCatalogItemNotFound
	}
	if err != nil {
		return 0, errors.Wrapf(err, "increment %s stock", variant)
	}
	return stock, nil
}

func (r *CatalogRepository) updateStock(ctx context.Context, coll *mongo.Collection, filter bson.M, update interface{}, returned options.ReturnDocument) (int, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(returned).
		SetProjection(bson.M{"stock": 1})
	var doc struct {
		Stock int `bson:"stock"`
	}
	if err := coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return 0, err
	}
	return doc.Stock, nil
}

func (r *CatalogRepository) AppendReview(ctx context.Context, variant model.Variant, id uuid.UUID, review model.Review) error {
	coll, err := r.collection(variant)
	if err != nil {
		return err
	}
	res, err := coll.UpdateOne(ctx,
		bson.M{"_id": id.String(), "reviews.user": bson.M{"$ne": review.User}},
		bson.M{"$push": bson.M{"reviews": reviewDoc{
			User:      review.User,
			Value:     review.Value,
			Text:      review.Text,
			CreatedAt: review.CreatedAt,
		}}})
	if err != nil {
		return errors.Wrap(err, "push review")
	}
	if res.MatchedCount == 0 {
		if _, err := r.Find(ctx, variant, id); err != nil {
			return err
		}
		return model.ErrAlreadyReviewed
	}
	return nil
}

func (r *CatalogRepository) AppendInventoryLog(ctx context.Context, entry model.InventoryLogEntry) error {
	_, err := r.db.Collection(inventoryLogCollection).InsertOne(ctx, inventoryLogDoc{
		ID:          entry.ID.String(),
		ItemID:      entry.ItemID.String(),
		Variant:     string(entry.Variant),
		Action:      string(entry.Action),
		Quantity:    entry.Quantity,
		NewStock:    entry.NewStock,
		Reference:   entry.Reference,
		PerformedBy: entry.PerformedBy,
		Note:        entry.Note,
		CreatedAt:   entry.CreatedAt,
	})
	return errors.Wrap(err, "insert inventory log")
}

func (r *CatalogRepository) ListInventoryLog(ctx context.Context, variant model.Variant, id uuid.UUID) ([]model.InventoryLogEntry, error) {
	cursor, err := r.db.Collection(inventoryLogCollection).Find(ctx,
		bson.M{"variant": string(variant), "item_id": id.String()},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "list inventory log")
	}
	var docs []inventoryLogDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode inventory log")
	}

	entries := make([]model.InventoryLogEntry, 0, len(docs))
	for _, doc := range docs {
		entryID, err := uuid.Parse(doc.ID)
		if err != nil {
			return nil, errors.Wrap(err, "parse inventory log id")
		}
		entries = append(entries, model.InventoryLogEntry{
			ID:          entryID,
			ItemID:      id,
			Variant:     variant,
			Action:      model.InventoryAction(doc.Action),
			Quantity:    doc.Quantity,
			NewStock:    doc.NewStock,
			Reference:   doc.Reference,
			PerformedBy: doc.PerformedBy,
			Note:        doc.Note,
			CreatedAt:   doc.CreatedAt,
		})
	}
	return entries, nil
}

func (r *CatalogRepository) collection(variant model.Variant) (*mongo.Collection, error) {
	name, ok := catalogCollections[variant]
	if !ok {
		return nil, model.ErrInvalidVariant
	}
	return r.db.Collection(name), nil
}

func fromCatalogDoc(variant model.Variant, doc catalogItemDoc) (*model.CatalogItem, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, errors.Wrap(err, "parse catalog item id")
	}
	item := &model.CatalogItem{
		ID:        id,
		Variant:   variant,
		Name:      doc.Name,
		Price:     model.Money(doc.Price),
		Stock:     doc.Stock,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	for _, rv := range doc.Reviews {
		item.Reviews = append(item.Reviews, model.Review{User: rv.User, Value: rv.Value, Text: rv.Text, CreatedAt: rv.CreatedAt})
	}
	return item, nil
}
