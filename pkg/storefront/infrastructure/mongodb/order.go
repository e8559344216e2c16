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

var _ model.OrderRepository = &OrderRepository{}

type OrderRepository struct {
	coll *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{coll: db.Collection(ordersCollection)}
}

type orderDoc struct {
	ID           string         `bson:"_id"`
	UserID       string         `bson:"user_id"`
	UserEmail    string         `bson:"user_email"`
	Items        []orderItemDoc `bson:"items"`
	Total        int64          `bson:"total"`
	Address      string         `bson:"address"`
	PaymentInfo  string         `bson:"payment_info,omitempty"`
	Status       string         `bson:"status"`
	DeliveryDate *time.Time     `bson:"delivery_date"`
	BillID       *string        `bson:"bill_id"`
	Version      int            `bson:"version"`
	CreatedAt    time.Time      `bson:"created_at"`
	UpdatedAt    time.Time      `bson:"updated_at"`
}

type orderItemDoc struct {
	CatalogItemID string `bson:"catalog_item_id"`
	Variant       string `bson:"variant"`
	Name          string `bson:"name"`
	Quantity      int    `bson:"quantity"`
	UnitPrice     int64  `bson:"unit_price"`
}

func (r *OrderRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *OrderRepository) Create(ctx context.Context, order *model.Order) error {
	_, err := r.coll.InsertOne(ctx, toOrderDoc(order))
	return errors.Wrap(err, "insert order")
}

func (r *OrderRepository) Find(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var doc orderDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "find order")
	}
	return fromOrderDoc(doc)
}

func (r *OrderRepository) Update(ctx context.Context, order *model.Order) error {
	doc := toOrderDoc(order)
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": doc.ID, "version": order.Version - 1},
		bson.M{"$set": bson.M{
			"status":        doc.Status,
			"delivery_date": doc.DeliveryDate,
			"bill_id":       doc.BillID,
			"version":       doc.Version,
			"updated_at":    doc.UpdatedAt,
		}})
	if err != nil {
		return errors.Wrap(err, "update order")
	}
	if res.MatchedCount == 0 {
		if _, err := r.Find(ctx, order.ID); err != nil {
			return err
		}
		return model.ErrOptimisticLock
	}
	return nil
}

func (r *OrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return errors.Wrap(err, "delete order")
	}
	if res.DeletedCount == 0 {
		return model.ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepository) List(ctx context.Context) ([]model.Order, error) {
	return r.find(ctx, bson.M{})
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	return r.find(ctx, bson.M{"user_id": userID.String()})
}

func (r *OrderRepository) ListUnbilled(ctx context.Context) ([]model.Order, error) {
	return r.find(ctx, bson.M{"bill_id": nil})
}

func (r *OrderRepository) find(ctx context.Context, filter bson.M) ([]model.Order, error) {
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	var docs []orderDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode orders")
	}
	orders := make([]model.Order, 0, len(docs))
	for _, doc := range docs {
		order, err := fromOrderDoc(doc)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

func toOrderDoc(order *model.Order) orderDoc {
	doc := orderDoc{
		ID:           order.ID.String(),
		UserID:       order.UserID.String(),
		UserEmail:    order.UserEmail,
		Total:        int64(order.Total),
		Address:      order.Address,
		PaymentInfo:  string(order.PaymentInfo),
		Status:       string(order.Status),
		DeliveryDate: order.DeliveryDate,
		Version:      order.Version,
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
	}
	for _, item := range order.Items {
		doc.Items = append(doc.Items, orderItemDoc{
			CatalogItemID: item.CatalogItemID.String(),
			Variant:       string(item.Variant),
			Name:          item.Name,
			Quantity:      item.Quantity,
			UnitPrice:     int64(item.UnitPrice),
		})
	}
	if order.BillID != nil {
		billID := order.BillID.String()
		doc.BillID = &billID
	}
	return doc
}

func fromOrderDoc(doc orderDoc) (*model.Order, error) {
	ids, err := parseIDs(doc.ID, doc.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "parse order ids")
	}
	order := &model.Order{
		ID:           ids[0],
		UserID:       ids[1],
		UserEmail:    doc.UserEmail,
		Total:        model.Money(doc.Total),
		Address:      doc.Address,
		Status:       model.OrderStatus(doc.Status),
		DeliveryDate: doc.DeliveryDate,
		Version:      doc.Version,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
	if doc.PaymentInfo != "" {
		order.PaymentInfo = []byte(doc.PaymentInfo)
	}
	for _, item := range doc.Items {
		itemID, err := uuid.Parse(item.CatalogItemID)
		if err != nil {
			return nil, errors.Wrap(err, "parse order item id")
		}
		order.Items = append(order.Items, model.OrderItem{
			CatalogItemID: itemID,
			Variant:       model.Variant(item.Variant),
			Name:          item.Name,
			Quantity:      item.Quantity,
			UnitPrice:     model.Money(item.UnitPrice),
		})
	}
	if doc.BillID != nil {
		billID, err := uuid.Parse(*doc.BillID)
		if err != nil {
			return nil, errors.Wrap(err, "parse bill id")
		}
		order.BillID = &billID
	}
	return order, nil
}

func parseIDs(raw ...string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
