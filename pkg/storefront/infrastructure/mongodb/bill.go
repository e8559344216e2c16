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

var _ model.BillRepository = &BillRepository{}

const billSequenceName = "bill"

type BillRepository struct {
	coll     *mongo.Collection
	counters *mongo.Collection
}

func NewBillRepository(db *mongo.Database) *BillRepository {
	return &BillRepository{
		coll:     db.Collection(billsCollection),
		counters: db.Collection(countersCollection),
	}
}

type billDoc struct {
	ID            string        `bson:"_id"`
	OrderID       string        `bson:"order_id"`
	UserID        string        `bson:"user_id"`
	BillNumber    string        `bson:"bill_number"`
	UserName      string        `bson:"user_name"`
	UserEmail     string        `bson:"user_email"`
	UserAddress   string        `bson:"user_address"`
	Items         []billItemDoc `bson:"items"`
	Subtotal      int64         `bson:"subtotal"`
	TaxPercentage int64         `bson:"tax_percentage"`
	Tax           int64         `bson:"tax"`
	ShippingCost  int64         `bson:"shipping_cost"`
	Discount      int64         `bson:"discount"`
	Total         int64         `bson:"total"`
	Status        string        `bson:"status"`
	PaymentMethod string        `bson:"payment_method"`
	Notes         string        `bson:"notes"`
	Version       int           `bson:"version"`
	BillDate      time.Time     `bson:"bill_date"`
	UpdatedAt     time.Time     `bson:"updated_at"`
}

type billItemDoc struct {
	ProductName string `bson:"product_name"`
	Quantity    int    `bson:"quantity"`
	UnitPrice   int64  `bson:"unit_price"`
	TotalPrice  int64  `bson:"total_price"`
}

func (r *BillRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *BillRepository) NextBillSequence(ctx context.Context) (int64, error) {
	var counter struct {
		Value int64 `bson:"value"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": billSequenceName},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, errors.Wrap(err, "next bill sequence")
	}
	return counter.Value, nil
}

func (r *BillRepository) Create(ctx context.Context, bill *model.Bill) error {
	_, err := r.coll.InsertOne(ctx, toBillDoc(bill))
	if mongo.IsDuplicateKeyError(err) {
		if _, findErr := r.FindByOrderID(ctx, bill.OrderID); findErr == nil {
			return model.ErrBillAlreadyExists
		}
	}
	return errors.Wrap(err, "insert bill")
}

func (r *BillRepository) Find(ctx context.Context, id uuid.UUID) (*model.Bill, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *BillRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Bill, error) {
	return r.findOne(ctx, bson.M{"order_id": orderID.String()})
}

func (r *BillRepository) findOne(ctx context.Context, filter bson.M) (*model.Bill, error) {
	var doc billDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrBillNotFound
		}
		return nil, errors.Wrap(err, "find bill")
	}
	return fromBillDoc(doc)
}

func (r *BillRepository) Update(ctx context.Context, bill *model.Bill) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": bill.ID.String(), "version": bill.Version - 1},
		bson.M{"$set": bson.M{
			"status":         string(bill.Status),
			"tax":            int64(bill.Tax),
			"shipping_cost":  int64(bill.ShippingCost),
			"discount":       int64(bill.Discount),
			"subtotal":       int64(bill.Subtotal),
			"total":          int64(bill.Total),
			"payment_method": bill.PaymentMethod,
			"notes":          bill.Notes,
			"version":        bill.Version,
			"updated_at":     bill.UpdatedAt,
		}})
	if err != nil {
		return errors.Wrap(err, "update bill")
	}
	if res.MatchedCount == 0 {
		if _, err := r.Find(ctx, bill.ID); err != nil {
			return err
		}
		return model.ErrOptimisticLock
	}
	return nil
}

func (r *BillRepository) List(ctx context.Context) ([]model.Bill, error) {
	return r.find(ctx, bson.M{})
}

func (r *BillRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Bill, error) {
	return r.find(ctx, bson.M{"user_id": userID.String()})
}

func (r *BillRepository) find(ctx context.Context, filter bson.M) ([]model.Bill, error) {
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "bill_date", Value: -1}}))
	if err != nil {
		return nil, errors.Wrap(err, "list bills")
	}
	var docs []billDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode bills")
	}
	bills := make([]model.Bill, 0, len(docs))
	for _, doc := range docs {
		bill, err := fromBillDoc(doc)
		if err != nil {
			return nil, err
		}
		bills = append(bills, *bill)
	}
	return bills, nil
}

func toBillDoc(bill *model.Bill) billDoc {
	doc := billDoc{
		ID:            bill.ID.String(),
		OrderID:       bill.OrderID.String(),
		UserID:        bill.UserID.String(),
		BillNumber:    bill.BillNumber,
		UserName:      bill.UserName,
		UserEmail:     bill.UserEmail,
		UserAddress:   bill.UserAddress,
		Subtotal:      int64(bill.Subtotal),
		TaxPercentage: bill.TaxPercentage,
		Tax:           int64(bill.Tax),
		ShippingCost:  int64(bill.ShippingCost),
		Discount:      int64(bill.Discount),
		Total:         int64(bill.Total),
		Status:        string(bill.Status),
		PaymentMethod: bill.PaymentMethod,
		Notes:         bill.Notes,
		Version:       bill.Version,
		BillDate:      bill.BillDate,
		UpdatedAt:     bill.UpdatedAt,
	}
	for _, item := range bill.Items {
		doc.Items = append(doc.Items, billItemDoc{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   int64(item.UnitPrice),
			TotalPrice:  int64(item.TotalPrice),
		})
	}
	return doc
}

func fromBillDoc(doc billDoc) (*model.Bill, error) {
	ids, err := parseIDs(doc.ID, doc.OrderID, doc.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "parse bill ids")
	}
	bill := &model.Bill{
		ID:            ids[0],
		OrderID:       ids[1],
		UserID:        ids[2],
		BillNumber:    doc.BillNumber,
		UserName:      doc.UserName,
		UserEmail:     doc.UserEmail,
		UserAddress:   doc.UserAddress,
		Subtotal:      model.Money(doc.Subtotal),
		TaxPercentage: doc.TaxPercentage,
		Tax:           model.Money(doc.Tax),
		ShippingCost:  model.Money(doc.ShippingCost),
		Discount:      model.Money(doc.Discount),
		Total:         model.Money(doc.Total),
		Status:        model.BillStatus(doc.Status),
		PaymentMethod: doc.PaymentMethod,
		Notes:         doc.Notes,
		Version:       doc.Version,
		BillDate:      doc.BillDate,
		UpdatedAt:     doc.UpdatedAt,
	}
	for _, item := range doc.Items {
		bill.Items = append(bill.Items, model.BillItem{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   model.Money(item.UnitPrice),
			TotalPrice:  model.Money(item.TotalPrice),
		})
	}
	return bill, nil
}
