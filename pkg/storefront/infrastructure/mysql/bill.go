package mysql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/model"
)

var _ model.BillRepository = &BillRepository{}

const billSequenceName = "bill"

type BillRepository struct {
	db *sqlx.DB
	tx *Transactor
}

func NewBillRepository(db *sqlx.DB) *BillRepository {
	return &BillRepository{db: db, tx: NewTransactor(db)}
}

type billRow struct {
	ID            uuid.UUID `db:"id"`
	OrderID       uuid.UUID `db:"order_id"`
	UserID        uuid.UUID `db:"user_id"`
	BillNumber    string    `db:"bill_number"`
	UserName      string    `db:"user_name"`
	UserEmail     string    `db:"user_email"`
	UserAddress   string    `db:"user_address"`
	Subtotal      int64     `db:"subtotal"`
	TaxPercentage int64     `db:"tax_percentage"`
	Tax           int64     `db:"tax"`
	ShippingCost  int64     `db:"shipping_cost"`
	Discount      int64     `db:"discount"`
	Total         int64     `db:"total"`
	Status        string    `db:"status"`
	PaymentMethod string    `db:"payment_method"`
	Notes         string    `db:"notes"`
	Version       int       `db:"version"`
	BillDate      time.Time `db:"bill_date"`
	UpdatedAt     time.Time `db:"updated_at"`
}

type billItemRow struct {
	BillID      uuid.UUID `db:"bill_id"`
	Position    int       `db:"position"`
	ProductName string    `db:"product_name"`
	Quantity    int       `db:"quantity"`
	UnitPrice   int64     `db:"unit_price"`
	TotalPrice  int64     `db:"total_price"`
}

const selectBills = `SELECT id, order_id, user_id, bill_number, user_name, user_email, user_address, subtotal,
	tax_percentage, tax, shipping_cost, discount, total, status, payment_method, notes, version, bill_date,
	updated_at FROM bills`

func (r *BillRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

// NextBillSequence bumps a single counter row. LAST_INSERT_ID(expr) returns the
// new value to this connection only, so concurrent callers never share one.
func (r *BillRepository) NextBillSequence(ctx context.Context) (int64, error) {
	res, err := executor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO bill_sequence (name, value) VALUES (?, LAST_INSERT_ID(1))
		ON DUPLICATE KEY UPDATE value = LAST_INSERT_ID(value + 1)`, billSequenceName)
	if err != nil {
		return 0, errors.Wrap(err, "next bill sequence")
	}
	seq, err := res.LastInsertId()
	return seq, errors.Wrap(err, "next bill sequence")
}

func (r *BillRepository) Create(ctx context.Context, bill *model.Bill) error {
	return r.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		q := executor(ctx, r.db)
		_, err := sqlx.NamedExecContext(ctx, q, `
			INSERT INTO bills (id, order_id, user_id, bill_number, user_name, user_email, user_address, subtotal,
				tax_percentage, tax, shipping_cost, discount, total, status, payment_method, notes, version,
				bill_date, updated_at)
			VALUES (:id, :order_id, :user_id, :bill_number, :user_name, :user_email, :user_address, :subtotal,
				:tax_percentage, :tax, :shipping_cost, :discount, :total, :status, :payment_method, :notes, :version,
				:bill_date, :updated_at)`, toBillRow(bill))
		if err != nil {
			if isDuplicate(err) && strings.Contains(duplicateKey(err), "uq_bills_order_id") {
				return model.ErrBillAlreadyExists
			}
			return errors.Wrap(err, "insert bill")
		}

		for i, item := range bill.Items {
			_, err := sqlx.NamedExecContext(ctx, q, `
				INSERT INTO bill_items (bill_id, position, product_name, quantity, unit_price, total_price)
				VALUES (:bill_id, :position, :product_name, :quantity, :unit_price, :total_price)`,
				billItemRow{
					BillID:      bill.ID,
					Position:    i,
					ProductName: item.ProductName,
					Quantity:    item.Quantity,
					UnitPrice:   int64(item.UnitPrice),
					TotalPrice:  int64(item.TotalPrice),
				})
			if err != nil {
				return errors.Wrap(err, "insert bill item")
			}
		}
		return nil
	})
}

func (r *BillRepository) Find(ctx context.Context, id uuid.UUID) (*model.Bill, error) {
	return r.findOne(ctx, selectBills+` WHERE id = ?`, id)
}

func (r *BillRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Bill, error) {
	return r.findOne(ctx, selectBills+` WHERE order_id = ?`, orderID)
}

func (r *BillRepository) findOne(ctx context.Context, query string, arg interface{}) (*model.Bill, error) {
	var row billRow
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrBillNotFound
		}
		return nil, errors.Wrap(err, "find bill")
	}
	bills, err := r.withItems(ctx, []billRow{row})
	if err != nil {
		return nil, err
	}
	return &bills[0], nil
}

// Update stores status and charges. Items and the bill date never change.
func (r *BillRepository) Update(ctx context.Context, bill *model.Bill) error {
	res, err := executor(ctx, r.db).ExecContext(ctx, `
		UPDATE bills SET status = ?, tax = ?, shipping_cost = ?, discount = ?, subtotal = ?, total = ?,
			payment_method = ?, notes = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?`,
		string(bill.Status), int64(bill.Tax), int64(bill.ShippingCost), int64(bill.Discount),
		int64(bill.Subtotal), int64(bill.Total), bill.PaymentMethod, bill.Notes, bill.Version, bill.UpdatedAt,
		bill.ID, bill.Version-1)
	if err != nil {
		return errors.Wrap(err, "update bill")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "update bill")
	}
	if affected == 0 {
		if _, err := r.Find(ctx, bill.ID); err != nil {
			return err
		}
		return model.ErrOptimisticLock
	}
	return nil
}

func (r *BillRepository) List(ctx context.Context) ([]model.Bill, error) {
	return r.list(ctx, selectBills+` ORDER BY bill_date DESC`)
}

func (r *BillRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Bill, error) {
	return r.list(ctx, selectBills+` WHERE user_id = ? ORDER BY bill_date DESC`, userID)
}

func (r *BillRepository) list(ctx context.Context, query string, args ...interface{}) ([]model.Bill, error) {
	var rows []billRow
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "list bills")
	}
	return r.withItems(ctx, rows)
}

func (r *BillRepository) withItems(ctx context.Context, rows []billRow) ([]model.Bill, error) {
	if len(rows) == 0 {
		return []model.Bill{}, nil
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	query, args, err := sqlx.In(`SELECT bill_id, position, product_name, quantity, unit_price, total_price
		FROM bill_items WHERE bill_id IN (?) ORDER BY bill_id, position`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "build bill items query")
	}
	q := executor(ctx, r.db)
	var items []billItemRow
	if err := sqlx.SelectContext(ctx, q, &items, q.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "load bill items")
	}

	byBill := make(map[uuid.UUID][]model.BillItem, len(rows))
	for _, item := range items {
		byBill[item.BillID] = append(byBill[item.BillID], model.BillItem{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   model.Money(item.UnitPrice),
			TotalPrice:  model.Money(item.TotalPrice),
		})
	}

	bills := make([]model.Bill, 0, len(rows))
	for _, row := range rows {
		bills = append(bills, model.Bill{
			ID:            row.ID,
			OrderID:       row.OrderID,
			UserID:        row.UserID,
			BillNumber:    row.BillNumber,
			UserName:      row.UserName,
			UserEmail:     row.UserEmail,
			UserAddress:   row.UserAddress,
			Items:         byBill[row.ID],
			Subtotal:      model.Money(row.Subtotal),
			TaxPercentage: row.TaxPercentage,
			Tax:           model.Money(row.Tax),
			ShippingCost:  model.Money(row.ShippingCost),
			Discount:      model.Money(row.Discount),
			Total:         model.Money(row.Total),
			Status:        model.BillStatus(row.Status),
			PaymentMethod: row.PaymentMethod,
			Notes:         row.Notes,
			Version:       row.Version,
			BillDate:      row.BillDate,
			UpdatedAt:     row.UpdatedAt,
		})
	}
	return bills, nil
}

func toBillRow(bill *model.Bill) billRow {
	return billRow{
		ID:            bill.ID,
		OrderID:       bill.OrderID,
		UserID:        bill.UserID,
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
}
