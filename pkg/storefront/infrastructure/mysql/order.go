package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/model"
)

var _ model.OrderRepository = &OrderRepository{}

type OrderRepository struct {
	db *sqlx.DB
	tx *Transactor
}

func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db, tx: NewTransactor(db)}
}

type orderRow struct {
	ID           uuid.UUID      `db:"id"`
	UserID       uuid.UUID      `db:"user_id"`
	UserEmail    string         `db:"user_email"`
	Total        int64          `db:"total"`
	Address      string         `db:"address"`
	PaymentInfo  sql.NullString `db:"payment_info"`
	Status       string         `db:"status"`
	DeliveryDate sql.NullTime   `db:"delivery_date"`
	BillID       uuid.NullUUID  `db:"bill_id"`
	Version      int            `db:"version"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

type orderItemRow struct {
	OrderID       uuid.UUID `db:"order_id"`
	Position      int       `db:"position"`
	CatalogItemID uuid.UUID `db:"catalog_item_id"`
	Variant       string    `db:"variant"`
	Name          string    `db:"name"`
	Quantity      int       `db:"quantity"`
	UnitPrice     int64     `db:"unit_price"`
}

const selectOrders = `SELECT id, user_id, user_email, total, address, payment_info, status, delivery_date,
	bill_id, version, created_at, updated_at FROM orders`

func (r *OrderRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *OrderRepository) Create(ctx context.Context, order *model.Order) error {
	return r.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		q := executor(ctx, r.db)
		_, err := sqlx.NamedExecContext(ctx, q, `
			INSERT INTO orders (id, user_id, user_email, total, address, payment_info, status, delivery_date,
				bill_id, version, created_at, updated_at)
			VALUES (:id, :user_id, :user_email, :total, :address, :payment_info, :status, :delivery_date,
				:bill_id, :version, :created_at, :updated_at)`, toOrderRow(order))
		if err != nil {
			return errors.Wrap(err, "insert order")
		}

		for i, item := range order.Items {
			_, err := sqlx.NamedExecContext(ctx, q, `
				INSERT INTO order_items (order_id, position, catalog_item_id, variant, name, quantity, unit_price)
				VALUES (:order_id, :position, :catalog_item_id, :variant, :name, :quantity, :unit_price)`,
				orderItemRow{
					OrderID:       order.ID,
					Position:      i,
					CatalogItemID: item.CatalogItemID,
					Variant:       string(item.Variant),
					Name:          item.Name,
					Quantity:      item.Quantity,
					UnitPrice:     int64(item.UnitPrice),
				})
			if err != nil {
				return errors.Wrap(err, "insert order item")
			}
		}
		return nil
	})
}

func (r *OrderRepository) Find(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	q := executor(ctx, r.db)
	var row orderRow
	if err := sqlx.GetContext(ctx, q, &row, selectOrders+` WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "find order")
	}
	orders, err := r.withItems(ctx, []orderRow{row})
	if err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *OrderRepository) Update(ctx context.Context, order *model.Order) error {
	row := toOrderRow(order)
	res, err := executor(ctx, r.db).ExecContext(ctx, `
		UPDATE orders SET status = ?, delivery_date = ?, bill_id = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?`,
		row.Status, row.DeliveryDate, row.BillID, row.Version, row.UpdatedAt, row.ID, row.Version-1)
	if err != nil {
		return errors.Wrap(err, "update order")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "update order")
	}
	if affected == 0 {
		if _, err := r.Find(ctx, order.ID); err != nil {
			return err
		}
		return model.ErrOptimisticLock
	}
	return nil
}

func (r *OrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := executor(ctx, r.db).ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "delete order")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "delete order")
	}
	if affected == 0 {
		return model.ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepository) List(ctx context.Context) ([]model.Order, error) {
	return r.list(ctx, selectOrders+` ORDER BY created_at DESC`)
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	return r.list(ctx, selectOrders+` WHERE user_id = ? ORDER BY created_at DESC`, userID)
}

func (r *OrderRepository) ListUnbilled(ctx context.Context) ([]model.Order, error) {
	return r.list(ctx, selectOrders+` WHERE bill_id IS NULL ORDER BY created_at DESC`)
}

func (r *OrderRepository) list(ctx context.Context, query string, args ...interface{}) ([]model.Order, error) {
	var rows []orderRow
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return r.withItems(ctx, rows)
}

func (r *OrderRepository) withItems(ctx context.Context, rows []orderRow) ([]model.Order, error) {
	if len(rows) == 0 {
		return []model.Order{}, nil
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	query, args, err := sqlx.In(`SELECT order_id, position, catalog_item_id, variant, name, quantity, unit_price
		FROM order_items WHERE order_id IN (?) ORDER BY order_id, position`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "build order items query")
	}
	q := executor(ctx, r.db)
	var items []orderItemRow
	if err := sqlx.SelectContext(ctx, q, &items, q.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "load order items")
	}

	byOrder := make(map[uuid.UUID][]model.OrderItem, len(rows))
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], model.OrderItem{
			CatalogItemID: item.CatalogItemID,
			Variant:       model.Variant(item.Variant),
			Name:          item.Name,
			Quantity:      item.Quantity,
			UnitPrice:     model.Money(item.UnitPrice),
		})
	}

	orders := make([]model.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, fromOrderRow(row, byOrder[row.ID]))
	}
	return orders, nil
}

func toOrderRow(order *model.Order) orderRow {
	row := orderRow{
		ID:        order.ID,
		UserID:    order.UserID,
		UserEmail: order.UserEmail,
		Total:     int64(order.Total),
		Address:   order.Address,
		Status:    string(order.Status),
		Version:   order.Version,
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
	if len(order.PaymentInfo) > 0 {
		row.PaymentInfo = sql.NullString{String: string(order.PaymentInfo), Valid: true}
	}
	if order.DeliveryDate != nil {
		row.DeliveryDate = sql.NullTime{Time: *order.DeliveryDate, Valid: true}
	}
	if order.BillID != nil {
		row.BillID = uuid.NullUUID{UUID: *order.BillID, Valid: true}
	}
	return row
}

func fromOrderRow(row orderRow, items []model.OrderItem) model.Order {
	order := model.Order{
		ID:        row.ID,
		UserID:    row.UserID,
		UserEmail: row.UserEmail,
		Items:     items,
		Total:     model.Money(row.Total),
		Address:   row.Address,
		Status:    model.OrderStatus(row.Status),
		Version:   row.Version,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.PaymentInfo.Valid {
		order.PaymentInfo = []byte(row.PaymentInfo.String)
	}
	if row.DeliveryDate.Valid {
		d := row.DeliveryDate.Time
		order.DeliveryDate = &d
	}
	if row.BillID.Valid {
		id := row.BillID.UUID
		order.BillID = &id
	}
	return order
}
