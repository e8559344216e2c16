package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/model"
)

var _ model.CatalogRepository = &CatalogRepository{}

var catalogTables = map[model.Variant]string{
	model.Product:   "products",
	model.Accessory: "accessories",
}

type CatalogRepository struct {
	db *sqlx.DB
}

func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

type catalogItemRow struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	Price     int64     `db:"price"`
	Stock     int       `db:"stock"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type reviewRow struct {
	User      string    `db:"user"`
	Value     int       `db:"value"`
	Text      string    `db:"text"`
	CreatedAt time.Time `db:"created_at"`
}

type inventoryLogRow struct {
	ID          uuid.UUID `db:"id"`
	ItemID      uuid.UUID `db:"item_id"`
	Variant     string    `db:"variant"`
	Action      string    `db:"action"`
	Quantity    int       `db:"quantity"`
	NewStock    int       `db:"new_stock"`
	Reference   string    `db:"reference"`
	PerformedBy string    `db:"performed_by"`
	Note        string    `db:"note"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r *CatalogRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *CatalogRepository) Create(ctx context.Context, item *model.CatalogItem) error {
	table, err := tableFor(item.Variant)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, name, price, stock, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`, table)
	_, err = executor(ctx, r.db).ExecContext(ctx, query,
		item.ID, item.Name, int64(item.Price), item.Stock, item.CreatedAt, item.UpdatedAt)
	return errors.Wrapf(err, "insert %s", item.Variant)
}

func (r *CatalogRepository) Find(ctx context.Context, variant model.Variant, id uuid.UUID) (*model.CatalogItem, error) {
	table, err := tableFor(variant)
	if err != nil {
		return nil, err
	}
	q := executor(ctx, r.db)

	var row catalogItemRow
	query := fmt.Sprintf(`SELECT id, name, price, stock, created_at, updated_at FROM %s WHERE id = ?`, table)
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrCatalogItemNotFound
		}
		return nil, errors.Wrapf(err, "find %s", variant)
	}

	var reviews []reviewRow
	err = sqlx.SelectContext(ctx, q, &reviews,
		"SELECT `user`, `value`, `text`, created_at FROM catalog_reviews WHERE variant = ? AND item_id = ? ORDER BY id",
		string(variant), id)
	if err != nil {
		return nil, errors.Wrap(err, "load reviews")
	}

	item := &model.CatalogItem{
		ID:        row.ID,
		Variant:   variant,
		Name:      row.Name,
		Price:     model.Money(row.Price),
		Stock:     row.Stock,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	for _, rv := range reviews {
		item.Reviews = append(item.Reviews, model.Review{User: rv.User, Value: rv.Value, Text: rv.Text, CreatedAt: rv.CreatedAt})
	}
	return item, nil
}

// DecrementStock runs a single conditional UPDATE. LAST_INSERT_ID(stock)
// hands the pre-update stock back on the same statement.
func (r *CatalogRepository) DecrementStock(ctx context.Context, variant model.Variant, id uuid.UUID, quantity int, policy model.StockPolicy) (model.StockChange, error) {
	table, err := tableFor(variant)
	if err != nil {
		return model.StockChange{}, err
	}

	stock, hit, err := r.updateStock(ctx, decrementQuery(table, policy), decrementArgs(id, quantity, policy)...)
	if err != nil {
		return model.StockChange{}, errors.Wrapf(err, "decrement %s stock", variant)
	}
	if !hit {
		if err := r.ensureExists(ctx, table, id); err != nil {
			return model.StockChange{}, err
		}
		return model.StockChange{}, model.ErrInsufficientStock
	}
	return model.DecrementFrom(stock, quantity), nil
}

func decrementQuery(table string, policy model.StockPolicy) string {
	if policy == model.StrictStock {
		return fmt.Sprintf(`UPDATE %s SET stock = LAST_INSERT_ID(stock) - ?, updated_at = ? WHERE id = ? AND stock >= ?`, table)
	}
	return fmt.Sprintf(`UPDATE %s SET stock = GREATEST(LAST_INSERT_ID(stock) - ?, 0), updated_at = ? WHERE id = ?`, table)
}

func decrementArgs(id uuid.UUID, quantity int, policy model.StockPolicy) []interface{} {
	args := []interface{}{quantity, time.Now().UTC(), id}
	if policy == model.StrictStock {
		args = append(args, quantity)
	}
	return args
}

func (r *CatalogRepository) IncrementStock(ctx context.Context, variant model.Variant, id uuid.UUID, quantity int) (int, error) {
	table, err := tableFor(variant)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`UPDATE %s SET stock = LAST_INSERT_ID(stock + ?), updated_at = ? WHERE id = ?`, table)
	stock, hit, err := r.updateStock(ctx, query, quantity, time.Now().UTC(), id)
	if err != nil {
		return 0, errors.Wrapf(err, "increment %s stock", variant)
	}
	if !hit {
		return 0, model.ErrCatalogItemNotFound
	}
	return stock, nil
}

func (r *CatalogRepository) updateStock(ctx context.Context, query string, args ...interface{}) (int, bool, error) {
	res, err := executor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, err
	}
	if affected == 0 {
		return 0, false, nil
	}
	stock, err := res.LastInsertId()
	if err != nil {
		return 0, false, err
	}
	return int(stock), true, nil
}

func (r *CatalogRepository) ensureExists(ctx context.Context, table string, id uuid.UUID) error {
	var one int
	query := fmt.Sprintf(`SELECT 1 FROM %s WHERE id = ?`, table)
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &one, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrCatalogItemNotFound
	}
	return errors.Wrap(err, "check catalog item")
}

func (r *CatalogRepository) AppendReview(ctx context.Context, variant model.Variant, id uuid.UUID, review model.Review) error {
	table, err := tableFor(variant)
	if err != nil {
		return err
	}
	if err := r.ensureExists(ctx, table, id); err != nil {
		return err
	}
	_, err = executor(ctx, r.db).ExecContext(ctx,
		"INSERT INTO catalog_reviews (variant, item_id, `user`, `value`, `text`, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		string(variant), id, review.User, review.Value, review.Text, review.CreatedAt)
	if isDuplicate(err) {
		return model.ErrAlreadyReviewed
	}
	return errors.Wrap(err, "insert review")
}

func (r *CatalogRepository) AppendInventoryLog(ctx context.Context, entry model.InventoryLogEntry) error {
	_, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), `
		INSERT INTO inventory_log (id, item_id, variant, action, quantity, new_stock, reference, performed_by, note, created_at)
		VALUES (:id, :item_id, :variant, :action, :quantity, :new_stock, :reference, :performed_by, :note, :created_at)`,
		inventoryLogRow{
			ID:          entry.ID,
			ItemID:      entry.ItemID,
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
	var rows []inventoryLogRow
	err := sqlx.SelectContext(ctx, executor(ctx, r.db), &rows, `
		SELECT id, item_id, variant, action, quantity, new_stock, reference, performed_by, note, created_at
		FROM inventory_log WHERE variant = ? AND item_id = ? ORDER BY created_at, id`,
		string(variant), id)
	if err != nil {
		return nil, errors.Wrap(err, "list inventory log")
	}
	entries := make([]model.InventoryLogEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, model.InventoryLogEntry{
			ID:          row.ID,
			ItemID:      row.ItemID,
			Variant:     model.Variant(row.Variant),
			Action:      model.InventoryAction(row.Action),
			Quantity:    row.Quantity,
			NewStock:    row.NewStock,
			Reference:   row.Reference,
			PerformedBy: row.PerformedBy,
			Note:        row.Note,
			CreatedAt:   row.CreatedAt,
		})
	}
	return entries, nil
}

func tableFor(variant model.Variant) (string, error) {
	table, ok := catalogTables[variant]
	if !ok {
		return "", model.ErrInvalidVariant
	}
	return table, nil
}
