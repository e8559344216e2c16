package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/model"
)

var _ model.CatalogRepository = &CatalogRepository{}

// CatalogRepository keeps both catalogs in memory. Each variant has its own
// lock so a stock primitive on one item is atomic with respect to every
// other caller of that catalog.
type CatalogRepository struct {
	catalogs map[model.Variant]*catalog

	logMu sync.Mutex
	log   []model.InventoryLogEntry
}

type catalog struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.CatalogItem
}

func NewCatalogRepository() *CatalogRepository {
	r := &CatalogRepository{catalogs: make(map[model.Variant]*catalog)}
	for _, v := range model.Variants {
		r.catalogs[v] = &catalog{items: make(map[uuid.UUID]*model.CatalogItem)}
	}
	return r
}

func (r *CatalogRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *CatalogRepository) Create(_ context.Context, item *model.CatalogItem) error {
	c, err := r.catalog(item.Variant)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := cloneItem(item)
	c.items[item.ID] = stored
	return nil
}

func (r *CatalogRepository) Find(_ context.Context, variant model.Variant, id uuid.UUID) (*model.CatalogItem, error) {
	c, err := r.catalog(variant)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[id]
	if !ok {
		return nil, model.ErrCatalogItemNotFound
	}
	return cloneItem(item), nil
}

func (r *CatalogRepository) DecrementStock(_ context.Context, variant model.Variant, id uuid.UUID, quantity int, policy model.StockPolicy) (model.StockChange, error) {
	c, err := r.catalog(variant)
	if err != nil {
		return model.StockChange{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[id]
	if !ok {
		return model.StockChange{}, model.ErrCatalogItemNotFound
	}
	if policy == model.StrictStock && item.Stock < quantity {
		return model.StockChange{}, model.ErrInsufficientStock
	}
	change := model.DecrementFrom(item.Stock, quantity)
	item.Stock = change.After
	return change, nil
}

func (r *CatalogRepository) IncrementStock(_ context.Context, variant model.Variant, id uuid.UUID, quantity int) (int, error) {
	c, err := r.catalog(variant)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[id]
	if !ok {
		return 0, model.ErrCatalogItemNotFound
	}
	item.Stock += quantity
	return item.Stock, nil
}

func (r *CatalogRepository) AppendReview(_ context.Context, variant model.Variant, id uuid.UUID, review model.Review) error {
	c, err := r.catalog(variant)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[id]
	if !ok {
		return model.ErrCatalogItemNotFound
	}
	for _, existing := range item.Reviews {
		if existing.User == review.User {
			return model.ErrAlreadyReviewed
		}
	}
	item.Reviews = append(item.Reviews, review)
	return nil
}

func (r *CatalogRepository) AppendInventoryLog(_ context.Context, entry model.InventoryLogEntry) error {
	r.logMu.Lock()
	defer r.logMu.Unlock()
	r.log = append(r.log, entry)
	return nil
}

func (r *CatalogRepository) ListInventoryLog(_ context.Context, variant model.Variant, id uuid.UUID) ([]model.InventoryLogEntry, error) {
	r.logMu.Lock()
	defer r.logMu.Unlock()

	var entries []model.InventoryLogEntry
	for _, e := range r.log {
		if e.Variant == variant && e.ItemID == id {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (r *CatalogRepository) catalog(variant model.Variant) (*catalog, error) {
	c, ok := r.catalogs[variant]
	if !ok {
		return nil, model.ErrInvalidVariant
	}
	return c, nil
}

func cloneItem(item *model.CatalogItem) *model.CatalogItem {
	clone := *item
	clone.Reviews = append([]model.Review(nil), item.Reviews...)
	return &clone
}
