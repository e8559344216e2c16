package model

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Variant tells which catalog an item lives in. Products and accessories share
// one shape but have disjoint identity spaces.
type Variant string

const (
	Product   Variant = "product"
	Accessory Variant = "accessory"
)

// Variants lists the catalogs in the order they are probed when a cart line
// does not name its variant.
var Variants = []Variant{Product, Accessory}

func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case Product:
		return Product, nil
	case Accessory:
		return Accessory, nil
	}
	return "", ErrInvalidVariant
}

type StockPolicy int

const (
	// PermissiveStock never rejects a sale; stock is clamped at zero.
	PermissiveStock StockPolicy = iota
	// StrictStock rejects a decrement larger than the current stock.
	StrictStock
)

func (p StockPolicy) String() string {
	if p == StrictStock {
		return "strict"
	}
	return "permissive"
}

type CatalogItem struct {
	ID        uuid.UUID
	Variant   Variant
	Name      string
	Price     Money
	Stock     int
	Reviews   []Review
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Review struct {
	User      string
	Value     int
	Text      string
	CreatedAt time.Time
}

type RatingSummary struct {
	Average float64
	Count   int
}

// Rating is computed on read and never stored.
func (i CatalogItem) Rating() RatingSummary {
	if len(i.Reviews) == 0 {
		return RatingSummary{}
	}
	sum := 0
	for _, r := range i.Reviews {
		sum += r.Value
	}
	avg := float64(sum) / float64(len(i.Reviews))
	return RatingSummary{Average: float64(int(avg*100+0.5)) / 100, Count: len(i.Reviews)}
}

func (i CatalogItem) InStock() bool { return i.Stock > 0 }

type InventoryAction string

const (
	InventorySold       InventoryAction = "sold"
	InventoryRestock    InventoryAction = "restock"
	InventoryReturn     InventoryAction = "return"
	InventoryAdjustment InventoryAction = "adjustment"
)

type InventoryLogEntry struct {
	ID          uuid.UUID
	ItemID      uuid.UUID
	Variant     Variant
	Action      InventoryAction
	Quantity    int
	NewStock    int
	Reference   string
	PerformedBy string
	Note        string
	CreatedAt   time.Time
}

// StockChange is the stock level around a single decrement.
type StockChange struct {
	Before int
	After  int
}

// Removed is how many units the decrement actually took. Under the
// permissive policy it can be less than requested.
func (c StockChange) Removed() int { return c.Before - c.After }

// DecrementFrom derives the change of taking quantity units from before,
// never going below zero.
func DecrementFrom(before, quantity int) StockChange {
	after := before - quantity
	if after < 0 {
		after = 0
	}
	return StockChange{Before: before, After: after}
}

type CatalogRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, item *CatalogItem) error
	Find(ctx context.Context, variant Variant, id uuid.UUID) (*CatalogItem, error)

	// DecrementStock is the single atomic stock-reduction primitive.
	DecrementStock(ctx context.Context, variant Variant, id uuid.UUID, quantity int, policy StockPolicy) (StockChange, error)
	IncrementStock(ctx context.Context, variant Variant, id uuid.UUID, quantity int) (int, error)

	AppendReview(ctx context.Context, variant Variant, id uuid.UUID, review Review) error

	AppendInventoryLog(ctx context.Context, entry InventoryLogEntry) error
	ListInventoryLog(ctx context.Context, variant Variant, id uuid.UUID) ([]InventoryLogEntry, error)
}
