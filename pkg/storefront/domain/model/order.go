package model

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	Processing     OrderStatus = "Processing"
	Shipped        OrderStatus = "Shipped"
	OutForDelivery OrderStatus = "Out for Delivery"
	Delivered      OrderStatus = "Delivered"
	Cancelled      OrderStatus = "Cancelled"
)

// fulfilmentRank orders the forward part of the lifecycle.
var fulfilmentRank = map[OrderStatus]int{
	Processing:     0,
	Shipped:        1,
	OutForDelivery: 2,
	Delivered:      3,
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	if _, ok := fulfilmentRank[st]; ok || st == Cancelled {
		return st, nil
	}
	return "", ErrUnknownStatus
}

func (s OrderStatus) Terminal() bool {
	return s == Delivered || s == Cancelled
}

// Deletable reports whether an order in this status may be removed.
func (s OrderStatus) Deletable() bool {
	return s.Terminal()
}

// CanTransitionTo allows forward moves along the fulfilment chain (skipping
// steps is fine) and cancellation from any non-terminal state.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == Cancelled {
		return true
	}
	from, ok := fulfilmentRank[s]
	if !ok {
		return false
	}
	to, ok := fulfilmentRank[next]
	return ok && to > from
}

type OrderItem struct {
	CatalogItemID uuid.UUID
	Variant       Variant
	Name          string
	Quantity      int
	UnitPrice     Money
}

func (i OrderItem) LineTotal() Money {
	return i.UnitPrice.Times(i.Quantity)
}

type Order struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	UserEmail    string
	Items        []OrderItem
	Total        Money
	Address      string
	PaymentInfo  json.RawMessage
	Status       OrderStatus
	DeliveryDate *time.Time
	BillID       *uuid.UUID
	Version      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ItemsTotal is the sum of the item snapshot at order time.
func (o *Order) ItemsTotal() Money {
	var total Money
	for _, item := range o.Items {
		total += item.LineTotal()
	}
	return total
}

func (o *Order) Billed() bool {
	return o.BillID != nil
}

type OrderRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, order *Order) error
	Find(ctx context.Context, id uuid.UUID) (*Order, error)
	// Update persists status, delivery date and bill reference. The caller
	// bumps Version; the stored version must be exactly one behind.
	Update(ctx context.Context, order *Order) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error)
	ListUnbilled(ctx context.Context) ([]Order, error)
}
