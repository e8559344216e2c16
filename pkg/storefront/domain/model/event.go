package model

import (
	"time"

	"github.com/google/uuid"
)

type OrderPlaced struct {
	OrderID   uuid.UUID
	UserID    uuid.UUID
	UserEmail string
	Total     Money
	ItemCount int
}

func (e OrderPlaced) Type() string        { return "OrderPlaced" }
func (e OrderPlaced) AggregateID() string { return e.OrderID.String() }

type OrderCancelled struct {
	OrderID     uuid.UUID
	CancelledBy uuid.UUID
}

func (e OrderCancelled) Type() string        { return "OrderCancelled" }
func (e OrderCancelled) AggregateID() string { return e.OrderID.String() }

type OrderStatusChanged struct {
	OrderID      uuid.UUID
	OldStatus    OrderStatus
	NewStatus    OrderStatus
	DeliveryDate *time.Time
}

func (e OrderStatusChanged) Type() string        { return "OrderStatusChanged" }
func (e OrderStatusChanged) AggregateID() string { return e.OrderID.String() }

type OrderDeleted struct {
	OrderID   uuid.UUID
	DeletedBy uuid.UUID
}

func (e OrderDeleted) Type() string        { return "OrderDeleted" }
func (e OrderDeleted) AggregateID() string { return e.OrderID.String() }

type BillCreated struct {
	BillID     uuid.UUID
	OrderID    uuid.UUID
	BillNumber string
	Total      Money
}

func (e BillCreated) Type() string        { return "BillCreated" }
func (e BillCreated) AggregateID() string { return e.OrderID.String() }

type BillGenerationFailed struct {
	OrderID uuid.UUID
	Reason  string
}

func (e BillGenerationFailed) Type() string        { return "BillGenerationFailed" }
func (e BillGenerationFailed) AggregateID() string { return e.OrderID.String() }

type BillStatusChanged struct {
	BillID    uuid.UUID
	OrderID   uuid.UUID
	OldStatus BillStatus
	NewStatus BillStatus
}

func (e BillStatusChanged) Type() string        { return "BillStatusChanged" }
func (e BillStatusChanged) AggregateID() string { return e.OrderID.String() }

type BillChargesAdjusted struct {
	BillID uuid.UUID
	Total  Money
}

func (e BillChargesAdjusted) Type() string        { return "BillChargesAdjusted" }
func (e BillChargesAdjusted) AggregateID() string { return e.BillID.String() }

type StockChanged struct {
	ItemID       uuid.UUID
	Variant      Variant
	Action       InventoryAction
	ChangeAmount int // positive is intake, negative is outflow
	NewQuantity  int
	Reference    string
}

func (e StockChanged) Type() string        { return "StockChanged" }
func (e StockChanged) AggregateID() string { return e.ItemID.String() }

type ReviewAdded struct {
	ItemID  uuid.UUID
	Variant Variant
	User    string
	Value   int
}

func (e ReviewAdded) Type() string        { return "ReviewAdded" }
func (e ReviewAdded) AggregateID() string { return e.ItemID.String() }
