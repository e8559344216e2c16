package model

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type BillStatus string

const (
	BillPending   BillStatus = "Pending"
	BillPaid      BillStatus = "Paid"
	BillPartial   BillStatus = "Partial"
	BillOverdue   BillStatus = "Overdue"
	BillCancelled BillStatus = "Cancelled"
)

func ParseBillStatus(s string) (BillStatus, error) {
	switch st := BillStatus(s); st {
	case BillPending, BillPaid, BillPartial, BillOverdue, BillCancelled:
		return st, nil
	}
	return "", ErrUnknownStatus
}

const DefaultPaymentMethod = "Online"

type BillItem struct {
	ProductName string
	Quantity    int
	UnitPrice   Money
	TotalPrice  Money
}

type Bill struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	UserID        uuid.UUID
	BillNumber    string
	UserName      string
	UserEmail     string
	UserAddress   string
	Items         []BillItem
	Subtotal      Money
	TaxPercentage int64 // basis points, informational
	Tax           Money
	ShippingCost  Money
	Discount      Money
	Total         Money
	Status        BillStatus
	PaymentMethod string
	Notes         string
	Version       int
	BillDate      time.Time
	UpdatedAt     time.Time
}

// Recalculate derives line totals, subtotal and total from the stored parts.
// Total is never set any other way.
func (b *Bill) Recalculate() error {
	if b.Tax < 0 || b.ShippingCost < 0 || b.Discount < 0 {
		return ErrNegativeAmount
	}
	var subtotal Money
	for i := range b.Items {
		b.Items[i].TotalPrice = b.Items[i].UnitPrice.Times(b.Items[i].Quantity)
		subtotal += b.Items[i].TotalPrice
	}
	total := subtotal + b.Tax + b.ShippingCost - b.Discount
	if total < 0 {
		return ErrNegativeBillTotal
	}
	b.Subtotal = subtotal
	b.Total = total
	return nil
}

// Consistent reports whether the stored total matches its parts.
func (b *Bill) Consistent() bool {
	return b.Total == b.Subtotal+b.Tax+b.ShippingCost-b.Discount
}

func FormatBillNumber(date time.Time, seq int64) string {
	return fmt.Sprintf("BILL-%s-%06d", date.UTC().Format("20060102"), seq)
}

type BillRepository interface {
	NextID() (uuid.UUID, error)
	// NextBillSequence returns a store-wide, strictly increasing number.
	NextBillSequence(ctx context.Context) (int64, error)
	// Create fails with ErrBillAlreadyExists when the order is already billed.
	Create(ctx context.Context, bill *Bill) error
	Find(ctx context.Context, id uuid.UUID) (*Bill, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*Bill, error)
	Update(ctx context.Context, bill *Bill) error
	List(ctx context.Context) ([]Bill, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Bill, error)
}
