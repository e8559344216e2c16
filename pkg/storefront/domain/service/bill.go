package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/model"
)

// BillOptions carries the charges applied on top of the item subtotal. A nil
// Tax means the tax is derived from TaxRateBasisPoints.
type BillOptions struct {
	TaxRateBasisPoints int64
	Tax                *model.Money
	ShippingCost       model.Money
	Discount           model.Money
	PaymentMethod      string
	Notes              string
	UserName           string
}

type BillService interface {
	// CreateBillForOrder is idempotent per order: a second call returns the
	// bill created by the first. snapshot, when given, is the order as placed
	// and supplies the items instead of the stored copy. A nil userID bills
	// the order's owner.
	CreateBillForOrder(ctx context.Context, orderID, userID uuid.UUID, snapshot *model.Order, opts BillOptions) (*model.Bill, error)

	GetBill(ctx context.Context, billID uuid.UUID, actor model.Actor) (*model.Bill, error)
	GetBillByOrder(ctx context.Context, orderID uuid.UUID, actor model.Actor) (*model.Bill, error)
	ListBills(ctx context.Context, actor model.Actor) ([]model.Bill, error)

	UpdateBillStatus(ctx context.Context, billID uuid.UUID, status model.BillStatus, actor model.Actor) (*model.Bill, error)
	AdjustBillCharges(ctx context.Context, billID uuid.UUID, tax, shipping, discount *model.Money, actor model.Actor) (*model.Bill, error)
}

func NewBillService(repo model.BillRepository, orders model.OrderRepository, dispatcher EventDispatcher) BillService {
	return &billService{repo: repo, orders: orders, dispatcher: dispatcher}
}

type billService struct {
	repo       model.BillRepository
	orders     model.OrderRepository
	dispatcher EventDispatcher
}

func (s *billService) CreateBillForOrder(ctx context.Context, orderID, userID uuid.UUID, snapshot *model.Order, opts BillOptions) (*model.Bill, error) {
	stored, err := s.orders.Find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order := stored
	if snapshot != nil {
		order = snapshot
	}
	if len(order.Items) == 0 {
		return nil, model.ErrBillHasNoItems
	}

	existing, err := s.repo.FindByOrderID(ctx, orderID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, model.ErrBillNotFound) {
		return nil, err
	}

	if userID == uuid.Nil {
		userID = stored.UserID
	}
	bill, err := s.newBill(ctx, orderID, userID, order, opts)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, bill); err != nil {
		if errors.Is(err, model.ErrBillAlreadyExists) {
			return s.repo.FindByOrderID(ctx, orderID)
		}
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.BillCreated{
		BillID:     bill.ID,
		OrderID:    orderID,
		BillNumber: bill.BillNumber,
		Total:      bill.Total,
	})
	return bill, nil
}

func (s *billService) newBill(ctx context.Context, orderID, userID uuid.UUID, order *model.Order, opts BillOptions) (*model.Bill, error) {
	items := make([]model.BillItem, 0, len(order.Items))
	for _, item := range order.Items {
		if item.Quantity <= 0 {
			return nil, model.ErrInvalidQuantity
		}
		if item.UnitPrice < 0 {
			return nil, model.ErrNegativeAmount
		}
		items = append(items, model.BillItem{
			ProductName: item.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}

	id, err := s.repo.NextID()
	if err != nil {
		return nil, err
	}
	seq, err := s.repo.NextBillSequence(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	paymentMethod := strings.TrimSpace(opts.PaymentMethod)
	if paymentMethod == "" {
		paymentMethod = model.DefaultPaymentMethod
	}
	userName := strings.TrimSpace(opts.UserName)
	if userName == "" {
		userName = order.UserEmail
	}

	bill := &model.Bill{
		ID:            id,
		OrderID:       orderID,
		UserID:        userID,
		BillNumber:    model.FormatBillNumber(now, seq),
		UserName:      userName,
		UserEmail:     order.UserEmail,
		UserAddress:   order.Address,
		Items:         items,
		TaxPercentage: opts.TaxRateBasisPoints,
		ShippingCost:  opts.ShippingCost,
		Discount:      opts.Discount,
		Status:        model.BillPending,
		PaymentMethod: paymentMethod,
		Notes:         opts.Notes,
		Version:       1,
		BillDate:      now,
		UpdatedAt:     now,
	}
	if err := bill.Recalculate(); err != nil {
		return nil, err
	}
	if opts.Tax != nil {
		bill.Tax = *opts.Tax
	} else {
		bill.Tax = bill.Subtotal.BasisPoints(opts.TaxRateBasisPoints)
	}
	if err := bill.Recalculate(); err != nil {
		return nil, err
	}
	return bill, nil
}

func (s *billService) GetBill(ctx context.Context, billID uuid.UUID, actor model.Actor) (*model.Bill, error) {
	bill, err := s.repo.Find(ctx, billID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(bill.UserID) {
		return nil, model.ErrNotBillOwner
	}
	return bill, nil
}

func (s *billService) GetBillByOrder(ctx context.Context, orderID uuid.UUID, actor model.Actor) (*model.Bill, error) {
	bill, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(bill.UserID) {
		return nil, model.ErrNotBillOwner
	}
	return bill, nil
}

func (s *billService) ListBills(ctx context.Context, actor model.Actor) ([]model.Bill, error) {
	if actor.IsAdmin() {
		return s.repo.List(ctx)
	}
	return s.repo.ListByUser(ctx, actor.ID)
}

func (s *billService) UpdateBillStatus(ctx context.Context, billID uuid.UUID, status model.BillStatus, actor model.Actor) (*model.Bill, error) {
	if !actor.IsAdmin() {
		return nil, model.ErrAdminRequired
	}
	if _, err := model.ParseBillStatus(string(status)); err != nil {
		return nil, err
	}
	bill, err := s.repo.Find(ctx, billID)
	if err != nil {
		return nil, err
	}
	old := bill.Status
	if old == status {
		return bill, nil
	}
	bill.Status = status
	if err := s.updateBill(ctx, bill); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.BillStatusChanged{
		BillID:    billID,
		OrderID:   bill.OrderID,
		OldStatus: old,
		NewStatus: status,
	})
	return bill, nil
}

func (s *billService) AdjustBillCharges(ctx context.Context, billID uuid.UUID, tax, shipping, discount *model.Money, actor model.Actor) (*model.Bill, error) {
	if !actor.IsAdmin() {
		return nil, model.ErrAdminRequired
	}
	bill, err := s.repo.Find(ctx, billID)
	if err != nil {
		return nil, err
	}
	if tax != nil {
		bill.Tax = *tax
	}
	if shipping != nil {
		bill.ShippingCost = *shipping
	}
	if discount != nil {
		bill.Discount = *discount
	}
	if err := bill.Recalculate(); err != nil {
		return nil, err
	}
	if err := s.updateBill(ctx, bill); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.BillChargesAdjusted{BillID: billID, Total: bill.Total})
	return bill, nil
}

func (s *billService) updateBill(ctx context.Context, bill *model.Bill) error {
	bill.Version++
	bill.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, bill)
}
