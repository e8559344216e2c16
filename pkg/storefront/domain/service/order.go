package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/model"
)

type OrderService interface {
	NextID() (uuid.UUID, error)
	CreateOrder(ctx context.Context, order *model.Order) error

	GetOrder(ctx context.Context, orderID uuid.UUID, actor model.Actor) (*model.Order, error)
	ListOrders(ctx context.Context, actor model.Actor) ([]model.Order, error)
	ListUnbilledOrders(ctx context.Context) ([]model.Order, error)

	CancelOrder(ctx context.Context, orderID uuid.UUID, actor model.Actor) (*model.Order, error)
	// UpdateOrderStatus changes status and/or delivery date. An empty status
	// keeps the current one.
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus, deliveryDate *time.Time, actor model.Actor) (*model.Order, error)
	DeleteOrder(ctx context.Context, orderID uuid.UUID, actor model.Actor) error

	AttachBill(ctx context.Context, orderID, billID uuid.UUID) (*model.Order, error)
}

func NewOrderService(repo model.OrderRepository, dispatcher EventDispatcher) OrderService {
	return &orderService{repo: repo, dispatcher: dispatcher}
}

type orderService struct {
	repo       model.OrderRepository
	dispatcher EventDispatcher
}

func (s *orderService) NextID() (uuid.UUID, error) {
	return s.repo.NextID()
}

func (s *orderService) CreateOrder(ctx context.Context, order *model.Order) error {
	if len(order.Items) == 0 {
		return model.ErrEmptyCart
	}
	if order.ID == uuid.Nil {
		id, err := s.repo.NextID()
		if err != nil {
			return err
		}
		order.ID = id
	}
	now := time.Now().UTC()
	order.Address = strings.TrimSpace(order.Address)
	order.Status = model.Processing
	order.Version = 1
	order.BillID = nil
	order.CreatedAt = now
	order.UpdatedAt = now

	return s.repo.Create(ctx, order)
}

func (s *orderService) GetOrder(ctx context.Context, orderID uuid.UUID, actor model.Actor) (*model.Order, error) {
	order, err := s.repo.Find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(order.UserID) {
		return nil, model.ErrNotOrderOwner
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, actor model.Actor) ([]model.Order, error) {
	if actor.IsAdmin() {
		return s.repo.List(ctx)
	}
	return s.repo.ListByUser(ctx, actor.ID)
}

func (s *orderService) ListUnbilledOrders(ctx context.Context) ([]model.Order, error) {
	return s.repo.ListUnbilled(ctx)
}

func (s *orderService) CancelOrder(ctx context.Context, orderID uuid.UUID, actor model.Actor) (*model.Order, error) {
	order, err := s.repo.Find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(order.UserID) {
		return nil, model.ErrNotOrderOwner
	}
	if order.Status == model.Cancelled {
		return nil, model.ErrOrderAlreadyCancelled
	}
	if !order.Status.CanTransitionTo(model.Cancelled) {
		return nil, model.ErrInvalidStatusTransition
	}
	order.Status = model.Cancelled

	if err := s.updateOrder(ctx, order); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.OrderCancelled{OrderID: orderID, CancelledBy: actor.ID})
	return order, nil
}

func (s *orderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus, deliveryDate *time.Time, actor model.Actor) (*model.Order, error) {
	if !actor.IsAdmin() {
		return nil, model.ErrAdminRequired
	}
	if status != "" {
		if _, err := model.ParseOrderStatus(string(status)); err != nil {
			return nil, err
		}
	}
	order, err := s.repo.Find(ctx, orderID)
	if err != nil {
		return nil, err
	}

	old := order.Status
	if status != "" && status != old {
		if !old.CanTransitionTo(status) {
			return nil, model.ErrInvalidStatusTransition
		}
		order.Status = status
	}
	if deliveryDate != nil {
		d := deliveryDate.UTC()
		order.DeliveryDate = &d
	}

	if err := s.updateOrder(ctx, order); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.OrderStatusChanged{
		OrderID:      orderID,
		OldStatus:    old,
		NewStatus:    order.Status,
		DeliveryDate: order.DeliveryDate,
	})
	return order, nil
}

func (s *orderService) DeleteOrder(ctx context.Context, orderID uuid.UUID, actor model.Actor) error {
	order, err := s.repo.Find(ctx, orderID)
	if err != nil {
		return err
	}
	if !actor.CanAccess(order.UserID) {
		return model.ErrNotOrderOwner
	}
	if !order.Status.Deletable() {
		return model.ErrOrderNotDeletable
	}
	if err := s.repo.Delete(ctx, orderID); err != nil {
		return err
	}

	_ = s.dispatcher.Dispatch(model.OrderDeleted{OrderID: orderID, DeletedBy: actor.ID})
	return nil
}

func (s *orderService) AttachBill(ctx context.Context, orderID, billID uuid.UUID) (*model.Order, error) {
	order, err := s.repo.Find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BillID != nil && *order.BillID == billID {
		return order, nil
	}
	order.BillID = &billID
	if err := s.updateOrder(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) updateOrder(ctx context.Context, order *model.Order) error {
	order.Version++
	order.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, order)
}
