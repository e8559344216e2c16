package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/model"
)

var _ model.OrderRepository = &OrderRepository{}

type OrderRepository struct {
	mu    sync.RWMutex
	store map[uuid.UUID]*model.Order
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{store: make(map[uuid.UUID]*model.Order)}
}

func (r *OrderRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *OrderRepository) Create(_ context.Context, order *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.store[order.ID]; exists {
		return errors.Errorf("order %s already exists", order.ID)
	}
	r.store[order.ID] = cloneOrder(order)
	return nil
}

func (r *OrderRepository) Find(_ context.Context, id uuid.UUID) (*model.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.store[id]
	if !ok {
		return nil, model.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

func (r *OrderRepository) Update(_ context.Context, order *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.store[order.ID]
	if !ok {
		return model.ErrOrderNotFound
	}
	if existing.Version != order.Version-1 {
		return model.ErrOptimisticLock
	}
	r.store[order.ID] = cloneOrder(order)
	return nil
}

func (r *OrderRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[id]; !ok {
		return model.ErrOrderNotFound
	}
	delete(r.store, id)
	return nil
}

func (r *OrderRepository) List(_ context.Context) ([]model.Order, error) {
	return r.filter(func(*model.Order) bool { return true }), nil
}

func (r *OrderRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Order, error) {
	return r.filter(func(o *model.Order) bool { return o.UserID == userID }), nil
}

func (r *OrderRepository) ListUnbilled(_ context.Context) ([]model.Order, error) {
	return r.filter(func(o *model.Order) bool { return !o.Billed() }), nil
}

// filter returns matching orders newest first.
func (r *OrderRepository) filter(match func(*model.Order) bool) []model.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := make([]model.Order, 0, len(r.store))
	for _, o := range r.store {
		if match(o) {
			orders = append(orders, *cloneOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders
}

func cloneOrder(order *model.Order) *model.Order {
	clone := *order
	clone.Items = append([]model.OrderItem(nil), order.Items...)
	clone.PaymentInfo = append([]byte(nil), order.PaymentInfo...)
	if order.DeliveryDate != nil {
		d := *order.DeliveryDate
		clone.DeliveryDate = &d
	}
	if order.BillID != nil {
		id := *order.BillID
		clone.BillID = &id
	}
	return &clone
}
