package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/model"
)

var _ model.BillRepository = &BillRepository{}

type BillRepository struct {
	mu      sync.RWMutex
	store   map[uuid.UUID]*model.Bill
	byOrder map[uuid.UUID]uuid.UUID
	seq     atomic.Int64
}

func NewBillRepository() *BillRepository {
	return &BillRepository{
		store:   make(map[uuid.UUID]*model.Bill),
		byOrder: make(map[uuid.UUID]uuid.UUID),
	}
}

func (r *BillRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *BillRepository) NextBillSequence(_ context.Context) (int64, error) {
	return r.seq.Add(1), nil
}

func (r *BillRepository) Create(_ context.Context, bill *model.Bill) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byOrder[bill.OrderID]; exists {
		return model.ErrBillAlreadyExists
	}
	r.store[bill.ID] = cloneBill(bill)
	r.byOrder[bill.OrderID] = bill.ID
	return nil
}

func (r *BillRepository) Find(_ context.Context, id uuid.UUID) (*model.Bill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bill, ok := r.store[id]
	if !ok {
		return nil, model.ErrBillNotFound
	}
	return cloneBill(bill), nil
}

func (r *BillRepository) FindByOrderID(_ context.Context, orderID uuid.UUID) (*model.Bill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byOrder[orderID]
	if !ok {
		return nil, model.ErrBillNotFound
	}
	return cloneBill(r.store[id]), nil
}

func (r *BillRepository) Update(_ context.Context, bill *model.Bill) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.store[bill.ID]
	if !ok {
		return model.ErrBillNotFound
	}
	if existing.Version != bill.Version-1 {
		return model.ErrOptimisticLock
	}
	r.store[bill.ID] = cloneBill(bill)
	return nil
}

func (r *BillRepository) List(_ context.Context) ([]model.Bill, error) {
	return r.filter(func(*model.Bill) bool { return true }), nil
}

func (r *BillRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Bill, error) {
	return r.filter(func(b *model.Bill) bool { return b.UserID == userID }), nil
}

func (r *BillRepository) filter(match func(*model.Bill) bool) []model.Bill {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bills := make([]model.Bill, 0, len(r.store))
	for _, b := range r.store {
		if match(b) {
			bills = append(bills, *cloneBill(b))
		}
	}
	sort.Slice(bills, func(i, j int) bool {
		return bills[i].BillDate.After(bills[j].BillDate)
	})
	return bills
}

func cloneBill(bill *model.Bill) *model.Bill {
	clone := *bill
	clone.Items = append([]model.BillItem(nil), bill.Items...)
	return &clone
}
