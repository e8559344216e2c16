package tests

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/application/service"
	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/model"
	domainservice "github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/service"
	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/infrastructure/memory"
)

var errStorageDown = errors.New("storage unavailable")

var _ domainservice.EventDispatcher = &mockEventDispatcher{}

type mockEventDispatcher struct {
	mu     sync.Mutex
	events []domainservice.Event
	// failOn makes every event of this type fail after being recorded.
	failOn string
}

func (m *mockEventDispatcher) Dispatch(event domainservice.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	if event.Type() == m.failOn {
		return errors.New("broker unavailable")
	}
	return nil
}

func (m *mockEventDispatcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

func (m *mockEventDispatcher) Count(eventType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.Type() == eventType {
			n++
		}
	}
	return n
}

var _ service.CheckoutObserver = &mockObserver{}

type mockObserver struct {
	mu               sync.Mutex
	outcomes         []string
	billFailures     int
	compensations    int
	compensatedLines int
}

func (m *mockObserver) ObserveCheckout(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *mockObserver) BillGenerationFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.billFailures++
}

func (m *mockObserver) CompensationApplied(lines int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.compensations++
	m.compensatedLines += lines
}

// failingBillRepository refuses to store bills until healed.
type failingBillRepository struct {
	*memory.BillRepository
	mu      sync.Mutex
	failing bool
	panics  bool
}

func (r *failingBillRepository) Create(ctx context.Context, bill *model.Bill) error {
	r.mu.Lock()
	failing, panics := r.failing, r.panics
	r.mu.Unlock()
	if panics {
		panic("bill store exploded")
	}
	if failing {
		return errStorageDown
	}
	return r.BillRepository.Create(ctx, bill)
}

func (r *failingBillRepository) Heal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failing, r.panics = false, false
}

// failingOrderRepository fails every insert.
type failingOrderRepository struct {
	*memory.OrderRepository
}

func (r *failingOrderRepository) Create(context.Context, *model.Order) error {
	return errStorageDown
}

// recordingTransactor counts transactions and runs fn in place. beforeCommit
// runs after fn succeeds, while the transaction would still be open.
type recordingTransactor struct {
	mu           sync.Mutex
	calls        int
	beforeCommit func()
}

func (t *recordingTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	t.calls++
	t.mu.Unlock()
	if err := fn(ctx); err != nil {
		return err
	}
	if t.beforeCommit != nil {
		t.beforeCommit()
	}
	return nil
}
