package tests

import (
	"sync"

	"github.com/google/uuid"

	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/model"
	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/service"
)

var _ service.EventDispatcher = &mockEventDispatcher{}

type mockEventDispatcher struct {
	mu     sync.Mutex
	events []service.Event
}

func (m *mockEventDispatcher) Dispatch(event service.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockEventDispatcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

func (m *mockEventDispatcher) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, 0, len(m.events))
	for _, e := range m.events {
		types = append(types, e.Type())
	}
	return types
}

func user() model.Actor {
	return model.Actor{ID: uuid.New(), Email: "buyer@example.com", Name: "Buyer", Role: model.RoleUser}
}

func admin() model.Actor {
	return model.Actor{ID: uuid.New(), Email: "admin@example.com", Name: "Admin", Role: model.RoleAdmin}
}

func rupees(r int64) model.Money {
	return model.Money(r * 100)
}
