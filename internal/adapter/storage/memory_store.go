package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/brunovmr/acai-delivery/internal/core/domain"
)

var errMemoryStoreDown = errors.New("memory store marked unavailable")

// MemoryStore keeps everything in process memory: the availability maps,
// orders, idempotency keys and the audit trail. It backs local development
// without MySQL or Redis, and its Fail knob lets tests simulate an
// unreachable store.
type MemoryStore struct {
	mu      sync.Mutex
	kinds   map[domain.Kind]domain.AvailabilityMap
	orders  map[string]domain.Order
	idem    map[string]bool
	audit   []domain.AuditEntry
	failing bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		kinds: map[domain.Kind]domain.AvailabilityMap{
			domain.KindProducts: {},
			domain.KindFlavors:  {},
		},
		orders: make(map[string]domain.Order),
		idem:   make(map[string]bool),
	}
}

// Fail toggles simulated unavailability: every operation, including Ping,
// errors while set.
func (m *MemoryStore) Fail(v bool) {
	m.mu.Lock()
	m.failing = v
	m.mu.Unlock()
}

func (m *MemoryStore) LoadAll(ctx context.Context, kind domain.Kind) (domain.AvailabilityMap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return nil, errMemoryStoreDown
	}
	return m.kinds[kind].Clone(), nil
}

func (m *MemoryStore) SaveBulk(ctx context.Context, kind domain.Kind, patch domain.AvailabilityMap, actor string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errMemoryStoreDown
	}
	target := m.kinds[kind]
	if target == nil {
		target = domain.AvailabilityMap{}
		m.kinds[kind] = target
	}
	for k, v := range patch {
		target[k] = v
	}
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context, kind domain.Kind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errMemoryStoreDown
	}
	m.kinds[kind] = domain.AvailabilityMap{}
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errMemoryStoreDown
	}
	return nil
}

func (m *MemoryStore) CreateOrder(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errMemoryStoreDown
	}
	m.orders[order.ID] = order
	return nil
}

func (m *MemoryStore) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return nil, errMemoryStoreDown
	}
	order, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	return &order, nil
}

func (m *MemoryStore) MarkPaid(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errMemoryStoreDown
	}
	order, ok := m.orders[id]
	if !ok {
		return errors.New("order not found")
	}
	order.Paid = true
	order.Status = domain.OrderStatusConfirmed
	m.orders[id] = order
	return nil
}

func (m *MemoryStore) Acquire(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return false, errMemoryStoreDown
	}
	if m.idem[key] {
		return false, nil
	}
	m.idem[key] = true
	return true, nil
}

func (m *MemoryStore) Append(ctx context.Context, entry domain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errMemoryStoreDown
	}
	m.audit = append(m.audit, entry)
	return nil
}

// AuditEntries returns a copy of the recorded audit trail.
func (m *MemoryStore) AuditEntries() []domain.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditEntry, len(m.audit))
	copy(out, m.audit)
	return out
}
