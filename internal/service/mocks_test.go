package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fjod/go_cart/cart-session/internal/domain"
	"github.com/fjod/go_cart/cart-session/internal/notify"
	"github.com/fjod/go_cart/cart-session/internal/repository"
)

var errNetwork = errors.New("connection refused")

type mockCatalog struct {
	products map[int64]domain.Product
	err      error
	calls    atomic.Int32
}

func (m *mockCatalog) GetProduct(_ context.Context, id int64) (domain.Product, error) {
	m.calls.Add(1)
	if m.err != nil {
		return domain.Product{}, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return domain.Product{}, errors.New("product not found")
	}
	return p, nil
}

type mockStock struct {
	mu      sync.Mutex
	amounts map[int64]int
	err     error
	calls   int
}

func (m *mockStock) GetStock(_ context.Context, id int64) (domain.Stock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return domain.Stock{}, m.err
	}
	amount, ok := m.amounts[id]
	if !ok {
		return domain.Stock{}, errors.New("stock not found")
	}
	return domain.Stock{ID: id, Amount: amount}, nil
}

func (m *mockStock) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockNotifier struct {
	mu      sync.Mutex
	notices []notify.Notice
}

func (m *mockNotifier) Notify(_ context.Context, n notify.Notice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices = append(m.notices, n)
	return nil
}

func (m *mockNotifier) kinds() []notify.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]notify.Kind, 0, len(m.notices))
	for _, n := range m.notices {
		out = append(out, n.Kind)
	}
	return out
}

// mockSlot wraps a memory slot so tests can inject failures and count reads.
type mockSlot struct {
	inner    repository.CartSlot
	writeErr error
	readErr  error
	reads    *atomic.Int32
	delay    time.Duration
}

func (m *mockSlot) Read(ctx context.Context) ([]domain.LineItem, error) {
	if m.reads != nil {
		m.reads.Add(1)
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.inner.Read(ctx)
}

func (m *mockSlot) Write(ctx context.Context, items []domain.LineItem) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	return m.inner.Write(ctx, items)
}

type mockProvider struct {
	memory *repository.MemoryProvider
	reads  atomic.Int32
	delay  time.Duration
}

func newMockProvider() *mockProvider {
	return &mockProvider{memory: repository.NewMemoryProvider()}
}

func (p *mockProvider) Slot(sessionID string) repository.CartSlot {
	return &mockSlot{inner: p.memory.Slot(sessionID), reads: &p.reads, delay: p.delay}
}

func product(id int64) domain.Product {
	return domain.Product{ID: id, Title: "Tênis", Price: 139.9, Image: "img.jpg"}
}

func item(id int64, amount int) domain.LineItem {
	return domain.LineItem{Product: product(id), Amount: amount}
}
