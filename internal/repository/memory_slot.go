package repository

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/cart-session/internal/domain"
)

// MemoryProvider keeps snapshots in process memory. Used in tests and single-node dev runs.
type MemoryProvider struct {
	mu    sync.RWMutex
	slots map[string][]domain.LineItem
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{slots: make(map[string][]domain.LineItem)}
}

func (p *MemoryProvider) Slot(sessionID string) CartSlot {
	return &memorySlot{provider: p, key: snapshotKey(sessionID)}
}

type memorySlot struct {
	provider *MemoryProvider
	key      string
}

func (s *memorySlot) Read(_ context.Context) ([]domain.LineItem, error) {
	s.provider.mu.RLock()
	defer s.provider.mu.RUnlock()

	items, ok := s.provider.slots[s.key]
	if !ok {
		return nil, ErrSlotEmpty
	}
	return domain.CloneItems(items), nil
}

func (s *memorySlot) Write(_ context.Context, items []domain.LineItem) error {
	s.provider.mu.Lock()
	defer s.provider.mu.Unlock()

	s.provider.slots[s.key] = domain.CloneItems(items)
	return nil
}
