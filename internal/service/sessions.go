package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_cart/cart-session/internal/domain"
	"github.com/fjod/go_cart/cart-session/internal/repository"
	"golang.org/x/sync/singleflight"
)

// loadTimeout bounds a shared slot read once it is detached from its callers.
const loadTimeout = 10 * time.Second

// Sessions keeps one CartStore per session. Stores are loaded from their slot
// on first use and dropped again after IdleTTL without use.
type Sessions struct {
	provider  repository.SlotProvider
	deps      Deps
	idleTTL   time.Duration
	observers []Observer

	mu     sync.RWMutex
	stores map[string]*CartStore
	sfg    singleflight.Group // one slot read per session, however many requests race

	stopCleanup chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

type SessionsConfig struct {
	IdleTTL         time.Duration
	CleanupInterval time.Duration
	// Observers are subscribed to every store the registry opens.
	Observers []Observer
}

func NewSessions(provider repository.SlotProvider, deps Deps, cfg SessionsConfig) *Sessions {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	s := &Sessions{
		provider:    provider,
		deps:        deps,
		idleTTL:     cfg.IdleTTL,
		observers:   cfg.Observers,
		stores:      make(map[string]*CartStore),
		stopCleanup: make(chan struct{}),
	}

	if cfg.CleanupInterval > 0 && cfg.IdleTTL > 0 {
		s.wg.Add(1)
		go s.cleanupLoop(cfg.CleanupInterval)
	}
	return s
}

// Open returns the store for sessionID, loading it if needed.
func (s *Sessions) Open(ctx context.Context, sessionID string) (*CartStore, error) {
	s.mu.RLock()
	store, ok := s.stores[sessionID]
	s.mu.RUnlock()
	if ok {
		store.touch()
		return store, nil
	}

	// the load is shared, so no single caller's cancellation may abort it
	ch := s.sfg.DoChan(sessionID, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		s.mu.RLock()
		existing, ok := s.stores[sessionID]
		s.mu.RUnlock()
		if ok {
			return existing, nil
		}

		store, err := NewCartStore(loadCtx, sessionID, s.provider.Slot(sessionID), s.deps)
		if err != nil {
			return nil, err
		}
		for _, fn := range s.observers {
			store.Subscribe(fn)
		}

		s.mu.Lock()
		s.stores[sessionID] = store
		n := len(s.stores)
		s.mu.Unlock()

		s.deps.Metrics.SetOpenSessions(n)
		return store, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*CartStore), nil
	}
}

func (s *Sessions) Cart(ctx context.Context, sessionID string) ([]domain.LineItem, error) {
	store, err := s.Open(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return store.Cart(), nil
}

func (s *Sessions) AddProduct(ctx context.Context, sessionID string, productID int64) ([]domain.LineItem, error) {
	return s.with(ctx, sessionID, func(store *CartStore) error {
		return store.AddProduct(ctx, productID)
	})
}

func (s *Sessions) RemoveProduct(ctx context.Context, sessionID string, productID int64) ([]domain.LineItem, error) {
	return s.with(ctx, sessionID, func(store *CartStore) error {
		return store.RemoveProduct(ctx, productID)
	})
}

func (s *Sessions) UpdateProductAmount(ctx context.Context, sessionID string, productID int64, amount int) ([]domain.LineItem, error) {
	return s.with(ctx, sessionID, func(store *CartStore) error {
		return store.UpdateProductAmount(ctx, productID, amount)
	})
}

func (s *Sessions) Clear(ctx context.Context, sessionID string) ([]domain.LineItem, error) {
	return s.with(ctx, sessionID, func(store *CartStore) error {
		return store.Clear(ctx)
	})
}

// with runs fn against the session's store and returns the cart as it is
// afterwards. A store evicted between Open and fn is reopened once.
func (s *Sessions) with(ctx context.Context, sessionID string, fn func(*CartStore) error) ([]domain.LineItem, error) {
	for attempt := 0; ; attempt++ {
		store, err := s.Open(ctx, sessionID)
		if err != nil {
			return nil, err
		}

		err = fn(store)
		if errors.Is(err, errEvicted) && attempt == 0 {
			continue
		}
		return store.Cart(), err
	}
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stores)
}

func (s *Sessions) cleanupLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictIdle(time.Now())
		case <-s.stopCleanup:
			return
		}
	}
}

// evictIdle drops stores unused for longer than idleTTL. Their carts stay in the slots.
func (s *Sessions) evictIdle(now time.Time) int {
	s.mu.Lock()
	evicted := 0
	for id, store := range s.stores {
		if store.idleSince(now) < s.idleTTL {
			continue
		}
		if store.tryEvict() {
			delete(s.stores, id)
			evicted++
		}
	}
	n := len(s.stores)
	s.mu.Unlock()

	if evicted > 0 {
		s.deps.Metrics.SetOpenSessions(n)
		s.deps.Logger.Debug("evicted idle carts", slog.Int("evicted", evicted), slog.Int("open", n))
	}
	return evicted
}

// Close stops the background cleanup and waits for it to finish.
func (s *Sessions) Close() error {
	s.stopOnce.Do(func() {
		close(s.stopCleanup)
	})
	s.wg.Wait()
	return nil
}
