package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fjod/go_cart/cart-session/internal/domain"
	"github.com/fjod/go_cart/cart-session/internal/metrics"
	"github.com/fjod/go_cart/cart-session/internal/notify"
	"github.com/fjod/go_cart/cart-session/internal/repository"
)

type ProductCatalog interface {
	GetProduct(ctx context.Context, id int64) (domain.Product, error)
}

type StockService interface {
	GetStock(ctx context.Context, id int64) (domain.Stock, error)
}

// Observer receives a copy of the cart after each successful mutation.
// Observers run while the store is locked and must not call back into it.
type Observer func(sessionID string, items []domain.LineItem)

type Deps struct {
	Catalog  ProductCatalog
	Stock    StockService
	Notifier notify.Notifier
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// CartStore holds one session's cart. Mutations are serialized: each one runs
// to completion, remote lookups included, before the next one starts.
type CartStore struct {
	sessionID string
	slot      repository.CartSlot
	deps      Deps
	log       *slog.Logger

	op      sync.Mutex // serializes mutations
	evicted bool

	state sync.RWMutex
	items []domain.LineItem

	obsMu     sync.Mutex
	observers map[int]Observer
	nextObs   int

	lastUsed atomic.Int64
}

// NewCartStore loads the session's cart from its slot; an empty slot yields an empty cart.
func NewCartStore(ctx context.Context, sessionID string, slot repository.CartSlot, deps Deps) (*CartStore, error) {
	if deps.Notifier == nil {
		deps.Notifier = notify.Discard{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	items, err := slot.Read(ctx)
	if err != nil && !errors.Is(err, repository.ErrSlotEmpty) {
		return nil, fmt.Errorf("failed to load cart for session %s: %w", sessionID, err)
	}
	if items == nil {
		items = []domain.LineItem{}
	}

	s := &CartStore{
		sessionID: sessionID,
		slot:      slot,
		deps:      deps,
		log:       deps.Logger.With(slog.String("session_id", sessionID)),
		items:     items,
		observers: make(map[int]Observer),
	}
	s.touch()
	return s, nil
}

func (s *CartStore) SessionID() string {
	return s.sessionID
}

// Cart returns a copy of the line items in insertion order.
func (s *CartStore) Cart() []domain.LineItem {
	s.state.RLock()
	defer s.state.RUnlock()
	return domain.CloneItems(s.items)
}

// Subscribe registers fn and returns a func that removes it.
func (s *CartStore) Subscribe(fn Observer) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()

	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn

	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		delete(s.observers, id)
	}
}

// AddProduct adds one unit of productID, appending the product when it is
// not in the cart yet. The resulting amount is checked against remote stock.
func (s *CartStore) AddProduct(ctx context.Context, productID int64) error {
	return s.run(ctx, "add", func() error {
		return s.addProduct(ctx, productID)
	})
}

// RemoveProduct drops productID from the cart.
func (s *CartStore) RemoveProduct(ctx context.Context, productID int64) error {
	return s.run(ctx, "remove", func() error {
		return s.removeProduct(ctx, productID)
	})
}

// UpdateProductAmount sets the amount of an item already in the cart.
// Amounts below 1 are ignored.
func (s *CartStore) UpdateProductAmount(ctx context.Context, productID int64, amount int) error {
	return s.run(ctx, "update", func() error {
		return s.updateProductAmount(ctx, productID, amount)
	})
}

// Clear empties the cart.
func (s *CartStore) Clear(ctx context.Context) error {
	return s.run(ctx, "clear", func() error {
		if err := s.commit(ctx, []domain.LineItem{}); err != nil {
			s.log.ErrorContext(ctx, "clear cart failed", slog.Any("error", err))
			return err
		}
		return nil
	})
}

func (s *CartStore) run(ctx context.Context, operation string, fn func() error) error {
	s.op.Lock()
	defer s.op.Unlock()

	if s.evicted {
		return errEvicted
	}
	s.touch()

	err := fn()
	s.deps.Metrics.ObserveOperation(operation, err)
	return err
}

func (s *CartStore) addProduct(ctx context.Context, productID int64) error {
	next := s.Cart()
	idx := domain.IndexOf(next, productID)

	candidate := 1
	if idx >= 0 {
		candidate = next[idx].Amount + 1
	}

	stock, err := s.deps.Stock.GetStock(ctx, productID)
	if err != nil {
		return s.fail(ctx, notify.AddFailed, productID, fmt.Errorf("%w: stock of product %d: %w", ErrLookupFailed, productID, err))
	}
	if candidate > stock.Amount {
		return s.fail(ctx, notify.AddedOutOfStock, productID,
			fmt.Errorf("%w: product %d has %d, requested %d", ErrStockExceeded, productID, stock.Amount, candidate))
	}

	if idx >= 0 {
		next[idx].Amount = candidate
	} else {
		product, err := s.deps.Catalog.GetProduct(ctx, productID)
		if err != nil {
			return s.fail(ctx, notify.AddFailed, productID, fmt.Errorf("%w: product %d: %w", ErrLookupFailed, productID, err))
		}
		product.ID = productID
		next = append(next, domain.LineItem{Product: product, Amount: 1})
	}

	if err := s.commit(ctx, next); err != nil {
		return s.fail(ctx, notify.AddFailed, productID, err)
	}
	return nil
}

func (s *CartStore) removeProduct(ctx context.Context, productID int64) error {
	current := s.Cart()
	idx := domain.IndexOf(current, productID)
	if idx < 0 {
		return s.fail(ctx, notify.RemoveFailed, productID, fmt.Errorf("%w: product %d", ErrItemNotFound, productID))
	}

	next := append(current[:idx:idx], current[idx+1:]...)
	if err := s.commit(ctx, next); err != nil {
		return s.fail(ctx, notify.RemoveFailed, productID, err)
	}
	return nil
}

func (s *CartStore) updateProductAmount(ctx context.Context, productID int64, amount int) error {
	if amount <= 0 {
		return nil
	}

	next := s.Cart()
	idx := domain.IndexOf(next, productID)
	if idx < 0 {
		return s.fail(ctx, notify.UpdateFailed, productID, fmt.Errorf("%w: product %d", ErrItemNotFound, productID))
	}

	stock, err := s.deps.Stock.GetStock(ctx, productID)
	if err != nil {
		return s.fail(ctx, notify.UpdateFailed, productID, fmt.Errorf("%w: stock of product %d: %w", ErrLookupFailed, productID, err))
	}
	if amount > stock.Amount {
		return s.fail(ctx, notify.UpdateOutOfStock, productID,
			fmt.Errorf("%w: product %d has %d, requested %d", ErrStockExceeded, productID, stock.Amount, amount))
	}

	next[idx].Amount = amount
	if err := s.commit(ctx, next); err != nil {
		return s.fail(ctx, notify.UpdateFailed, productID, err)
	}
	return nil
}

// commit writes next to the slot and only then swaps it in, so after a
// successful mutation the snapshot and memory hold the same cart.
func (s *CartStore) commit(ctx context.Context, next []domain.LineItem) error {
	if err := s.slot.Write(ctx, next); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	s.state.Lock()
	s.items = next
	s.state.Unlock()

	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	for _, fn := range s.observers {
		fn(s.sessionID, domain.CloneItems(next))
	}
	return nil
}

func (s *CartStore) fail(ctx context.Context, kind notify.Kind, productID int64, err error) error {
	s.log.InfoContext(ctx, "cart operation rejected",
		slog.String("kind", string(kind)),
		slog.Int64("product_id", productID),
		slog.Any("error", err),
	)
	if nerr := s.deps.Notifier.Notify(ctx, notify.NewNotice(kind, s.sessionID, productID, err)); nerr != nil {
		s.log.ErrorContext(ctx, "notify failed", slog.Any("error", nerr))
	}
	return err
}

func (s *CartStore) touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}

func (s *CartStore) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastUsed.Load()))
}

// tryEvict marks the store unusable unless a mutation is in flight.
func (s *CartStore) tryEvict() bool {
	if !s.op.TryLock() {
		return false
	}
	defer s.op.Unlock()
	s.evicted = true
	return true
}
