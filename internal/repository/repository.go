package repository

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/cart-session/internal/domain"
)

var ErrSlotEmpty = errors.New("slot is empty")

// CartSlot is the persisted snapshot of one session's cart. Write overwrites
// the whole snapshot; Read returns ErrSlotEmpty when nothing was stored yet.
type CartSlot interface {
	Read(ctx context.Context) ([]domain.LineItem, error)
	Write(ctx context.Context, items []domain.LineItem) error
}

// SlotProvider hands out the slot scoped to a session.
type SlotProvider interface {
	Slot(sessionID string) CartSlot
}

func snapshotKey(sessionID string) string {
	return "@RocketShoes:cart:" + sessionID
}
