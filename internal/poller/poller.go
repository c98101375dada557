package poller

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/fjod/go_cart/cart-session/internal/domain"
	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// CartClearer empties a session's cart.
type CartClearer interface {
	Clear(ctx context.Context, sessionID string) ([]domain.LineItem, error)
}

// Poller consumes checkout events and empties the cart of the session that checked out.
type Poller struct {
	carts  CartClearer
	reader messageReader
	log    *slog.Logger
}

func NewPoller(carts CartClearer, log *slog.Logger, topic, groupID string, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{carts: carts, reader: reader, log: log}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.getMessageAndClearCart(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Error("error closing reader", slog.Any("error", err))
	}
}

type checkoutEvent struct {
	SessionID string `json:"session_id"`
}

func (p *Poller) getMessageAndClearCart(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			p.log.ErrorContext(ctx, "error reading message", slog.Any("error", err))
		}
		return
	}

	var event checkoutEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		p.log.WarnContext(ctx, "error parsing message", slog.Any("error", err), slog.Int64("offset", m.Offset))
		return
	}
	if event.SessionID == "" {
		p.log.WarnContext(ctx, "missing session_id", slog.Int64("offset", m.Offset))
		return
	}

	if _, err := p.carts.Clear(ctx, event.SessionID); err != nil {
		p.log.ErrorContext(ctx, "failed to clear cart", slog.String("session_id", event.SessionID), slog.Any("error", err))
		return
	}
	p.log.InfoContext(ctx, "cart cleared after checkout", slog.String("session_id", event.SessionID))
}
