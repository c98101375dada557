package notify

import (
	"context"
	"errors"
)

type Kind string

const (
	AddedOutOfStock  Kind = "added-out-of-stock"
	AddFailed        Kind = "add-failed"
	RemoveFailed     Kind = "remove-failed"
	UpdateOutOfStock Kind = "update-out-of-stock"
	UpdateFailed     Kind = "update-failed"
)

// Messages holds the shopper-facing text for each kind (pt-BR, as shown by the storefront).
var Messages = map[Kind]string{
	AddedOutOfStock:  "Quantidade solicitada fora de estoque",
	AddFailed:        "Erro na adição do produto",
	RemoveFailed:     "Erro na remoção do produto",
	UpdateOutOfStock: "Quantidade solicitada fora de estoque",
	UpdateFailed:     "Erro na alteração de quantidade do produto",
}

// Notice is a user-facing message about a failed cart operation.
type Notice struct {
	Kind      Kind   `json:"kind"`
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	ProductID int64  `json:"product_id"`
	Cause     string `json:"cause,omitempty"`
}

// NewNotice fills Message from Messages.
func NewNotice(kind Kind, sessionID string, productID int64, cause error) Notice {
	n := Notice{
		Kind:      kind,
		Message:   Messages[kind],
		SessionID: sessionID,
		ProductID: productID,
	}
	if cause != nil {
		n.Cause = cause.Error()
	}
	return n
}

type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// Multi fans a notice out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notice) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every notice.
type Discard struct{}

func (Discard) Notify(context.Context, Notice) error { return nil }
