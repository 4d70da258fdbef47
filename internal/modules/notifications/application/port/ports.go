package port

import (
	"context"

	"primeNotify/internal/modules/notifications/domain"
)

// NotificationStore is the durable record of notifications; it is the single
// source of truth for read/delete state. The broker only signals changes.
type NotificationStore interface {
	Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	// ListByRecipient returns the recipient's notifications newest first.
	ListByRecipient(ctx context.Context, recipient string) ([]domain.Notification, error)
	// MarkRead flips read to true; it is idempotent and scoped to the
	// recipient. Returns ErrNotFound when no such record exists.
	MarkRead(ctx context.Context, id, recipient string) (*domain.Notification, error)
	Delete(ctx context.Context, id, recipient string) error
	// DeleteAllForRecipient removes every record for the recipient and
	// returns how many were removed.
	DeleteAllForRecipient(ctx context.Context, recipient string) (int64, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status) error
}

// UserDirectory resolves recipients.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// EventPublisher publishes one message to an exchange routing key. Satisfied
// by the broker transport.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, message any) error
}

// PushMessage is one message bound for the mobile push gateway.
type PushMessage struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Sound string            `json:"sound,omitempty"`
	Data  map[string]string `json:"data,omitempty"`
}

// PushGateway delivers messages to the third-party push service.
type PushGateway interface {
	// IsPushToken reports whether token has the gateway's expected format.
	IsPushToken(token string) bool
	Send(ctx context.Context, messages []PushMessage) error
}
