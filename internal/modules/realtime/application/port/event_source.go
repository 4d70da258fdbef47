package port

import (
	"context"

	"primeNotify/internal/modules/realtime/domain"
)

// CancelFunc tears down one user subscription.
type CancelFunc func()

// MessageHandler receives the frames decoded from a user's event stream.
type MessageHandler func(msg *domain.ServerMessage)

// UserEventSource binds a per-user event stream and forwards its frames to
// the handler. The returned CancelFunc stops the stream; the underlying queue
// is left to expire on its own so a quick reconnect can pick it back up.
type UserEventSource interface {
	Subscribe(ctx context.Context, userID string, handler MessageHandler) (CancelFunc, error)
}
