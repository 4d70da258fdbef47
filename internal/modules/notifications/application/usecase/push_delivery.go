package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"primeNotify/internal/modules/notifications/application/port"
	"primeNotify/internal/modules/notifications/domain"
	"primeNotify/internal/platform/broker"
)

// Subscriber is the slice of the broker transport the push consumer needs.
type Subscriber interface {
	Consume(ctx context.Context, queue string, handler broker.Handler, opts broker.ConsumeOptions) (*broker.Consumer, error)
	CancelConsumer(c *broker.Consumer) error
}

// PushDeliveryUseCase consumes the push_notifications queue (bound to the
// notification.new routing key) and forwards each new notification to the
// mobile push gateway. It is fire-and-forget from the publisher's point of
// view: failures here never block in-app visibility.
type PushDeliveryUseCase struct {
	subscriber Subscriber
	store      port.NotificationStore
	users      port.UserDirectory
	gateway    port.PushGateway

	mu       sync.Mutex
	consumer *broker.Consumer
}

func NewPushDeliveryUseCase(subscriber Subscriber, store port.NotificationStore, users port.UserDirectory, gateway port.PushGateway) *PushDeliveryUseCase {
	return &PushDeliveryUseCase{subscriber: subscriber, store: store, users: users, gateway: gateway}
}

// Start subscribes to the push queue. The context bounds registration only;
// deliveries keep flowing until Stop. Calling Start again (after a broker
// reconnect) cancels the stale consumer first, so it is safe to drive from a
// connection state observer.
func (uc *PushDeliveryUseCase) Start(ctx context.Context) error {
	uc.mu.Lock()
	stale := uc.consumer
	uc.consumer = nil
	uc.mu.Unlock()
	if stale != nil {
		_ = uc.subscriber.CancelConsumer(stale)
	}

	consumer, err := uc.subscriber.Consume(ctx, domain.QueuePushNotifications, uc.handle, broker.ConsumeOptions{})
	if err != nil {
		return err
	}
	uc.mu.Lock()
	uc.consumer = consumer
	uc.mu.Unlock()
	slog.Info("push delivery consumer started", slog.String("queue", domain.QueuePushNotifications))
	return nil
}

// Stop cancels the consumer.
func (uc *PushDeliveryUseCase) Stop() error {
	uc.mu.Lock()
	consumer := uc.consumer
	uc.consumer = nil
	uc.mu.Unlock()
	if consumer == nil {
		return nil
	}
	return uc.subscriber.CancelConsumer(consumer)
}

func (uc *PushDeliveryUseCase) handle(ctx context.Context, body []byte) error {
	var evt domain.Event
	if err := json.Unmarshal(body, &evt); err != nil {
		slog.Warn("push consumer dropped undecodable message", slog.Any("error", err))
		return nil
	}
	if evt.Type != domain.EventNewNotification || evt.Notification == nil {
		return nil
	}
	return uc.Deliver(ctx, evt.Notification)
}

// Deliver pushes one notification to the recipient's device. An invalid or
// missing push token fails fast: the notification is marked failed and no
// error is returned (nothing to retry). A gateway rejection marks the record
// failed and returns the error so the broker ack policy decides on requeue —
// transient only when the gateway itself was unavailable.
func (uc *PushDeliveryUseCase) Deliver(ctx context.Context, n *domain.Notification) error {
	user, err := uc.users.FindByID(ctx, n.Recipient)
	if err != nil {
		slog.Warn("push delivery recipient lookup failed", slog.String("recipient", n.Recipient), slog.Any("error", err))
		uc.markFailed(ctx, n)
		return nil
	}
	if !uc.gateway.IsPushToken(user.PushToken) {
		slog.Warn("push delivery skipped: invalid push token",
			slog.String("notificationId", n.ID.Hex()),
			slog.String("recipient", n.Recipient))
		uc.markFailed(ctx, n)
		return nil
	}

	msg := port.PushMessage{
		To:    user.PushToken,
		Title: n.Title,
		Body:  n.Body,
		Sound: "default",
		Data: map[string]string{
			"notificationId": n.ID.Hex(),
			"messageType":    string(n.MessageType),
		},
	}
	if err := uc.gateway.Send(ctx, []port.PushMessage{msg}); err != nil {
		uc.markFailed(ctx, n)
		wrapped := errors.Join(domain.ErrDeliveryFailure, err)
		if errors.Is(err, domain.ErrPushGatewayUnavailable) {
			return broker.Transient(wrapped)
		}
		return wrapped
	}

	if err := uc.store.UpdateStatus(ctx, n.ID.Hex(), domain.StatusSent); err != nil {
		slog.Warn("push delivery status update failed", slog.String("notificationId", n.ID.Hex()), slog.Any("error", err))
	}
	return nil
}

func (uc *PushDeliveryUseCase) markFailed(ctx context.Context, n *domain.Notification) {
	if err := uc.store.UpdateStatus(ctx, n.ID.Hex(), domain.StatusFailed); err != nil {
		slog.Warn("push delivery status update failed", slog.String("notificationId", n.ID.Hex()), slog.Any("error", err))
	}
}
