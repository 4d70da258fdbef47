package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"primeNotify/internal/modules/notifications/application/port"
	"primeNotify/internal/modules/notifications/domain"
)

// PublisherUseCase is the single choke point translating a domain action into
// broker messages. Every logical event is published exactly twice: once to
// its type-specific routing key (for fan-out consumers such as push delivery)
// and once to the recipient's user.<id> key (for the realtime gateway).
type PublisherUseCase struct {
	store  port.NotificationStore
	users  port.UserDirectory
	events port.EventPublisher
	now    func() time.Time
}

func NewPublisherUseCase(store port.NotificationStore, users port.UserDirectory, events port.EventPublisher) *PublisherUseCase {
	return &PublisherUseCase{store: store, users: users, events: events, now: time.Now}
}

// SendInAppInput carries the notification creation contract consumed from the
// property/domain collaborators.
type SendInAppInput struct {
	Title           string
	Body            string
	Recipient       string
	MessageType     domain.MessageType
	RelatedProperty string
}

// SendInAppNotification validates the input, resolves the recipient, persists
// the notification with status sent and publishes a new_notification event to
// both routing keys. Publish failures are logged and swallowed: the store
// write is the source of truth and live delivery is best effort.
func (uc *PublisherUseCase) SendInAppNotification(ctx context.Context, in SendInAppInput) (*domain.Notification, error) {
	n := &domain.Notification{
		Title:           strings.TrimSpace(in.Title),
		Body:            strings.TrimSpace(in.Body),
		Recipient:       strings.TrimSpace(in.Recipient),
		MessageType:     in.MessageType,
		RelatedProperty: in.RelatedProperty,
		Status:          domain.StatusSent,
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}

	user, err := uc.users.FindByID(ctx, n.Recipient)
	if err != nil {
		return nil, fmt.Errorf("resolve recipient %s: %w", n.Recipient, err)
	}
	n.Recipient = user.ID

	created, err := uc.store.Create(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	uc.publishBoth(ctx, domain.NewNotificationEvent(created, uc.now()))
	return created, nil
}

// PublishRead emits a notification_read event. Called only after the store
// mutation durably succeeded.
func (uc *PublisherUseCase) PublishRead(ctx context.Context, notificationID, userID string) {
	uc.publishBoth(ctx, domain.NotificationReadEvent(notificationID, userID, uc.now()))
}

// PublishDelete emits a notification_delete event after the store delete.
func (uc *PublisherUseCase) PublishDelete(ctx context.Context, notificationID, userID string) {
	uc.publishBoth(ctx, domain.NotificationDeleteEvent(notificationID, userID, uc.now()))
}

// PublishDeleteAll emits a delete_all_notifications event carrying the number
// of removed records.
func (uc *PublisherUseCase) PublishDeleteAll(ctx context.Context, userID string, count int64) {
	uc.publishBoth(ctx, domain.DeleteAllNotificationsEvent(userID, count, uc.now()))
}

// publishBoth performs the fixed dual publish. The two keys are intentional:
// downstream consumers bind to different ones, so this is never collapsed to
// a single publish. Failures degrade live/push delivery only and are logged
// as warnings.
func (uc *PublisherUseCase) publishBoth(ctx context.Context, evt *domain.Event) {
	for _, key := range []string{evt.RoutingKey(), domain.UserRoutingKey(evt.UserID)} {
		if err := uc.events.Publish(ctx, domain.ExchangeNotifications, key, evt); err != nil {
			slog.Warn("notification event publish failed",
				slog.String("type", string(evt.Type)),
				slog.String("routingKey", key),
				slog.String("userId", evt.UserID),
				slog.Any("error", err))
		}
	}
}
