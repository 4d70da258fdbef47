package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"primeNotify/internal/modules/notifications/application/port"
	"primeNotify/internal/modules/notifications/domain"
)

// NotificationsUseCase backs the REST surface: listing plus the read/delete
// mutations. Every successful mutation is followed by the matching broker
// event so all connected surfaces stay consistent; a failed mutation never
// publishes.
type NotificationsUseCase struct {
	store     port.NotificationStore
	publisher *PublisherUseCase
}

func NewNotificationsUseCase(store port.NotificationStore, publisher *PublisherUseCase) *NotificationsUseCase {
	return &NotificationsUseCase{store: store, publisher: publisher}
}

// ListForUser returns the user's notifications newest first.
func (uc *NotificationsUseCase) ListForUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	return uc.store.ListByRecipient(ctx, userID)
}

// MarkRead marks a notification read and publishes notification_read. Marking
// an already-read notification succeeds without change.
func (uc *NotificationsUseCase) MarkRead(ctx context.Context, notificationID, userID string) (*domain.Notification, error) {
	n, err := uc.store.MarkRead(ctx, notificationID, userID)
	if err != nil {
		return nil, err
	}
	uc.publisher.PublishRead(ctx, notificationID, userID)
	return n, nil
}

// Delete removes one notification and publishes notification_delete.
func (uc *NotificationsUseCase) Delete(ctx context.Context, notificationID, userID string) error {
	if err := uc.store.Delete(ctx, notificationID, userID); err != nil {
		return err
	}
	uc.publisher.PublishDelete(ctx, notificationID, userID)
	return nil
}

// DeleteAll removes every notification for the user and publishes one
// delete_all_notifications event with the count. Nothing to delete is
// reported as ErrNotFound, not as a crash.
func (uc *NotificationsUseCase) DeleteAll(ctx context.Context, userID string) (int64, error) {
	count, err := uc.store.DeleteAllForRecipient(ctx, userID)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, fmt.Errorf("no notifications for %s: %w", userID, domain.ErrNotFound)
	}
	uc.publisher.PublishDeleteAll(ctx, userID, count)
	return count, nil
}

// SendPushInput is the push-only notification request (POST /notification/send).
type SendPushInput struct {
	Title     string
	Body      string
	Recipient string
}

// PushSendUseCase is the synchronous push-only path: resolve the recipient's
// push token, persist a record and deliver through the gateway. Delivery
// failure is recorded on the notification, never surfaced to the caller.
type PushSendUseCase struct {
	store   port.NotificationStore
	users   port.UserDirectory
	gateway port.PushGateway
}

func NewPushSendUseCase(store port.NotificationStore, users port.UserDirectory, gateway port.PushGateway) *PushSendUseCase {
	return &PushSendUseCase{store: store, users: users, gateway: gateway}
}

func (uc *PushSendUseCase) Send(ctx context.Context, in SendPushInput) (*domain.Notification, error) {
	n := &domain.Notification{
		Title:     strings.TrimSpace(in.Title),
		Body:      strings.TrimSpace(in.Body),
		Recipient: strings.TrimSpace(in.Recipient),
		Status:    domain.StatusPending,
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}

	user, err := uc.users.FindByID(ctx, n.Recipient)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("recipient %s: %w", n.Recipient, domain.ErrPushTokenNotFound)
		}
		return nil, fmt.Errorf("resolve recipient %s: %w", n.Recipient, err)
	}
	if user.PushToken == "" {
		return nil, fmt.Errorf("recipient %s: %w", n.Recipient, domain.ErrPushTokenNotFound)
	}

	created, err := uc.store.Create(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	msg := port.PushMessage{
		To:    user.PushToken,
		Title: created.Title,
		Body:  created.Body,
		Sound: "default",
	}
	status := domain.StatusSent
	if err := uc.gateway.Send(ctx, []port.PushMessage{msg}); err != nil {
		status = domain.StatusFailed
		slog.Warn("push delivery failed",
			slog.String("notificationId", created.ID.Hex()),
			slog.String("recipient", created.Recipient),
			slog.Any("error", err))
	}
	if err := uc.store.UpdateStatus(ctx, created.ID.Hex(), status); err != nil {
		slog.Warn("notification status update failed", slog.String("notificationId", created.ID.Hex()), slog.Any("error", err))
	} else {
		created.Status = status
	}
	return created, nil
}
