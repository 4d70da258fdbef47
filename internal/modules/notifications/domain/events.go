package domain

import "time"

// Broker topology. Kept byte-compatible with the marketplace deployment so a
// reimplementation can bind against the same broker.
const (
	ExchangeNotifications = "notifications.exchange"
	// ExchangeEvents is declared for interop; nothing publishes to it yet.
	ExchangeEvents = "events.exchange"

	QueueNotifications     = "notifications.queue"
	QueueUnreadCounts      = "unread_counts.queue"
	QueuePushNotifications = "push_notifications.queue"

	RoutingKeyNew       = "notification.new"
	RoutingKeyRead      = "notification.read"
	RoutingKeyDelete    = "notification.delete"
	RoutingKeyDeleteAll = "notification.delete.all"
)

// UserQueueTTL is how long an idle per-user queue survives before the broker
// deletes it.
const UserQueueTTL = time.Hour

// UserRoutingKey returns the per-recipient routing key.
func UserRoutingKey(userID string) string { return "user." + userID }

// UserQueueName returns the ephemeral queue name backing one user's live feed.
func UserQueueName(userID string) string { return "user." + userID + ".notifications" }

// EventType enumerates the broker message types.
type EventType string

const (
	EventNewNotification        EventType = "new_notification"
	EventNotificationRead       EventType = "notification_read"
	EventNotificationDelete     EventType = "notification_delete"
	EventDeleteAllNotifications EventType = "delete_all_notifications"
)

// Event is the ephemeral envelope published to the broker. Every logical event
// is published twice: once to its type-specific routing key and once to the
// recipient's user.<id> key.
type Event struct {
	Type           EventType     `json:"type"`
	Notification   *Notification `json:"notification,omitempty"`
	NotificationID string        `json:"notificationId,omitempty"`
	UserID         string        `json:"userId"`
	Count          int64         `json:"count,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
}

func NewNotificationEvent(n *Notification, at time.Time) *Event {
	return &Event{Type: EventNewNotification, Notification: n, UserID: n.Recipient, Timestamp: at.UTC()}
}

func NotificationReadEvent(notificationID, userID string, at time.Time) *Event {
	return &Event{Type: EventNotificationRead, NotificationID: notificationID, UserID: userID, Timestamp: at.UTC()}
}

func NotificationDeleteEvent(notificationID, userID string, at time.Time) *Event {
	return &Event{Type: EventNotificationDelete, NotificationID: notificationID, UserID: userID, Timestamp: at.UTC()}
}

func DeleteAllNotificationsEvent(userID string, count int64, at time.Time) *Event {
	return &Event{Type: EventDeleteAllNotifications, UserID: userID, Count: count, Timestamp: at.UTC()}
}

// RoutingKey returns the type-specific routing key for the event.
func (e *Event) RoutingKey() string {
	switch e.Type {
	case EventNotificationRead:
		return RoutingKeyRead
	case EventNotificationDelete:
		return RoutingKeyDelete
	case EventDeleteAllNotifications:
		return RoutingKeyDeleteAll
	default:
		return RoutingKeyNew
	}
}
