// Package domain defines the realtime gateway's wire messages.
package domain

import (
	"encoding/json"

	notifications "primeNotify/internal/modules/notifications/domain"
)

// Server→client frame types.
const (
	TypeConnectionEstablished = "connection_established"
	TypeNewNotification       = "new_notification"
	TypeNotificationRead      = "notification_read"
	TypeNotificationDeleted   = "notification_deleted"
	TypeAllDeleted            = "all_notifications_deleted"
	TypePong                  = "pong"
)

// Client→server command types.
const (
	CommandSubscribe   = "subscribe"
	CommandUnsubscribe = "unsubscribe"
	CommandPing        = "ping"
)

// ServerMessage is one frame pushed to a connected client.
type ServerMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Command is one frame received from a client.
type Command struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ConnectionEstablished is the greeting sent right after a successful
// upgrade.
func ConnectionEstablished() *ServerMessage {
	return &ServerMessage{
		Type:    TypeConnectionEstablished,
		Message: "Connected to notification service",
	}
}

// Pong acknowledges a client ping command.
func Pong() *ServerMessage {
	return &ServerMessage{Type: TypePong}
}

// FromEvent translates a broker event into the client frame for it. Unknown
// event types return nil and are dropped.
func FromEvent(evt *notifications.Event) *ServerMessage {
	switch evt.Type {
	case notifications.EventNewNotification:
		if evt.Notification == nil {
			return nil
		}
		return &ServerMessage{Type: TypeNewNotification, Data: evt.Notification}
	case notifications.EventNotificationRead:
		return &ServerMessage{Type: TypeNotificationRead, Data: map[string]any{"notificationId": evt.NotificationID}}
	case notifications.EventNotificationDelete:
		return &ServerMessage{Type: TypeNotificationDeleted, Data: map[string]any{"notificationId": evt.NotificationID}}
	case notifications.EventDeleteAllNotifications:
		return &ServerMessage{Type: TypeAllDeleted, Data: map[string]any{"count": evt.Count}}
	default:
		return nil
	}
}
