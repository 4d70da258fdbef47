package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status tracks the delivery lifecycle of a notification record.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// MessageType classifies the domain action that produced the notification.
type MessageType string

const (
	MessageTypeRejection MessageType = "rejection"
	MessageTypeApproval  MessageType = "approval"
	MessageTypeFeatured  MessageType = "featured"
	MessageTypeBoost     MessageType = "boost"
)

// MessageTypes lists every known message type; user-facing listings filter on it.
func MessageTypes() []MessageType {
	return []MessageType{MessageTypeRejection, MessageTypeApproval, MessageTypeFeatured, MessageTypeBoost}
}

func (m MessageType) Valid() bool {
	switch m {
	case MessageTypeRejection, MessageTypeApproval, MessageTypeFeatured, MessageTypeBoost:
		return true
	default:
		return false
	}
}

// Notification is the durable record of a message addressed to one recipient.
// Read transitions false to true only, and a sent status is never reverted to
// pending; the repository enforces both.
type Notification struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title           string             `bson:"title" json:"title"`
	Body            string             `bson:"body" json:"body"`
	Recipient       string             `bson:"recipient" json:"recipient"`
	Status          Status             `bson:"status" json:"status"`
	MessageType     MessageType        `bson:"messageType,omitempty" json:"messageType,omitempty"`
	Read            bool               `bson:"read" json:"read"`
	RelatedProperty string             `bson:"relatedProperty,omitempty" json:"relatedProperty,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Validate checks the required content fields.
func (n *Notification) Validate() error {
	if strings.TrimSpace(n.Title) == "" || strings.TrimSpace(n.Body) == "" || strings.TrimSpace(n.Recipient) == "" {
		return ErrValidation
	}
	if n.MessageType != "" && !n.MessageType.Valid() {
		return ErrValidation
	}
	return nil
}

// User is the slice of the user directory this module needs: identity plus the
// optional mobile push token.
type User struct {
	ID        string `bson:"_id" json:"id"`
	Name      string `bson:"name,omitempty" json:"name,omitempty"`
	Email     string `bson:"email,omitempty" json:"email,omitempty"`
	PushToken string `bson:"pushToken,omitempty" json:"pushToken,omitempty"`
}
