package domain

import "errors"

// Sentinel errors for this module. Services wrap them with context and
// handlers discriminate with errors.Is to pick HTTP statuses.
var (
	// ErrValidation marks user-correctable input problems (missing fields).
	ErrValidation = errors.New("title, body, and recipient are required")
	// ErrNotFound marks an absent notification or recipient.
	ErrNotFound = errors.New("not found")
	// ErrPushTokenNotFound marks a recipient without a registered push token.
	ErrPushTokenNotFound = errors.New("recipient push token not found")
	// ErrDeliveryFailure marks a push gateway rejection; it is recorded on the
	// notification and never surfaced to the HTTP caller of the trigger.
	ErrDeliveryFailure = errors.New("push delivery failed")
	// ErrPushGatewayUnavailable marks transient gateway trouble (5xx, network);
	// the broker consumer requeues on it.
	ErrPushGatewayUnavailable = errors.New("push gateway unavailable")
)
