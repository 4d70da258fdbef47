package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	notifications "primeNotify/internal/modules/notifications/domain"
	"primeNotify/internal/modules/realtime/application/port"
	"primeNotify/internal/modules/realtime/domain"
	"primeNotify/internal/platform/broker"
)

// AMQPEventSource feeds each subscribed socket from an ephemeral per-user
// queue bound to the user's routing key. The queue is non-durable and expires
// after an idle hour, so an abandoned subscription cleans itself up while a
// quick reconnect can resume the same queue.
type AMQPEventSource struct {
	broker *broker.Broker
}

func NewAMQPEventSource(b *broker.Broker) *AMQPEventSource {
	return &AMQPEventSource{broker: b}
}

func (s *AMQPEventSource) Subscribe(ctx context.Context, userID string, handler port.MessageHandler) (port.CancelFunc, error) {
	queue := notifications.UserQueueName(userID)
	opts := broker.QueueOptions{AutoDelete: true, Expires: notifications.UserQueueTTL}
	if err := s.broker.DeclareQueue(ctx, queue, opts); err != nil {
		return nil, fmt.Errorf("declare user queue: %w", err)
	}
	if err := s.broker.BindQueue(ctx, queue, notifications.ExchangeNotifications, notifications.UserRoutingKey(userID)); err != nil {
		return nil, fmt.Errorf("bind user queue: %w", err)
	}

	// Live frames are at-most-once: no ack bookkeeping, a miss is recovered
	// from the store on the next poll.
	consumer, err := s.broker.Consume(ctx, queue, func(_ context.Context, body []byte) error {
		var evt notifications.Event
		if err := json.Unmarshal(body, &evt); err != nil {
			slog.Warn("realtime event decode failed", slog.String("userId", userID), slog.Any("error", err))
			return nil
		}
		if msg := domain.FromEvent(&evt); msg != nil {
			handler(msg)
		}
		return nil
	}, broker.ConsumeOptions{NoAck: true})
	if err != nil {
		return nil, fmt.Errorf("consume user queue: %w", err)
	}

	return func() {
		if err := s.broker.CancelConsumer(consumer); err != nil {
			slog.Debug("realtime consumer cancel failed", slog.String("userId", userID), slog.Any("error", err))
		}
	}, nil
}

var _ port.UserEventSource = (*AMQPEventSource)(nil)
