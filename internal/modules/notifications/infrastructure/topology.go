package infrastructure

import (
	"context"
	"fmt"

	"primeNotify/internal/modules/notifications/domain"
	"primeNotify/internal/platform/broker"
)

// SetupTopology declares the exchanges, durable queues and bindings the
// notification pipeline relies on. All declarations are idempotent, so this
// runs on every connect, including reconnects.
func SetupTopology(ctx context.Context, b *broker.Broker) error {
	exchanges := []struct {
		name string
		kind string
	}{
		{domain.ExchangeNotifications, "topic"},
		{domain.ExchangeEvents, "fanout"},
	}
	for _, ex := range exchanges {
		if err := b.DeclareExchange(ctx, ex.name, ex.kind, broker.DefaultExchangeOptions()); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	queues := []string{domain.QueueNotifications, domain.QueueUnreadCounts, domain.QueuePushNotifications}
	for _, q := range queues {
		if err := b.DeclareQueue(ctx, q, broker.DefaultQueueOptions()); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	bindings := []struct {
		queue string
		key   string
	}{
		{domain.QueueNotifications, "#"},
		{domain.QueueUnreadCounts, "#"},
		{domain.QueuePushNotifications, domain.RoutingKeyNew},
	}
	for _, bind := range bindings {
		if err := b.BindQueue(ctx, bind.queue, domain.ExchangeNotifications, bind.key); err != nil {
			return fmt.Errorf("bind queue %s: %w", bind.queue, err)
		}
	}
	return nil
}
