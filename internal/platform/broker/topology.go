package broker

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeOptions mirror the AMQP exchange declaration flags. Declarations are
// idempotent on the broker side, so callers re-declare freely after reconnect.
type ExchangeOptions struct {
	Durable    bool
	AutoDelete bool
	Internal   bool
}

// DefaultExchangeOptions returns the durable, non-auto-delete defaults used by
// every exchange in this service.
func DefaultExchangeOptions() ExchangeOptions {
	return ExchangeOptions{Durable: true}
}

// QueueOptions mirror the AMQP queue declaration flags. Expires, when set,
// becomes an x-expires argument deleting the queue after that idle period.
type QueueOptions struct {
	Durable    bool
	AutoDelete bool
	Exclusive  bool
	Expires    time.Duration
}

// DefaultQueueOptions returns the durable defaults used by the shared queues.
func DefaultQueueOptions() QueueOptions {
	return QueueOptions{Durable: true}
}

func queueArgs(opts QueueOptions) amqp.Table {
	if opts.Expires <= 0 {
		return nil
	}
	return amqp.Table{"x-expires": opts.Expires.Milliseconds()}
}

// DeclareExchange asserts an exchange of the given kind (topic, fanout, ...).
func (b *Broker) DeclareExchange(ctx context.Context, name, kind string, opts ExchangeOptions) error {
	c, err := b.pooledChannel(ctx)
	if err != nil {
		return err
	}
	if err := c.ch.ExchangeDeclare(name, kind, opts.Durable, opts.AutoDelete, opts.Internal, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", name, err)
	}
	return nil
}

// DeclareQueue asserts a queue.
func (b *Broker) DeclareQueue(ctx context.Context, name string, opts QueueOptions) error {
	c, err := b.pooledChannel(ctx)
	if err != nil {
		return err
	}
	if _, err := c.ch.QueueDeclare(name, opts.Durable, opts.AutoDelete, opts.Exclusive, false, queueArgs(opts)); err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	return nil
}

// BindQueue binds a queue to an exchange under the given routing key.
func (b *Broker) BindQueue(ctx context.Context, queue, exchange, routingKey string) error {
	c, err := b.pooledChannel(ctx)
	if err != nil {
		return err
	}
	if err := c.ch.QueueBind(queue, routingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", queue, exchange, err)
	}
	return nil
}
