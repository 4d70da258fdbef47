package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one delivery body. Returning nil acknowledges the
// message; returning an error rejects it, requeued only when the error is
// marked with Transient.
type Handler func(ctx context.Context, body []byte) error

// ConsumeOptions tune a consumer registration. NoAck lets the broker
// auto-acknowledge on delivery.
type ConsumeOptions struct {
	NoAck     bool
	Exclusive bool
}

// Consumer is a cancelable handle for one registered handler.
type Consumer struct {
	tag    string
	queue  string
	ch     *channel
	cancel context.CancelFunc
	once   sync.Once
}

// Queue reports the queue this consumer reads from.
func (c *Consumer) Queue() string { return c.queue }

var consumerSeq atomic.Uint64

// Consume registers handler on queue with its own dedicated channel and
// starts delivering in the background. The ctx argument bounds registration
// only; handlers run under a consumer-lifetime context that ends with
// CancelConsumer, so deliveries keep working after the registration context
// is done. Delivery stops when the handle is canceled or the connection
// drops (consumers do not survive reconnect; callers re-declare topology and
// re-consume).
func (b *Broker) Consume(ctx context.Context, queue string, handler Handler, opts ConsumeOptions) (*Consumer, error) {
	c, err := b.newChannel(ctx, false)
	if err != nil {
		return nil, err
	}

	tag := fmt.Sprintf("%s-%d", queue, consumerSeq.Add(1))
	deliveries, err := c.ch.Consume(queue, tag, opts.NoAck, opts.Exclusive, false, false, nil)
	if err != nil {
		_ = c.ch.Close()
		return nil, fmt.Errorf("consume from %s: %w", queue, err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	go consumeLoop(loopCtx, queue, deliveries, handler, opts)

	return &Consumer{tag: tag, queue: queue, ch: c, cancel: cancel}, nil
}

// consumeLoop drains deliveries into the handler until the source channel
// closes, acking on success and rejecting on failure.
func consumeLoop(ctx context.Context, queue string, deliveries <-chan amqp.Delivery, handler Handler, opts ConsumeOptions) {
	for d := range deliveries {
		err := handler(ctx, d.Body)
		if opts.NoAck {
			continue
		}
		if err == nil {
			if ackErr := d.Ack(false); ackErr != nil {
				slog.Warn("broker ack failed", slog.String("queue", queue), slog.Any("error", ackErr))
			}
			continue
		}
		requeue := IsTransient(err)
		slog.Warn("broker handler failed",
			slog.String("queue", queue),
			slog.Bool("requeue", requeue),
			slog.Any("error", err))
		if rejErr := d.Reject(requeue); rejErr != nil {
			slog.Warn("broker reject failed", slog.String("queue", queue), slog.Any("error", rejErr))
		}
	}
}

// CancelConsumer stops delivery to the handler behind the given handle and
// ends its handler context. Other consumers on the same queue keep running.
func (b *Broker) CancelConsumer(cons *Consumer) error {
	if cons == nil {
		return nil
	}
	var err error
	cons.once.Do(func() {
		if cons.cancel != nil {
			cons.cancel()
		}
		err = cons.ch.ch.Cancel(cons.tag, false)
		_ = cons.ch.ch.Close()
	})
	return err
}
