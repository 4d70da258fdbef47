package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// channel wraps an AMQP channel with a write gate driven by broker flow
// control: while the broker pauses the channel, publishers block in
// waitWritable instead of erroring.
type channel struct {
	ch     *amqp.Channel
	pooled bool

	mu sync.Mutex
	// resume is nil while the channel accepts writes; when the broker pauses
	// the channel it holds a gate that is closed again on resume.
	resume chan struct{}
}

func newChannel(ch *amqp.Channel, pooled bool) *channel {
	c := &channel{ch: ch, pooled: pooled}
	go c.watchFlow(ch.NotifyFlow(make(chan bool, 1)))
	return c
}

func (c *channel) watchFlow(flow <-chan bool) {
	for active := range flow {
		c.mu.Lock()
		if active {
			if c.resume != nil {
				close(c.resume)
				c.resume = nil
			}
		} else if c.resume == nil {
			c.resume = make(chan struct{})
			slog.Warn("broker channel paused by flow control")
		}
		c.mu.Unlock()
	}
	c.release()
}

// release unblocks any publisher waiting on the flow gate; the underlying
// channel is gone, so the publish surfaces the channel error instead of
// hanging.
func (c *channel) release() {
	c.mu.Lock()
	if c.resume != nil {
		close(c.resume)
		c.resume = nil
	}
	c.mu.Unlock()
}

func (c *channel) waitWritable(ctx context.Context) error {
	c.mu.Lock()
	gate := c.resume
	c.mu.Unlock()
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pooledChannel returns an existing pooled channel or creates one, adding it
// to the pool while the pool is below its cap. Used by publish and topology
// calls; consumers get dedicated channels instead.
func (b *Broker) pooledChannel(ctx context.Context) (*channel, error) {
	if err := b.Connect(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	if len(b.pool) > 0 {
		c := b.pool[0]
		b.mu.Unlock()
		return c, nil
	}
	b.mu.Unlock()
	return b.newChannel(ctx, true)
}

func (b *Broker) newChannel(ctx context.Context, pooled bool) (*channel, error) {
	if err := b.Connect(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return nil, ErrBrokerUnavailable
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}
	if err := ch.Qos(b.cfg.Prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("set channel prefetch: %w", err)
	}
	c := newChannel(ch, pooled)
	go b.watchChannel(c, ch.NotifyClose(make(chan *amqp.Error, 1)))

	if pooled {
		b.mu.Lock()
		if len(b.pool) < b.cfg.MaxChannels {
			b.pool = append(b.pool, c)
		}
		b.mu.Unlock()
	}
	return c, nil
}

// watchChannel drops a channel from the pool once the broker closes it.
func (b *Broker) watchChannel(c *channel, closed <-chan *amqp.Error) {
	if chErr, ok := <-closed; ok && chErr != nil {
		slog.Warn("broker channel closed", slog.Any("error", chErr))
	}
	c.release()
	if !c.pooled {
		return
	}
	b.mu.Lock()
	for i, pc := range b.pool {
		if pc == c {
			b.pool = append(b.pool[:i], b.pool[i+1:]...)
			break
		}
	}
	b.mu.Unlock()
}
