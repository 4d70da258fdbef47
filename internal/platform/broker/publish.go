package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publish serializes message to JSON and publishes it persistently to the
// exchange under routingKey. When the broker pauses the channel (flow
// control), the call waits until writes resume. Returns ErrBrokerUnavailable
// when no connection exists and reconnection is exhausted.
func (b *Broker) Publish(ctx context.Context, exchange, routingKey string, message any) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode message for %s: %w", routingKey, err)
	}

	c, err := b.pooledChannel(ctx)
	if err != nil {
		return err
	}
	if err := c.waitWritable(ctx); err != nil {
		return err
	}

	err = c.ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:     "application/json",
		ContentEncoding: "utf-8",
		DeliveryMode:    amqp.Persistent,
		Timestamp:       time.Now().UTC(),
		Body:            body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
	}
	return nil
}
