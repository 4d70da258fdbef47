// Package mongodb owns the MongoDB connection lifecycle. Repositories in the
// module infrastructure layers receive the *mongo.Database from here.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const connectTimeout = 10 * time.Second

// Config holds the connection parameters for the notification store.
type Config struct {
	URI      string
	Database string
}

// Client wraps the driver client together with the selected database.
type Client struct {
	client   *mongo.Client
	database *mongo.Database
}

// Connect dials MongoDB and verifies the connection with a ping before
// returning. A server that cannot be reached fails startup rather than
// surfacing later on the first query.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return &Client{client: client, database: client.Database(cfg.Database)}, nil
}

// Database returns the selected database handle.
func (c *Client) Database() *mongo.Database {
	return c.database
}

func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
