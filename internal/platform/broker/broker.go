package broker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// State describes the lifecycle of the shared broker connection.
type State int

const (
	StateUninitialized State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "uninitialized"
	}
}

// Config carries the connection settings for the broker transport.
type Config struct {
	Host           string
	Port           int
	Username       string
	Password       string
	VHost          string
	ConnectionName string

	Heartbeat            time.Duration
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	MaxChannels          int
	Prefetch             int
}

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 5672
	}
	if c.Username == "" {
		c.Username = "guest"
	}
	if c.Password == "" {
		c.Password = "guest"
	}
	if c.VHost == "" {
		c.VHost = "/"
	}
	if c.ConnectionName == "" {
		c.ConnectionName = "prime-notify"
	}
	if c.Heartbeat == 0 {
		c.Heartbeat = 60 * time.Second
	}
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = 5 * time.Second
	}
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = 10
	}
	if c.MaxChannels == 0 {
		c.MaxChannels = 10
	}
	if c.Prefetch == 0 {
		c.Prefetch = 10
	}
	return c
}

func (c Config) url() string {
	vhost := c.VHost
	if vhost == "" || vhost == "/" {
		vhost = "/"
	} else if !strings.HasPrefix(vhost, "/") {
		vhost = "/" + vhost
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%d%s", c.Username, c.Password, c.Host, c.Port, vhost)
}

// Broker owns one shared AMQP connection plus a bounded channel pool, and
// exposes the topology, publish and consume primitives the rest of the
// service is built on. All methods are safe for concurrent use.
type Broker struct {
	cfg Config
	url string

	mu         sync.Mutex
	state      State
	conn       *amqp.Connection
	pool       []*channel
	connecting chan struct{}
	connectErr error
	closed     bool

	obsMu     sync.Mutex
	observers []func(State)
}

// New builds a Broker without connecting. Call Connect (or any operation,
// which connects lazily) to establish the link.
func New(cfg Config) *Broker {
	cfg = cfg.withDefaults()
	return &Broker{cfg: cfg, url: cfg.url(), state: StateUninitialized}
}

// OnStateChange registers an observer invoked on every lifecycle transition.
// Observers run outside the broker lock and may call back into the broker,
// which is how topology gets re-declared after a reconnect.
func (b *Broker) OnStateChange(fn func(State)) {
	if fn == nil {
		return
	}
	b.obsMu.Lock()
	b.observers = append(b.observers, fn)
	b.obsMu.Unlock()
}

// State reports the current lifecycle state.
func (b *Broker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Connect establishes the shared connection. It is idempotent: when already
// connected it returns immediately, and concurrent callers wait on the same
// in-flight attempt instead of opening duplicate connections. On failure it
// retries with a fixed delay up to the configured attempt count, then gives
// up and returns the error; a later explicit call starts over.
func (b *Broker) Connect(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	if b.conn != nil && !b.conn.IsClosed() {
		b.mu.Unlock()
		return nil
	}
	if b.connecting != nil {
		done := b.connecting
		b.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		b.mu.Lock()
		err := b.connectErr
		b.mu.Unlock()
		return err
	}
	done := make(chan struct{})
	b.connecting = done
	if b.state != StateReconnecting {
		b.setStateLocked(StateConnecting)
	}
	b.mu.Unlock()

	err := b.dial(ctx)

	b.mu.Lock()
	b.connectErr = err
	b.connecting = nil
	if err != nil && !b.closed {
		b.setStateLocked(StateUninitialized)
	}
	b.mu.Unlock()
	close(done)
	return err
}

func (b *Broker) dial(ctx context.Context) error {
	attempts := b.cfg.MaxReconnectAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, err := amqp.DialConfig(b.url, amqp.Config{
			Heartbeat:  b.cfg.Heartbeat,
			Properties: amqp.Table{"connection_name": b.cfg.ConnectionName},
		})
		if err == nil {
			b.mu.Lock()
			if b.closed {
				b.mu.Unlock()
				_ = conn.Close()
				return ErrClosed
			}
			b.conn = conn
			b.setStateLocked(StateConnected)
			b.mu.Unlock()
			go b.watch(conn)
			slog.Info("broker connected", slog.String("host", b.cfg.Host), slog.Int("port", b.cfg.Port))
			return nil
		}
		lastErr = err
		slog.Warn("broker connect attempt failed",
			slog.Int("attempt", attempt),
			slog.Int("maxAttempts", attempts),
			slog.Any("error", err))
		if attempt == attempts {
			break
		}
		select {
		case <-time.After(b.cfg.ReconnectDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w: %v", ErrBrokerUnavailable, lastErr)
}

// watch waits for the connection to drop, tears down the channel pool,
// notifies observers and schedules a reconnect.
func (b *Broker) watch(conn *amqp.Connection) {
	closeErr, ok := <-conn.NotifyClose(make(chan *amqp.Error, 1))

	b.mu.Lock()
	if b.conn != conn {
		b.mu.Unlock()
		return
	}
	b.conn = nil
	pool := b.pool
	b.pool = nil
	closed := b.closed
	if !closed {
		b.setStateLocked(StateReconnecting)
	}
	b.mu.Unlock()

	for _, c := range pool {
		c.release()
	}
	if closed {
		return
	}
	if ok && closeErr != nil {
		slog.Warn("broker connection lost", slog.Any("error", closeErr))
	} else {
		slog.Warn("broker connection closed")
	}

	time.Sleep(b.cfg.ReconnectDelay)
	if err := b.Connect(context.Background()); err != nil {
		slog.Error("broker reconnect failed", slog.Any("error", err))
	}
}

// Close gracefully closes pooled channels then the connection and disables
// reconnection. The broker cannot be reused afterwards.
func (b *Broker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	pool := b.pool
	b.pool = nil
	conn := b.conn
	b.conn = nil
	b.setStateLocked(StateClosed)
	b.mu.Unlock()

	for _, c := range pool {
		_ = c.ch.Close()
		c.release()
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (b *Broker) setStateLocked(s State) {
	if b.state == s {
		return
	}
	b.state = s
	b.obsMu.Lock()
	observers := append([]func(State){}, b.observers...)
	b.obsMu.Unlock()
	go func() {
		for _, fn := range observers {
			fn(s)
		}
	}()
}
