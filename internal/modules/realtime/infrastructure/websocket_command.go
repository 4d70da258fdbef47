package infrastructure

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"primeNotify/internal/modules/realtime/application/port"
	"primeNotify/internal/modules/realtime/domain"
)

// CommandHandler handles one client command.
type CommandHandler func(ctx context.Context, client *Client, cmd domain.Command)

// CommandProcessor dispatches client frames. Live delivery is opt-in: frames
// only start flowing after the client sends subscribe.
type CommandProcessor struct {
	events           port.UserEventSource
	handlers         map[string]CommandHandler
	subscribeTimeout time.Duration
}

func NewCommandProcessor(events port.UserEventSource) *CommandProcessor {
	p := &CommandProcessor{
		events:           events,
		handlers:         make(map[string]CommandHandler),
		subscribeTimeout: 10 * time.Second,
	}
	p.Register(domain.CommandSubscribe, p.handleSubscribe)
	p.Register(domain.CommandUnsubscribe, p.handleUnsubscribe)
	p.Register(domain.CommandPing, p.handlePing)
	return p
}

func (p *CommandProcessor) Register(commandType string, handler CommandHandler) {
	key := normalizeCommand(commandType)
	if key == "" || handler == nil {
		return
	}
	p.handlers[key] = handler
}

// Process dispatches one command. Unknown commands are logged and ignored,
// matching the parse-error policy: a bad frame never costs the connection.
func (p *CommandProcessor) Process(client *Client, cmd domain.Command) {
	if client == nil {
		return
	}
	key := normalizeCommand(cmd.Type)
	if handler, ok := p.handlers[key]; ok {
		handler(context.Background(), client, cmd)
		return
	}
	slog.Debug("ws command ignored", slog.String("userId", client.userID), slog.String("type", cmd.Type))
}

// handleSubscribe binds the user's event stream to this socket. A repeated
// subscribe replaces the previous stream rather than doubling deliveries.
func (p *CommandProcessor) handleSubscribe(ctx context.Context, client *Client, _ domain.Command) {
	ctx, cancel := context.WithTimeout(ctx, p.subscribeTimeout)
	defer cancel()

	cancelSub, err := p.events.Subscribe(ctx, client.userID, func(msg *domain.ServerMessage) {
		client.Send(msg)
	})
	if err != nil {
		slog.Error("ws subscribe failed", slog.String("userId", client.userID), slog.Any("error", err))
		return
	}
	client.setSubscription(cancelSub)
	slog.Debug("ws subscribed", slog.String("userId", client.userID))
}

func (p *CommandProcessor) handleUnsubscribe(_ context.Context, client *Client, _ domain.Command) {
	client.clearSubscription()
	slog.Debug("ws unsubscribed", slog.String("userId", client.userID))
}

func (p *CommandProcessor) handlePing(_ context.Context, client *Client, _ domain.Command) {
	client.Send(domain.Pong())
}

func normalizeCommand(commandType string) string {
	return strings.ToLower(strings.TrimSpace(commandType))
}
