package transport

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	notifications "primeNotify/internal/modules/notifications/domain"
	"primeNotify/internal/modules/realtime/application/port"
	"primeNotify/internal/modules/realtime/domain"
	"primeNotify/internal/modules/realtime/infrastructure"
)

// fakeEventSource hands the subscription handler back to the test so it can
// inject frames as if they came from the user's queue.
type fakeEventSource struct {
	mu        sync.Mutex
	handlers  map[string]port.MessageHandler
	cancelled int
}

func newFakeEventSource() *fakeEventSource {
	return &fakeEventSource{handlers: make(map[string]port.MessageHandler)}
}

func (f *fakeEventSource) Subscribe(_ context.Context, userID string, handler port.MessageHandler) (port.CancelFunc, error) {
	f.mu.Lock()
	f.handlers[userID] = handler
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.cancelled++
		delete(f.handlers, userID)
		f.mu.Unlock()
	}, nil
}

func (f *fakeEventSource) handlerFor(userID string) port.MessageHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers[userID]
}

func (f *fakeEventSource) waitForSubscription(t *testing.T, userID string) port.MessageHandler {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h := f.handlerFor(userID); h != nil {
			return h
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("subscription never registered")
	return nil
}

func newGatewayServer(t *testing.T, events port.UserEventSource) (*httptest.Server, *infrastructure.Hub) {
	t.Helper()
	e := echo.New()
	hub := infrastructure.NewHub()
	e.GET("/ws", NewWebsocketHandler(hub, infrastructure.NewCommandProcessor(events), 8))
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)
	t.Cleanup(hub.Close)
	return server, hub
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) domain.ServerMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg domain.ServerMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return msg
}

func TestWebsocketMissingUserIDClosedWithPolicyViolation(t *testing.T) {
	t.Parallel()

	server, _ := newGatewayServer(t, newFakeEventSource())
	conn := dial(t, server, "")

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	closeErr, ok := err.(*websocket.CloseError)
	if !ok {
		t.Fatalf("err = %v, want close error", err)
	}
	if closeErr.Code != websocket.ClosePolicyViolation {
		t.Fatalf("close code = %d, want %d", closeErr.Code, websocket.ClosePolicyViolation)
	}
	if closeErr.Text != "User ID required" {
		t.Fatalf("close reason = %q", closeErr.Text)
	}
}

func TestWebsocketGreetsOnConnect(t *testing.T) {
	t.Parallel()

	server, _ := newGatewayServer(t, newFakeEventSource())
	conn := dial(t, server, "?userId=u1")

	msg := readFrame(t, conn)
	if msg.Type != domain.TypeConnectionEstablished {
		t.Fatalf("type = %q, want %q", msg.Type, domain.TypeConnectionEstablished)
	}
	if msg.Message != "Connected to notification service" {
		t.Fatalf("message = %q", msg.Message)
	}
}

func TestWebsocketSubscribeReceivesEvents(t *testing.T) {
	t.Parallel()

	events := newFakeEventSource()
	server, _ := newGatewayServer(t, events)
	conn := dial(t, server, "?userId=u1")
	readFrame(t, conn) // greeting

	if err := conn.WriteJSON(map[string]string{"type": "subscribe"}); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}
	handler := events.waitForSubscription(t, "u1")

	n := &notifications.Notification{Title: "hello", Recipient: "u1"}
	handler(domain.FromEvent(notifications.NewNotificationEvent(n, time.Now())))

	msg := readFrame(t, conn)
	if msg.Type != domain.TypeNewNotification {
		t.Fatalf("type = %q, want %q", msg.Type, domain.TypeNewNotification)
	}
	data, err := json.Marshal(msg.Data)
	if err != nil {
		t.Fatalf("remarshal data: %v", err)
	}
	var got notifications.Notification
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if got.Title != "hello" {
		t.Fatalf("title = %q, want hello", got.Title)
	}
}

func TestWebsocketPingPong(t *testing.T) {
	t.Parallel()

	server, _ := newGatewayServer(t, newFakeEventSource())
	conn := dial(t, server, "?userId=u1")
	readFrame(t, conn) // greeting

	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	msg := readFrame(t, conn)
	if msg.Type != domain.TypePong {
		t.Fatalf("type = %q, want %q", msg.Type, domain.TypePong)
	}
}

func TestWebsocketMalformedFrameIgnored(t *testing.T) {
	t.Parallel()

	server, _ := newGatewayServer(t, newFakeEventSource())
	conn := dial(t, server, "?userId=u1")
	readFrame(t, conn) // greeting

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	msg := readFrame(t, conn)
	if msg.Type != domain.TypePong {
		t.Fatalf("connection must survive a malformed frame, got %q", msg.Type)
	}
}

func TestWebsocketLastConnectWins(t *testing.T) {
	t.Parallel()

	server, hub := newGatewayServer(t, newFakeEventSource())
	first := dial(t, server, "?userId=u1")
	readFrame(t, first) // greeting

	second := dial(t, server, "?userId=u1")
	msg := readFrame(t, second)
	if msg.Type != domain.TypeConnectionEstablished {
		t.Fatalf("second connection greeting = %q", msg.Type)
	}

	// The evicted socket is closed out from under its reader.
	_ = first.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := first.ReadMessage(); err == nil {
		t.Fatal("evicted connection must be closed")
	}

	// The replacement stays live.
	hub.SendToUser("u1", domain.Pong())
	if got := readFrame(t, second); got.Type != domain.TypePong {
		t.Fatalf("replacement frame = %q, want pong", got.Type)
	}
}

func TestWebsocketUnsubscribeCancelsStream(t *testing.T) {
	t.Parallel()

	events := newFakeEventSource()
	server, _ := newGatewayServer(t, events)
	conn := dial(t, server, "?userId=u1")
	readFrame(t, conn) // greeting

	if err := conn.WriteJSON(map[string]string{"type": "subscribe"}); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}
	events.waitForSubscription(t, "u1")

	if err := conn.WriteJSON(map[string]string{"type": "unsubscribe"}); err != nil {
		t.Fatalf("write unsubscribe: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		events.mu.Lock()
		cancelled := events.cancelled
		events.mu.Unlock()
		if cancelled == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("unsubscribe never cancelled the stream")
}
