package expo

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"primeNotify/internal/modules/notifications/application/port"
	"primeNotify/internal/modules/notifications/domain"
)

func TestIsPushToken(t *testing.T) {
	t.Parallel()

	client := NewClient("", 0, nil)
	cases := []struct {
		token string
		want  bool
	}{
		{"ExponentPushToken[xxxxxxxxxxxxxxxxxxxxxx]", true},
		{"ExpoPushToken[abc123]", true},
		{"  ExponentPushToken[abc]  ", true},
		{"ExponentPushToken[]", false},
		{"FCMToken[abc]", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := client.IsPushToken(tc.token); got != tc.want {
			t.Errorf("IsPushToken(%q) = %v, want %v", tc.token, got, tc.want)
		}
	}
}

func okTickets(n int) string {
	tickets := make([]map[string]string, n)
	for i := range tickets {
		tickets[i] = map[string]string{"status": "ok", "id": fmt.Sprintf("ticket-%d", i)}
	}
	body, _ := json.Marshal(map[string]any{"data": tickets})
	return string(body)
}

func TestSendChunksLargeBatches(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	var sizes []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		var batch []port.PushMessage
		if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
			t.Errorf("decode batch: %v", err)
		}
		sizes = append(sizes, len(batch))
		fmt.Fprint(w, okTickets(len(batch)))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, server.Client())

	messages := make([]port.PushMessage, 150)
	for i := range messages {
		messages[i] = port.PushMessage{To: fmt.Sprintf("ExponentPushToken[device-%d]", i), Title: "t", Body: "b"}
	}
	if err := client.Send(t.Context(), messages); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := requests.Load(); got != 2 {
		t.Fatalf("made %d requests, want 2", got)
	}
	if sizes[0] != 100 || sizes[1] != 50 {
		t.Fatalf("chunk sizes = %v, want [100 50]", sizes)
	}
}

func TestSendErrorTicket(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"status":"error","message":"device not registered","details":{"error":"DeviceNotRegistered"}}]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, server.Client())
	err := client.Send(t.Context(), []port.PushMessage{{To: "ExponentPushToken[gone]", Title: "t", Body: "b"}})
	if !errors.Is(err, domain.ErrDeliveryFailure) {
		t.Fatalf("err = %v, want ErrDeliveryFailure", err)
	}
}

func TestSendToleratesExcessTickets(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, okTickets(3))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, server.Client())
	err := client.Send(t.Context(), []port.PushMessage{{To: "ExponentPushToken[a]", Title: "t", Body: "b"}})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestSendExcessErrorTicketDoesNotPanic(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"status":"ok","id":"ticket-0"},{"status":"error","message":"phantom","details":{"error":"Unknown"}}]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, server.Client())
	err := client.Send(t.Context(), []port.PushMessage{{To: "ExponentPushToken[a]", Title: "t", Body: "b"}})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestSendServerErrorIsUnavailable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, server.Client())
	err := client.Send(t.Context(), []port.PushMessage{{To: "ExponentPushToken[a]", Title: "t", Body: "b"}})
	if !errors.Is(err, domain.ErrPushGatewayUnavailable) {
		t.Fatalf("err = %v, want ErrPushGatewayUnavailable", err)
	}
}

func TestSendNetworkFailureIsUnavailable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, time.Second, nil)
	err := client.Send(t.Context(), []port.PushMessage{{To: "ExponentPushToken[a]", Title: "t", Body: "b"}})
	if !errors.Is(err, domain.ErrPushGatewayUnavailable) {
		t.Fatalf("err = %v, want ErrPushGatewayUnavailable", err)
	}
}
