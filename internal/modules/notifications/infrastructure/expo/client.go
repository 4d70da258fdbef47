// Package expo implements the push gateway against the Expo push HTTP API.
package expo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"primeNotify/internal/modules/notifications/application/port"
	"primeNotify/internal/modules/notifications/domain"
)

const (
	// DefaultBaseURL is Expo's push send endpoint.
	DefaultBaseURL = "https://exp.host/--/api/v2/push/send"

	defaultTimeout = 10 * time.Second

	// chunkSize is the maximum number of messages Expo accepts per request.
	chunkSize = 100
)

var pushTokenPattern = regexp.MustCompile(`^Expo(nent)?PushToken\[[^\]]+\]$`)

// Client talks to the Expo push service. It satisfies the PushGateway port.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates an Expo push client. An empty baseURL selects the public
// Expo endpoint; tests point it at a local server.
func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient, timeout: timeout}
}

// IsPushToken reports whether the token is a well-formed Expo push token
// (ExponentPushToken[...] or ExpoPushToken[...]).
func (c *Client) IsPushToken(token string) bool {
	return pushTokenPattern.MatchString(strings.TrimSpace(token))
}

// ticket is one entry of Expo's response; Expo returns one per message, in
// order.
type ticket struct {
	Status  string `json:"status"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
	Details struct {
		Error string `json:"error,omitempty"`
	} `json:"details,omitempty"`
}

// Send delivers the messages in chunks of at most 100, as the Expo API
// requires. A network failure or a 5xx response maps to
// ErrPushGatewayUnavailable (retryable); an error ticket maps to
// ErrDeliveryFailure (the device rejected it, retrying will not help).
func (c *Client) Send(ctx context.Context, messages []port.PushMessage) error {
	for start := 0; start < len(messages); start += chunkSize {
		end := min(start+chunkSize, len(messages))
		if err := c.sendChunk(ctx, messages[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) sendChunk(ctx context.Context, chunk []port.PushMessage) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("encode push messages: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("push request error", slog.Any("error", err))
		return fmt.Errorf("%w: %v", domain.ErrPushGatewayUnavailable, err)
	}
	defer res.Body.Close()

	slog.Debug("push response", slog.Int("status", res.StatusCode), slog.Int("messages", len(chunk)))

	switch {
	case res.StatusCode >= http.StatusInternalServerError:
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		slog.Error("push service unavailable", slog.Int("status", res.StatusCode), slog.String("body", strings.TrimSpace(string(body))))
		return fmt.Errorf("%w: status %d", domain.ErrPushGatewayUnavailable, res.StatusCode)
	case res.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return fmt.Errorf("%w: status %d: %s", domain.ErrDeliveryFailure, res.StatusCode, strings.TrimSpace(string(body)))
	}

	var response struct {
		Data []ticket `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return fmt.Errorf("decode push response: %w", err)
	}
	if len(response.Data) != len(chunk) {
		slog.Warn("push ticket count mismatch",
			slog.Int("tickets", len(response.Data)),
			slog.Int("messages", len(chunk)))
	}
	for i, tk := range response.Data {
		if i >= len(chunk) {
			break
		}
		if tk.Status == "error" {
			slog.Warn("push ticket error",
				slog.String("to", chunk[i].To),
				slog.String("message", tk.Message),
				slog.String("error", tk.Details.Error))
			return fmt.Errorf("%w: %s", domain.ErrDeliveryFailure, tk.Message)
		}
	}
	return nil
}

var _ port.PushGateway = (*Client)(nil)
