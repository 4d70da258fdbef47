// Package transport exposes the realtime WebSocket endpoint.
package transport

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"primeNotify/internal/modules/realtime/domain"
	"primeNotify/internal/modules/realtime/infrastructure"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewWebsocketHandler exposes GET /ws?userId=<id>. A connection without a
// userId is upgraded and then closed with policy violation 1008 so browser
// clients get a readable close reason instead of a failed handshake.
func NewWebsocketHandler(hub *infrastructure.Hub, commands *infrastructure.CommandProcessor, sendBuffer int) func(echo.Context) error {
	if sendBuffer <= 0 {
		sendBuffer = 8
	}

	return func(c echo.Context) error {
		userID := strings.TrimSpace(c.QueryParam("userId"))

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			slog.Error("ws upgrade failed", slog.String("ip", c.RealIP()), slog.Any("error", err))
			return err
		}

		if userID == "" {
			deadline := time.Now().Add(5 * time.Second)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "User ID required"), deadline)
			_ = conn.Close()
			return nil
		}

		client := infrastructure.NewClient(hub, conn, userID, sendBuffer, commands)
		hub.Register(client)

		go client.WritePump()
		go client.ReadPump()

		client.Send(domain.ConnectionEstablished())
		return nil
	}
}
