// Package transport exposes the notifications REST surface. The routes are a
// thin shell over the usecases: bind, validate, call, map errors.
package transport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"primeNotify/internal/modules/notifications/application/usecase"
	"primeNotify/internal/modules/notifications/domain"
	"primeNotify/internal/shared/auth"
	"primeNotify/internal/shared/httputil"
)

// PushSender is the push-only send path (POST /notification/send).
type PushSender interface {
	Send(ctx context.Context, in usecase.SendPushInput) (*domain.Notification, error)
}

// NotificationService backs the authenticated list/read/delete routes.
type NotificationService interface {
	ListForUser(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkRead(ctx context.Context, notificationID, userID string) (*domain.Notification, error)
	Delete(ctx context.Context, notificationID, userID string) error
	DeleteAll(ctx context.Context, userID string) (int64, error)
}

// NotificationHandler wires the notification routes onto echo.
type NotificationHandler struct {
	push     PushSender
	service  NotificationService
	validate *validator.Validate
	mapper   *httputil.ErrorMapper
}

func NewNotificationHandler(push PushSender, service NotificationService) *NotificationHandler {
	mapper := httputil.NewErrorMapper().
		WithMapping(domain.ErrValidation, http.StatusBadRequest, "Title, body, and recipient are required.").
		WithMapping(domain.ErrPushTokenNotFound, http.StatusNotFound, "Recipient push token not found").
		WithMapping(domain.ErrNotFound, http.StatusNotFound, "Notification not found")

	return &NotificationHandler{
		push:     push,
		service:  service,
		validate: validator.New(),
		mapper:   mapper,
	}
}

// Register mounts the routes. The send route is unauthenticated (used by
// trusted backend collaborators); the user routes require a valid token.
func (h *NotificationHandler) Register(g *echo.Group, authMiddleware echo.MiddlewareFunc) {
	g.POST("/send", h.SendPush)

	authed := g.Group("", authMiddleware)
	authed.GET("/user-notifications", h.ListForUser)
	authed.PUT("/read/:id", h.MarkRead)
	authed.DELETE("/clear-all", h.DeleteAll)
	authed.DELETE("/:id", h.Delete)
}

type sendNotificationRequest struct {
	Title     string `json:"title" validate:"required"`
	Body      string `json:"body" validate:"required"`
	Recipient string `json:"recipient" validate:"required"`
}

// SendPush handles POST /notification/send.
func (h *NotificationHandler) SendPush(c echo.Context) error {
	var req sendNotificationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Title, body, and recipient are required.")
	}
	if err := h.validate.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Title, body, and recipient are required.")
	}

	n, err := h.push.Send(c.Request().Context(), usecase.SendPushInput{
		Title:     req.Title,
		Body:      req.Body,
		Recipient: req.Recipient,
	})
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message":      "Notification sent successfully.",
		"notification": n,
	})
}

// ListForUser handles GET /notification/user-notifications.
func (h *NotificationHandler) ListForUser(c echo.Context) error {
	notifications, err := h.service.ListForUser(c.Request().Context(), auth.UserID(c))
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, notifications)
}

// MarkRead handles PUT /notification/read/:id.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	n, err := h.service.MarkRead(c.Request().Context(), c.Param("id"), auth.UserID(c))
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, n)
}

// Delete handles DELETE /notification/:id.
func (h *NotificationHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id"), auth.UserID(c)); err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Notification deleted successfully"})
}

// DeleteAll handles DELETE /notification/clear-all.
func (h *NotificationHandler) DeleteAll(c echo.Context) error {
	count, err := h.service.DeleteAll(c.Request().Context(), auth.UserID(c))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "No notifications found to delete")
		}
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":      "All notifications deleted successfully",
		"deletedCount": count,
	})
}

func (h *NotificationHandler) httpError(c echo.Context, err error) error {
	info := h.mapper.Map(err)
	if info.Status >= http.StatusInternalServerError {
		slog.Error("notification request failed",
			slog.String("path", c.Path()),
			slog.Any("error", err))
	}
	return echo.NewHTTPError(info.Status, info.Message)
}
