package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// userIDKey is the echo context key under which the middleware stores the
// authenticated user's id.
const userIDKey = "userId"

// Middleware returns an echo middleware that validates the request token and
// stores the authenticated user id in the context. Requests without a valid
// token are rejected with 401.
func Middleware(validator TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := validator.Validate(ExtractToken(c.Request(), "token"))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing token")
			}
			c.Set(userIDKey, claims.Subject)
			return next(c)
		}
	}
}

// UserID returns the authenticated user id stored by Middleware, or an empty
// string when the route is unauthenticated.
func UserID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}
