package apiv1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// NewAuthTokenMiddleware restricts routes to callers presenting the
// configured bearer token. An empty token disables the check, which is
// the default for a daemon bound to localhost.
func NewAuthTokenMiddleware(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token == "" {
				return next(c)
			}

			presented := strings.TrimPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
			if presented != token {
				return ErrorResponse(c, http.StatusUnauthorized, "invalid token")
			}

			return next(c)
		}
	}
}
