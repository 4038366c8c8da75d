package apiv1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/taghound/taghound/pkg/store"
)

type HealthGroup struct {
	store       store.Store
	routerGroup *echo.Group
}

func NewHealthGroup(g *echo.Group, s store.Store) *HealthGroup {
	group := &HealthGroup{routerGroup: g, store: s}

	g.GET("", group.HealthCheck)

	return group
}

func (h *HealthGroup) HealthCheck(c echo.Context) error {
	err := h.store.Ping(c.Request().Context())
	if err != nil {
		log.Error().Err(err).Msg("health check failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"status": "not ok",
			"error":  err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
