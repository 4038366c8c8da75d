package apiv1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/taghound/taghound/pkg/query"
	"github.com/taghound/taghound/pkg/reveal"
)

// OpenGroup launches indexed files on the daemon's host.
type OpenGroup struct {
	routerGroup *echo.Group
	engine      *query.Engine
	opener      *reveal.Opener
}

type OpenRequest struct {
	Path   string `json:"path"`
	Reveal bool   `json:"reveal,omitempty"`
}

func NewOpenGroup(g *echo.Group, engine *query.Engine, opener *reveal.Opener) *OpenGroup {
	group := &OpenGroup{routerGroup: g, engine: engine, opener: opener}

	g.POST("", group.Open)

	return group
}

// Open launches the handler for an indexed path. Paths the index does
// not know are rejected before anything is launched.
func (g *OpenGroup) Open(c echo.Context) error {
	var req OpenRequest
	if err := c.Bind(&req); err != nil {
		return ErrorResponse(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Path == "" {
		return ErrorResponse(c, http.StatusBadRequest, "path is required")
	}

	record, err := g.engine.GetRecord(c.Request().Context(), req.Path)
	if err != nil {
		return DomainErrorResponse(c, err)
	}

	if req.Reveal {
		err = g.opener.Reveal(record.Path)
	} else {
		err = g.opener.Open(record.Path)
	}
	if err != nil {
		log.Warn().Err(err).Str("path", record.Path).Msg("failed to launch handler")
		return ErrorResponse(c, http.StatusInternalServerError, err.Error())
	}

	return SuccessResponse(c, map[string]string{"status": "opened", "path": record.Path})
}
