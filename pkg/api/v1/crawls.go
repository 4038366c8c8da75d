package apiv1

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/taghound/taghound/pkg/crawler"
)

// CrawlsGroup controls crawl lifecycle over HTTP.
type CrawlsGroup struct {
	routerGroup *echo.Group
	crawler     *crawler.Crawler
}

type StartCrawlRequest struct {
	Root string `json:"root"`

	// Depth overrides the configured traversal limit for this crawl.
	// Zero keeps the default.
	Depth int `json:"depth"`
}

func NewCrawlsGroup(g *echo.Group, c *crawler.Crawler) *CrawlsGroup {
	group := &CrawlsGroup{routerGroup: g, crawler: c}

	g.POST("", group.Start)
	g.GET("/current", group.Current)
	g.DELETE("/current", group.Cancel)

	return group
}

// Start kicks off a background crawl of the requested root. Only one
// crawl runs at a time; a second request conflicts.
func (g *CrawlsGroup) Start(c echo.Context) error {
	var req StartCrawlRequest
	if err := c.Bind(&req); err != nil {
		return ErrorResponse(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Root == "" {
		return ErrorResponse(c, http.StatusBadRequest, "root is required")
	}
	if !filepath.IsAbs(req.Root) {
		return ErrorResponse(c, http.StatusBadRequest, "root must be an absolute path")
	}
	if req.Depth < 0 {
		return ErrorResponse(c, http.StatusBadRequest, "depth must not be negative")
	}

	// The crawl outlives this request; cancellation goes through DELETE
	// /crawls/current or daemon shutdown.
	snapshot, err := g.crawler.StartCrawl(context.Background(), req.Root, req.Depth)
	if err != nil {
		if errors.Is(err, crawler.ErrCrawlActive) {
			return ErrorResponse(c, http.StatusConflict, err.Error())
		}
		return DomainErrorResponse(c, err)
	}

	log.Info().Str("crawl_id", snapshot.ID).Str("root", snapshot.Root).Msg("crawl requested")
	return SuccessResponse(c, snapshot)
}

// Current returns the state of the running or most recent crawl.
func (g *CrawlsGroup) Current(c echo.Context) error {
	snapshot := g.crawler.Snapshot()
	if snapshot.ID == "" {
		return ErrorResponse(c, http.StatusNotFound, "no crawl has run yet")
	}
	return SuccessResponse(c, snapshot)
}

// Cancel stops the active crawl. Records committed so far stay indexed.
func (g *CrawlsGroup) Cancel(c echo.Context) error {
	if !g.crawler.Cancel() {
		return ErrorResponse(c, http.StatusNotFound, "no active crawl")
	}
	return SuccessResponse(c, map[string]string{"status": "cancelling"})
}
