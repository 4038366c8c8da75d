package apiv1

import (
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/taghound/taghound/pkg/query"
	"github.com/taghound/taghound/pkg/store"
	"github.com/taghound/taghound/pkg/types"
)

// StatusGroup reports daemon, crawl, and index health in one place.
type StatusGroup struct {
	routerGroup *echo.Group
	store       store.Store
	crawls      query.CrawlSource
	version     string
	startedAt   time.Time
}

type ProcessStats struct {
	PID        int32   `json:"pid"`
	RSSBytes   uint64  `json:"rss_bytes"`
	CPUPercent float64 `json:"cpu_percent"`
}

type StatusResponse struct {
	Version string               `json:"version"`
	Uptime  string               `json:"uptime"`
	Crawl   *types.CrawlSnapshot `json:"crawl,omitempty"`
	Index   types.StoreStats     `json:"index"`
	Process ProcessStats         `json:"process"`
}

func NewStatusGroup(g *echo.Group, s store.Store, crawls query.CrawlSource, version string) *StatusGroup {
	group := &StatusGroup{
		routerGroup: g,
		store:       s,
		crawls:      crawls,
		version:     version,
		startedAt:   time.Now(),
	}

	g.GET("", group.Status)

	return group
}

func (g *StatusGroup) Status(c echo.Context) error {
	ctx := c.Request().Context()

	stats, err := g.store.Stats(ctx)
	if err != nil {
		return DomainErrorResponse(c, err)
	}

	resp := StatusResponse{
		Version: g.version,
		Uptime:  time.Since(g.startedAt).Round(time.Second).String(),
		Index:   stats,
		Process: processStats(),
	}

	if snapshot := g.crawls.Snapshot(); snapshot.ID != "" {
		resp.Crawl = &snapshot
	}

	return SuccessResponse(c, resp)
}

func processStats() ProcessStats {
	pid := int32(os.Getpid())
	stats := ProcessStats{PID: pid}

	proc, err := process.NewProcess(pid)
	if err != nil {
		log.Debug().Err(err).Msg("failed to inspect own process")
		return stats
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		stats.RSSBytes = mem.RSS
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	}
	return stats
}
