package daemon

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	apiv1 "github.com/taghound/taghound/pkg/api/v1"
	"github.com/taghound/taghound/pkg/common"
	"github.com/taghound/taghound/pkg/crawler"
	"github.com/taghound/taghound/pkg/metadata"
	"github.com/taghound/taghound/pkg/query"
	"github.com/taghound/taghound/pkg/reveal"
	"github.com/taghound/taghound/pkg/store"
	"github.com/taghound/taghound/pkg/tags"
	"github.com/taghound/taghound/pkg/types"
	"github.com/taghound/taghound/pkg/watcher"
)

// Version is set at build time via ldflags
var Version = "dev"

type Daemon struct {
	Config     types.AppConfig
	httpServer *http.Server
	echo       *echo.Echo
	ctx        context.Context
	cancelFunc context.CancelFunc

	baseRouteGroup *echo.Group

	store   store.Store
	crawler *crawler.Crawler
	watcher *watcher.Watcher
	engine  *query.Engine
	opener  *reveal.Opener
}

func NewDaemon() (*Daemon, error) {
	configManager, err := common.NewConfigManager[types.AppConfig]()
	if err != nil {
		return nil, err
	}
	config := configManager.GetConfig()

	// Setup logging
	if config.PrettyLogs {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	indexStore, err := store.NewSQLiteStore(config.Index.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index store: %w", err)
	}

	extractor := metadata.NewExtractor()
	decoder := tags.NewPlistDecoder()

	fsCrawler := crawler.New(indexStore, extractor, decoder, crawler.Config{
		Workers:       config.Crawler.Workers,
		Depth:         config.Crawler.Depth,
		BatchSize:     config.Crawler.BatchSize,
		FlushInterval: config.Crawler.FlushInterval,
		CommitRetries: config.Crawler.CommitRetries,
	})

	ctx, cancel := context.WithCancel(context.Background())
	daemon := &Daemon{
		Config:     config,
		ctx:        ctx,
		cancelFunc: cancel,
		store:      indexStore,
		crawler:    fsCrawler,
		opener:     reveal.NewOpener(config.Open.Associations),
	}

	daemon.engine = query.NewEngine(indexStore, fsCrawler, query.Config{
		MaxResults: config.Query.MaxResults,
		CacheSize:  config.Query.CacheSize,
		CacheTTL:   config.Query.CacheTTL,
	})

	if config.Watcher.Enabled {
		fsWatcher, err := watcher.New(indexStore, extractor, decoder, daemon.watchGeneration, config.Watcher.Debounce)
		if err != nil {
			cancel()
			indexStore.Close()
			return nil, fmt.Errorf("failed to initialize watcher: %w", err)
		}
		daemon.watcher = fsWatcher

		// Crawled directories join the watch set as the walker finds them
		fsCrawler.OnDirectory(fsWatcher.Watch)
	}

	return daemon, nil
}

// watchGeneration stamps records written by the watcher so the next
// crawl sweep does not treat them as stale.
func (d *Daemon) watchGeneration() int64 {
	if generation := d.crawler.Generation(); generation > 0 {
		return generation
	}

	// No crawl has run this process; fall back to whatever the index holds
	generation, err := d.store.MaxGeneration(d.ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to resolve index generation")
		return 0
	}
	return generation
}

func (d *Daemon) initHTTP() error {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Pre(middleware.RemoveTrailingSlash())

	// Configure logging middleware
	if d.Config.Server.EnablePrettyLogs {
		e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
			Format: "${time_rfc3339} ${method} ${uri} ${status} ${latency_human}\n",
		}))
	}

	// CORS
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: d.Config.Server.CORS.AllowedOrigins,
		AllowHeaders: d.Config.Server.CORS.AllowedHeaders,
		AllowMethods: d.Config.Server.CORS.AllowedMethods,
	}))

	e.Use(middleware.Recover())

	d.echo = e
	d.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", d.Config.Server.Host, d.Config.Server.Port),
		Handler: e,
	}

	d.baseRouteGroup = e.Group(apiv1.HttpServerBaseRoute)

	return nil
}

func (d *Daemon) registerServices() error {
	// Health check works without a token
	apiv1.NewHealthGroup(d.baseRouteGroup.Group("/health"), d.store)

	authToken := apiv1.NewAuthTokenMiddleware(d.Config.Server.AuthToken)

	apiv1.NewFilesGroup(d.baseRouteGroup.Group("/files", authToken), d.engine)
	apiv1.NewTagsGroup(d.baseRouteGroup.Group("/tags", authToken), d.engine)
	apiv1.NewSearchGroup(d.baseRouteGroup.Group("/search", authToken), d.engine)
	apiv1.NewStatusGroup(d.baseRouteGroup.Group("/status", authToken), d.store, d.crawler, Version)
	log.Info().Msg("files, tags, search, and status APIs registered")

	apiv1.NewCrawlsGroup(d.baseRouteGroup.Group("/crawls", authToken), d.crawler)
	log.Info().Msg("crawls API registered at /api/v1/crawls")

	apiv1.NewOpenGroup(d.baseRouteGroup.Group("/open", authToken), d.engine, d.opener)
	log.Info().Msg("open API registered at /api/v1/open")

	return nil
}

// StartAsync starts the daemon without blocking.
// Use this when embedding the daemon in another process (e.g., tests).
func (d *Daemon) StartAsync() error {
	err := d.initHTTP()
	if err != nil {
		return fmt.Errorf("failed to initialize http server: %w", err)
	}

	err = d.registerServices()
	if err != nil {
		return fmt.Errorf("failed to register services: %w", err)
	}

	// Start HTTP server
	go func() {
		addr := fmt.Sprintf("%s:%d", d.Config.Server.Host, d.Config.Server.Port)
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			log.Error().Err(err).Msg("failed to listen on http")
			return
		}

		if err := d.httpServer.Serve(lis); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server error")
		}
	}()

	if d.watcher != nil {
		d.watcher.Start(d.ctx)
		for _, root := range d.Config.Crawler.Roots {
			d.watcher.Watch(root)
		}
	}

	if len(d.Config.Crawler.Roots) > 0 {
		go d.bootCrawl()
	}

	log.Info().
		Str("host", d.Config.Server.Host).
		Int("port", d.Config.Server.Port).
		Str("version", Version).
		Msg("taghound http server running")

	return nil
}

// bootCrawl walks the configured roots once at startup. Roots crawl
// sequentially; the crawler admits one crawl at a time.
func (d *Daemon) bootCrawl() {
	for _, root := range d.Config.Crawler.Roots {
		if d.ctx.Err() != nil {
			return
		}

		snapshot, err := d.crawler.Run(d.ctx, root, 0)
		if err != nil {
			log.Error().Err(err).Str("root", root).Msg("boot crawl failed")
			continue
		}

		log.Info().
			Str("crawl_id", snapshot.ID).
			Str("root", root).
			Int64("visited", snapshot.Visited).
			Int64("errors", snapshot.Errors).
			Msg("boot crawl finished")
	}
}

// Shutdown gracefully shuts down the daemon (exported for external use)
func (d *Daemon) Shutdown() {
	d.shutdown()
}

func (d *Daemon) Start() error {
	if err := d.StartAsync(); err != nil {
		return err
	}

	terminationSignal := make(chan os.Signal, 1)
	signal.Notify(terminationSignal, os.Interrupt, syscall.SIGTERM)
	<-terminationSignal

	log.Info().Msg("termination signal received. shutting down...")
	d.shutdown()

	return nil
}

// shutdown gracefully shuts down the daemon
func (d *Daemon) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), d.Config.Server.ShutdownTimeout)
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)

	// Stop HTTP server
	eg.Go(func() error {
		return d.httpServer.Shutdown(ctx)
	})

	// Stop any active crawl
	eg.Go(func() error {
		d.crawler.Stop()
		return nil
	})

	// Stop the watcher
	if d.watcher != nil {
		eg.Go(func() error {
			d.watcher.Stop()
			return nil
		})
	}

	d.cancelFunc()

	if err := eg.Wait(); err != nil {
		log.Error().Err(err).Msg("failed to shutdown daemon gracefully")
	}

	// Close the store last so in-flight commits finish first
	if err := d.store.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close index store")
	}

	log.Info().Msg("daemon stopped")
}
