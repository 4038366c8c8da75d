package types

import (
	"time"
)

// AppConfig is the root configuration for the taghound daemon and CLI
type AppConfig struct {
	DebugMode  bool `key:"debugMode" json:"debug_mode"`
	PrettyLogs bool `key:"prettyLogs" json:"pretty_logs"`

	Server  ServerConfig  `key:"server" json:"server"`
	Index   IndexConfig   `key:"index" json:"index"`
	Crawler CrawlerConfig `key:"crawler" json:"crawler"`
	Watcher WatcherConfig `key:"watcher" json:"watcher"`
	Query   QueryConfig   `key:"query" json:"query"`
	Open    OpenConfig    `key:"open" json:"open"`
}

// ----------------------------------------------------------------------------
// Server Configuration
// ----------------------------------------------------------------------------

type ServerConfig struct {
	Host             string        `key:"host" json:"host"`
	Port             int           `key:"port" json:"port"`
	AuthToken        string        `key:"authToken" json:"auth_token"`
	EnablePrettyLogs bool          `key:"enablePrettyLogs" json:"enable_pretty_logs"`
	ShutdownTimeout  time.Duration `key:"shutdownTimeout" json:"shutdown_timeout"`
	CORS             CORSConfig    `key:"cors" json:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `key:"allowedOrigins" json:"allowed_origins"`
	AllowedHeaders []string `key:"allowedHeaders" json:"allowed_headers"`
	AllowedMethods []string `key:"allowedMethods" json:"allowed_methods"`
}

// ----------------------------------------------------------------------------
// Index Configuration
// ----------------------------------------------------------------------------

type IndexConfig struct {
	// Path is the SQLite database location. Empty means in-memory: the
	// index lives for the process only and is rebuilt on every run.
	Path string `key:"path" json:"path"`
}

// ----------------------------------------------------------------------------
// Crawler Configuration
// ----------------------------------------------------------------------------

type CrawlerConfig struct {
	// Roots are crawled in order when the daemon boots
	Roots []string `key:"roots" json:"roots"`

	// Workers bounds the extraction worker pool
	Workers int `key:"workers" json:"workers"`

	// Depth limits traversal depth below the root (0 = unlimited)
	Depth int `key:"depth" json:"depth"`

	// BatchSize is the hard upper bound on rows per store commit
	BatchSize int `key:"batchSize" json:"batch_size"`

	// FlushInterval bounds how long extracted rows may stay uncommitted
	FlushInterval time.Duration `key:"flushInterval" json:"flush_interval"`

	// CommitRetries bounds retry attempts for a failed batch commit
	CommitRetries int `key:"commitRetries" json:"commit_retries"`
}

// ----------------------------------------------------------------------------
// Watcher Configuration
// ----------------------------------------------------------------------------

type WatcherConfig struct {
	Enabled bool `key:"enabled" json:"enabled"`

	// Debounce is the window within which repeated change notifications
	// for the same path coalesce into one re-extraction
	Debounce time.Duration `key:"debounce" json:"debounce"`
}

// ----------------------------------------------------------------------------
// Query Configuration
// ----------------------------------------------------------------------------

type QueryConfig struct {
	// MaxResults caps search result sets; responses flag truncation
	MaxResults int `key:"maxResults" json:"max_results"`

	CacheSize int           `key:"cacheSize" json:"cache_size"`
	CacheTTL  time.Duration `key:"cacheTTL" json:"cache_ttl"`
}

// ----------------------------------------------------------------------------
// Open Configuration
// ----------------------------------------------------------------------------

type OpenConfig struct {
	// Associations maps a file extension (without dot) to the application
	// used to open it, e.g. {"pdf": "Preview"}
	Associations map[string]string `key:"associations" json:"associations"`
}
