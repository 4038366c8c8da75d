package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	configEnvKey  = "TAGHOUND_CONFIG"
	configTagName = "key"
)

var defaultConfig = []byte(`
debugMode: false
prettyLogs: false
server:
  host: 127.0.0.1
  port: 2740
  authToken: ""
  enablePrettyLogs: false
  shutdownTimeout: 10s
  cors:
    allowedOrigins: ["*"]
    allowedHeaders: ["*"]
    allowedMethods: ["GET", "POST", "DELETE", "OPTIONS"]
index:
  path: ""
crawler:
  roots: []
  workers: 4
  depth: 0
  batchSize: 256
  flushInterval: 500ms
  commitRetries: 3
watcher:
  enabled: true
  debounce: 200ms
query:
  maxResults: 1000
  cacheSize: 512
  cacheTTL: 30s
open:
  associations: {}
`)

// ConfigManager loads application configuration from embedded defaults,
// overlaid with an optional YAML or JSON file named by the
// TAGHOUND_CONFIG environment variable.
type ConfigManager[T any] struct {
	k *koanf.Koanf
}

// NewConfigManager creates a config manager with all sources loaded
func NewConfigManager[T any]() (*ConfigManager[T], error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaultConfig), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	if path := os.Getenv(configEnvKey); path != "" {
		parser := yaml.Parser()
		if strings.HasSuffix(path, ".json") {
			parser = json.Parser()
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	return &ConfigManager[T]{k: k}, nil
}

// GetConfig returns the decoded configuration
func (cm *ConfigManager[T]) GetConfig() T {
	var cfg T
	cm.k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: configTagName,
		DecoderConfig: &mapstructure.DecoderConfig{
			TagName: configTagName,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			WeaklyTypedInput: true,
			Result:           &cfg,
		},
	})
	return cfg
}
