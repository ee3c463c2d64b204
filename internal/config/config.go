// Package config handles loading, defaulting, and validation of the linkhub
// TOML configuration file. Every section maps to a typed struct so the rest
// of the codebase gets strong typing without manual key lookups.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"
)

// Config is the top-level configuration, mirroring the TOML sections.
type Config struct {
	Server   ServerConfig      `toml:"server"     json:"server"`
	Logging  LoggingConfig     `toml:"logging"    json:"logging"`
	Site     SiteConfig        `toml:"site"       json:"site"`
	Presence PresenceConfig    `toml:"presence"   json:"presence"`
	Demo     DemoConfig        `toml:"demo"       json:"demo"`
	Metrics  MetricsConfig     `toml:"metrics"    json:"metrics"`
	Links    map[string]string `toml:"links"      json:"links"`

	// LinksFile optionally points at a flat JSON object of slug -> URL
	// entries. Relative paths resolve against the config file's directory.
	LinksFile string `toml:"links_file" json:"links_file"`
}

type ServerConfig struct {
	Bind string `toml:"bind" json:"bind"`
}

type LoggingConfig struct {
	Level  string `toml:"level"  json:"level"`
	Format string `toml:"format" json:"format"`
}

type SiteConfig struct {
	Title        string `toml:"title"         json:"title"`
	Description  string `toml:"description"   json:"description"`
	CanonicalURL string `toml:"canonical_url" json:"canonical_url"`
}

type PresenceConfig struct {
	Enabled                 bool   `toml:"enabled"                   json:"enabled"`
	SubscriberID            string `toml:"subscriber_id"             json:"subscriber_id"`
	SocketURL               string `toml:"socket_url"                json:"socket_url"`
	RESTURL                 string `toml:"rest_url"                  json:"rest_url"`
	HandshakeTimeoutSeconds int    `toml:"handshake_timeout_seconds" json:"handshake_timeout_seconds"`
	ReconnectDelaySeconds   int    `toml:"reconnect_delay_seconds"   json:"reconnect_delay_seconds"`
	SubscribeRetryMillis    int    `toml:"subscribe_retry_ms"        json:"subscribe_retry_ms"`
	RESTCacheSeconds        int    `toml:"rest_cache_seconds"        json:"rest_cache_seconds"`
}

type DemoConfig struct {
	Enabled         bool `toml:"enabled"          json:"enabled"`
	IntervalSeconds int  `toml:"interval_seconds" json:"interval_seconds"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Path    string `toml:"path"    json:"path"`
}

// Default returns a Config populated with sane defaults. Values here are
// used whenever the TOML file omits a field.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "0.0.0.0:8080",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Site: SiteConfig{
			Title:       "linkhub",
			Description: "Personal link hub",
		},
		Presence: PresenceConfig{
			Enabled:                 true,
			SocketURL:               "wss://api.lanyard.rest/socket",
			RESTURL:                 "https://api.lanyard.rest/v1",
			HandshakeTimeoutSeconds: 10,
			ReconnectDelaySeconds:   5,
			SubscribeRetryMillis:    100,
			RESTCacheSeconds:        30,
		},
		Demo: DemoConfig{
			Enabled:         false,
			IntervalSeconds: 20,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Links: map[string]string{},
	}
}

// Load reads the TOML file at path, layers it on top of the defaults, and
// validates the result. An error is returned if the file can't be read,
// parsed, or if any constraint is violated.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Links == nil {
		cfg.Links = map[string]string{}
	}
	if cfg.LinksFile != "" && !filepath.IsAbs(cfg.LinksFile) {
		cfg.LinksFile = filepath.Join(filepath.Dir(path), cfg.LinksFile)
	}

	if err := validate(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// validate reports every violated constraint at once.
func validate(cfg Config) error {
	var err error
	if cfg.Server.Bind == "" {
		err = multierr.Append(err, errors.New("server.bind must not be empty"))
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("logging.level %q must be one of debug, info, warn, error", cfg.Logging.Level))
	}
	switch cfg.Logging.Format {
	case "console", "json":
	default:
		err = multierr.Append(err, fmt.Errorf("logging.format %q must be console or json", cfg.Logging.Format))
	}
	if cfg.Presence.SocketURL == "" {
		err = multierr.Append(err, errors.New("presence.socket_url must not be empty"))
	}
	if cfg.Presence.HandshakeTimeoutSeconds < 1 {
		err = multierr.Append(err, errors.New("presence.handshake_timeout_seconds must be >= 1"))
	}
	if cfg.Presence.ReconnectDelaySeconds < 1 {
		err = multierr.Append(err, errors.New("presence.reconnect_delay_seconds must be >= 1"))
	}
	if cfg.Presence.SubscribeRetryMillis < 0 {
		err = multierr.Append(err, errors.New("presence.subscribe_retry_ms must be >= 0"))
	}
	if cfg.Presence.RESTCacheSeconds < 0 {
		err = multierr.Append(err, errors.New("presence.rest_cache_seconds must be >= 0"))
	}
	if cfg.Demo.IntervalSeconds < 1 {
		err = multierr.Append(err, errors.New("demo.interval_seconds must be >= 1"))
	}
	if cfg.Metrics.Enabled && (cfg.Metrics.Path == "" || cfg.Metrics.Path[0] != '/') {
		err = multierr.Append(err, errors.New("metrics.path must start with /"))
	}
	return err
}
