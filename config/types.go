package config

import (
	"time"

	"github.com/remtav/stac-browser/auth"
)

// Config represents the complete configuration structure
type Config struct {
	Debug    bool           `mapstructure:"debug" yaml:"debug"`
	Timeout  time.Duration  `mapstructure:"timeout" yaml:"timeout"`
	Retries  int            `mapstructure:"retries" yaml:"retries"`
	Search   SearchConfig   `mapstructure:"search" yaml:"search"`
	Download DownloadConfig `mapstructure:"download" yaml:"download"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	APIs     []APIConfig    `mapstructure:"apis" yaml:"apis"`

	// path is the file the configuration was read from or will be saved to
	path string
	// persisted is the content of the file, without runtime overrides
	persisted *Config
}

// SearchConfig contains search and pagination settings
type SearchConfig struct {
	Limit     int          `mapstructure:"limit" yaml:"limit"`
	MaxPages  int          `mapstructure:"max_pages" yaml:"max_pages"`
	PageOrder string       `mapstructure:"page_order" yaml:"page_order"`
	Filters   FilterConfig `mapstructure:"filters" yaml:"filters,omitempty"`
}

// FilterConfig contains named item filter expressions
type FilterConfig map[string]string

// DownloadConfig contains asset download settings
type DownloadConfig struct {
	Directory   string   `mapstructure:"directory" yaml:"directory"`
	Concurrency int      `mapstructure:"concurrency" yaml:"concurrency"`
	Assets      []string `mapstructure:"assets" yaml:"assets,omitempty"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Color  bool   `mapstructure:"color" yaml:"color"`
}

// APIConfig is one configured STAC API
type APIConfig struct {
	ID    string       `mapstructure:"id" yaml:"id"`
	Title string       `mapstructure:"title" yaml:"title"`
	Href  string       `mapstructure:"href" yaml:"href"`
	Auth  *auth.Config `mapstructure:"auth" yaml:"auth,omitempty"`
}
