package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/remtav/stac-browser/auth"
	"github.com/remtav/stac-browser/stac"
	"github.com/remtav/stac-browser/transport"
)

const appDir = ".stac-browser"

var (
	// ErrAPINotFound indicates an API id absent from the configuration
	ErrAPINotFound = errors.New("api not found")
	// ErrDuplicateAPI indicates two configured APIs sharing an id
	ErrDuplicateAPI = errors.New("duplicate api id")
)

// DefaultPath returns the file used when no configuration path is given and
// none of the search locations holds one.
func DefaultPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, appDir, "config.yaml")
	}
	return "config.yaml"
}

// Load loads the configuration from file. A missing file yields the defaults;
// Save then creates it. Environment variables prefixed with STAC_ override
// file values, for instance STAC_DEBUG.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	v.SetEnvPrefix("STAC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := configPath
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		// Check home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, appDir))
		}

		// Check /etc
		v.AddConfigPath("/etc/stac-browser/")
	}

	// Read config file
	found := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
		found = false
		if configPath == "" {
			path = DefaultPath()
		}
	} else {
		path = v.ConfigFileUsed()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.path = path

	// Environment overrides apply to this run only; Save writes what the
	// file holds plus the API changes made through SetAPI and RemoveAPI.
	persisted, err := loadFile(path, found)
	if err != nil {
		return nil, err
	}
	cfg.persisted = persisted

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadFile reads the configuration file alone, without environment overrides
func loadFile(path string, found bool) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if found {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.path = path
	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("timeout", transport.DefaultTimeout)
	v.SetDefault("retries", 0)

	// Search defaults
	v.SetDefault("search.limit", stac.DefaultLimit)
	v.SetDefault("search.max_pages", stac.DefaultMaxPages)
	v.SetDefault("search.page_order", string(stac.PageOrderForward))

	// Download defaults
	v.SetDefault("download.directory", "./downloads")
	v.SetDefault("download.concurrency", 4)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}
	if cfg.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", cfg.Retries)
	}

	if cfg.Search.Limit <= 0 {
		return fmt.Errorf("search.limit must be positive, got %d", cfg.Search.Limit)
	}
	if cfg.Search.MaxPages <= 0 {
		return fmt.Errorf("search.max_pages must be positive, got %d", cfg.Search.MaxPages)
	}
	if _, err := stac.ParsePageOrder(cfg.Search.PageOrder); err != nil {
		return fmt.Errorf("invalid search.page_order: %w", err)
	}

	if cfg.Download.Concurrency <= 0 {
		return fmt.Errorf("download.concurrency must be positive, got %d", cfg.Download.Concurrency)
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	seen := make(map[string]bool, len(cfg.APIs))
	for i, api := range cfg.APIs {
		if err := validateAPI(api); err != nil {
			return fmt.Errorf("apis[%d]: %w", i, err)
		}
		if seen[api.ID] {
			return fmt.Errorf("apis[%d]: %w: %s", i, ErrDuplicateAPI, api.ID)
		}
		seen[api.ID] = true
	}

	return nil
}

func validateAPI(api APIConfig) error {
	if api.ID == "" {
		return fmt.Errorf("id is required")
	}
	if api.Href == "" {
		return fmt.Errorf("href is required for %s", api.ID)
	}
	u, err := url.Parse(api.Href)
	if err != nil {
		return fmt.Errorf("invalid href for %s: %w", api.ID, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("href of %s must be an http(s) URL", api.ID)
	}
	if _, err := auth.Parse(api.Auth); err != nil {
		return fmt.Errorf("auth of %s: %w", api.ID, err)
	}
	return nil
}

// Path returns the file the configuration is saved to
func (c *Config) Path() string {
	if c.path == "" {
		return DefaultPath()
	}
	return c.path
}

// FindAPI returns the API with the given id
func (c *Config) FindAPI(id string) (*APIConfig, error) {
	for i := range c.APIs {
		if c.APIs[i].ID == id {
			return &c.APIs[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAPINotFound, id)
}

// SetAPI adds api, replacing a configured API with the same id
func (c *Config) SetAPI(api APIConfig) error {
	if err := validateAPI(api); err != nil {
		return err
	}
	c.APIs = upsertAPI(c.APIs, api)
	if c.persisted != nil {
		c.persisted.APIs = upsertAPI(c.persisted.APIs, api)
	}
	return nil
}

func upsertAPI(apis []APIConfig, api APIConfig) []APIConfig {
	for i := range apis {
		if apis[i].ID == api.ID {
			apis[i] = api
			return apis
		}
	}
	return append(apis, api)
}

// RemoveAPI removes the API with the given id
func (c *Config) RemoveAPI(id string) error {
	apis, ok := removeAPI(c.APIs, id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrAPINotFound, id)
	}
	c.APIs = apis
	if c.persisted != nil {
		c.persisted.APIs, _ = removeAPI(c.persisted.APIs, id)
	}
	return nil
}

func removeAPI(apis []APIConfig, id string) ([]APIConfig, bool) {
	for i := range apis {
		if apis[i].ID == id {
			return append(apis[:i:i], apis[i+1:]...), true
		}
	}
	return apis, false
}

// Save writes the configuration file as YAML to Path. Values overridden for
// this run, by the environment or on the Config itself, are not written;
// API changes made through SetAPI and RemoveAPI are. The file may hold
// credentials and is only readable by its owner.
func (c *Config) Save() error {
	doc := c
	if c.persisted != nil {
		doc = c.persisted
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	path := c.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Document returns the persisted form the stac package builds an API from
func (a APIConfig) Document() stac.Document {
	title := a.Title
	if title == "" {
		title = a.ID
	}
	return stac.Document{
		ID:    a.ID,
		Title: title,
		Href:  a.Href,
		Auth:  a.Auth,
	}
}

// TransportOptions returns the transport settings of the configuration
func (c *Config) TransportOptions() []transport.Option {
	opts := []transport.Option{
		transport.WithTimeout(c.Timeout),
		transport.WithInsecureSkipVerify(c.Debug),
	}
	if c.Retries > 0 {
		opts = append(opts, transport.WithRetries(c.Retries, 0, 0))
	}
	return opts
}

// APIOptions returns the search settings of the configuration
func (c *Config) APIOptions() []stac.Option {
	order, _ := stac.ParsePageOrder(c.Search.PageOrder)
	return []stac.Option{
		stac.WithMaxPages(c.Search.MaxPages),
		stac.WithPageOrder(order),
	}
}
