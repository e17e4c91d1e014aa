package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	defaultEnvFile = ".env"
	envPrefix      = "CATALOG_WEB_"
	// cloudRunPortKey is honoured when CATALOG_WEB_PORT is not set.
	cloudRunPortKey = "PORT"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Env      string `env:"ENV" envDefault:"local"`
	Dev      bool   `env:"DEV"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Server    ServerConfig
	Catalog   CatalogConfig
	Views     ViewConfig
	Site      SiteConfig
	Session   SessionConfig
	Analytics AnalyticsConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// CatalogConfig points the product fetcher at its upstream.
type CatalogConfig struct {
	// APIBaseURL is the origin serving the product collection. When empty the
	// fixture catalog is served instead.
	APIBaseURL   string        `env:"API_BASE_URL"`
	ProductPath  string        `env:"PRODUCT_PATH" envDefault:"/api/product"`
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT" envDefault:"0s"`
	FixturePath  string        `env:"FIXTURE_PATH"`
	PageSize     int           `env:"PAGE_SIZE" envDefault:"9"`
	Currency     string        `env:"CURRENCY" envDefault:"USD"`
}

// ViewConfig bounds the lifetime of mounted listing views.
type ViewConfig struct {
	TTL           time.Duration `env:"VIEW_TTL" envDefault:"30m"`
	SweepInterval time.Duration `env:"VIEW_SWEEP_INTERVAL" envDefault:"1m"`
	MaxViews      int           `env:"MAX_VIEWS" envDefault:"10000"`
}

// SiteConfig holds presentation and content settings.
type SiteConfig struct {
	URL           string   `env:"SITE_URL"`
	ContentDir    string   `env:"CONTENT_DIR" envDefault:"content"`
	LocalesDir    string   `env:"LOCALES_DIR" envDefault:"locales"`
	DefaultLocale string   `env:"DEFAULT_LOCALE" envDefault:"en"`
	Locales       []string `env:"LOCALES" envDefault:"en,ja" envSeparator:","`
}

// SessionConfig controls the signed session cookie.
type SessionConfig struct {
	SigningKey string `env:"SESSION_SIGNING_KEY"`
	// BlockKey enables cookie encryption when set (16, 24 or 32 bytes).
	BlockKey string `env:"SESSION_BLOCK_KEY"`
}

// AnalyticsConfig holds client instrumentation identifiers surfaced to templates.
type AnalyticsConfig struct {
	GA4MeasurementID string `env:"GA_MEASUREMENT_ID"`
	GTMContainerID   string `env:"GTM_CONTAINER_ID"`
	Debug            bool   `env:"ANALYTICS_DEBUG"`
}

// IsProd reports whether the service runs in the production environment.
func (c Config) IsProd() bool {
	return strings.EqualFold(c.Env, "prod")
}

// ValidationError is returned when configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides. An empty
// path disables .env loading.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map. Values in the map take
// precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration from defaults, .env overrides, the process
// environment and explicit maps, in increasing order of precedence.
func Load(_ context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	values, err := environmentValues(options)
	if err != nil {
		return Config{}, err
	}
	if _, ok := values[envPrefix+"PORT"]; !ok {
		if port := strings.TrimSpace(values[cloudRunPortKey]); port != "" {
			values[envPrefix+"PORT"] = port
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{
		Environment: values,
		Prefix:      envPrefix,
	}); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}

	cfg.Catalog.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.Catalog.APIBaseURL), "/")
	cfg.Catalog.Currency = strings.ToUpper(strings.TrimSpace(cfg.Catalog.Currency))
	cfg.Site.DefaultLocale = strings.ToLower(strings.TrimSpace(cfg.Site.DefaultLocale))
	if !strings.HasPrefix(cfg.Catalog.ProductPath, "/") {
		cfg.Catalog.ProductPath = "/" + cfg.Catalog.ProductPath
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func environmentValues(options loaderOptions) (map[string]string, error) {
	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string)
	merge := func(source map[string]string) {
		for key, value := range source {
			values[key] = value
		}
	}

	merge(dotEnvValues)
	if options.useSystemEnv {
		for _, entry := range os.Environ() {
			key, value, ok := strings.Cut(entry, "=")
			if !ok || strings.TrimSpace(key) == "" {
				continue
			}
			values[strings.TrimSpace(key)] = value
		}
	}
	merge(options.envMap)
	return values, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if strings.TrimSpace(cfg.Server.Port) == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		missing = append(missing, "Server.ShutdownTimeout")
	}
	if cfg.Catalog.APIBaseURL != "" {
		u, err := url.Parse(cfg.Catalog.APIBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			missing = append(missing, "Catalog.APIBaseURL")
		}
	}
	if cfg.Catalog.PageSize < 0 {
		missing = append(missing, "Catalog.PageSize")
	}
	if cfg.Catalog.FetchTimeout < 0 {
		missing = append(missing, "Catalog.FetchTimeout")
	}
	if cfg.Views.TTL <= 0 {
		missing = append(missing, "Views.TTL")
	}
	if cfg.Views.SweepInterval <= 0 {
		missing = append(missing, "Views.SweepInterval")
	}
	if cfg.Views.MaxViews <= 0 {
		missing = append(missing, "Views.MaxViews")
	}
	if cfg.Site.DefaultLocale == "" {
		missing = append(missing, "Site.DefaultLocale")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}
