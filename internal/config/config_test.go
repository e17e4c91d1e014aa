package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("unexpected shutdown timeout: %s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Catalog.APIBaseURL != "" {
		t.Errorf("expected empty api base url, got %q", cfg.Catalog.APIBaseURL)
	}
	if cfg.Catalog.ProductPath != "/api/product" {
		t.Errorf("unexpected product path: %s", cfg.Catalog.ProductPath)
	}
	if cfg.Catalog.FetchTimeout != 0 {
		t.Errorf("expected no fetch timeout by default, got %s", cfg.Catalog.FetchTimeout)
	}
	if cfg.Catalog.PageSize != 9 {
		t.Errorf("unexpected page size: %d", cfg.Catalog.PageSize)
	}
	if cfg.Catalog.Currency != "USD" {
		t.Errorf("unexpected currency: %s", cfg.Catalog.Currency)
	}
	if cfg.Views.TTL != 30*time.Minute {
		t.Errorf("unexpected view ttl: %s", cfg.Views.TTL)
	}
	if cfg.Views.MaxViews != 10000 {
		t.Errorf("unexpected view limit: %d", cfg.Views.MaxViews)
	}
	if cfg.Site.DefaultLocale != "en" {
		t.Errorf("unexpected default locale: %s", cfg.Site.DefaultLocale)
	}
	if len(cfg.Site.Locales) != 2 {
		t.Errorf("expected two locales, got %v", cfg.Site.Locales)
	}
	if cfg.Env != "local" || cfg.IsProd() {
		t.Errorf("expected local environment, got %s", cfg.Env)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	env := map[string]string{
		"CATALOG_WEB_PORT":                "9090",
		"CATALOG_WEB_ENV":                 "prod",
		"CATALOG_WEB_API_BASE_URL":        "https://shop.example.com/",
		"CATALOG_WEB_PRODUCT_PATH":        "api/product",
		"CATALOG_WEB_FETCH_TIMEOUT":       "3s",
		"CATALOG_WEB_PAGE_SIZE":           "12",
		"CATALOG_WEB_CURRENCY":            "jpy",
		"CATALOG_WEB_VIEW_TTL":            "5m",
		"CATALOG_WEB_VIEW_SWEEP_INTERVAL": "10s",
		"CATALOG_WEB_LOCALES":             "en, ja",
		"CATALOG_WEB_GA_MEASUREMENT_ID":   "G-TEST",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if !cfg.IsProd() {
		t.Errorf("expected prod environment")
	}
	if cfg.Catalog.APIBaseURL != "https://shop.example.com" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.Catalog.APIBaseURL)
	}
	if cfg.Catalog.ProductPath != "/api/product" {
		t.Errorf("expected leading slash added, got %s", cfg.Catalog.ProductPath)
	}
	if cfg.Catalog.FetchTimeout != 3*time.Second {
		t.Errorf("unexpected fetch timeout %s", cfg.Catalog.FetchTimeout)
	}
	if cfg.Catalog.PageSize != 12 {
		t.Errorf("unexpected page size %d", cfg.Catalog.PageSize)
	}
	if cfg.Catalog.Currency != "JPY" {
		t.Errorf("expected upper-cased currency, got %s", cfg.Catalog.Currency)
	}
	if cfg.Views.TTL != 5*time.Minute || cfg.Views.SweepInterval != 10*time.Second {
		t.Errorf("unexpected view timings %s / %s", cfg.Views.TTL, cfg.Views.SweepInterval)
	}
	if cfg.Analytics.GA4MeasurementID != "G-TEST" {
		t.Errorf("unexpected analytics id %s", cfg.Analytics.GA4MeasurementID)
	}
}

func TestLoadHonoursCloudRunPort(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{"PORT": "7070"}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Fatalf("expected PORT fallback, got %s", cfg.Server.Port)
	}
}

func TestLoadValidation(t *testing.T) {
	env := map[string]string{
		"CATALOG_WEB_API_BASE_URL": "not a url",
		"CATALOG_WEB_PAGE_SIZE":    "-1",
		"CATALOG_WEB_VIEW_TTL":     "0s",
		"CATALOG_WEB_MAX_VIEWS":    "0",
	}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	want := map[string]bool{"Catalog.APIBaseURL": true, "Catalog.PageSize": true, "Views.TTL": true, "Views.MaxViews": true}
	for _, field := range verr.Fields() {
		delete(want, field)
	}
	if len(want) != 0 {
		t.Fatalf("missing validation fields %v in %v", want, verr.Fields())
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# local overrides\nexport CATALOG_WEB_PAGE_SIZE=6\nCATALOG_WEB_CURRENCY=\"eur\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(path), WithEnvMap(map[string]string{"CATALOG_WEB_CURRENCY": "gbp"}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Catalog.PageSize != 6 {
		t.Errorf("expected page size from .env, got %d", cfg.Catalog.PageSize)
	}
	if cfg.Catalog.Currency != "GBP" {
		t.Errorf("expected env map to win over .env, got %s", cfg.Catalog.Currency)
	}
}
