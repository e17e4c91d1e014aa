package main

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"finitefield.org/catalog-web/internal/catalog"
	"finitefield.org/catalog-web/internal/cms"
	"finitefield.org/catalog-web/internal/config"
	"finitefield.org/catalog-web/internal/handlers"
	"finitefield.org/catalog-web/internal/i18n"
	mw "finitefield.org/catalog-web/internal/middleware"
	"finitefield.org/catalog-web/internal/observability"
)

// appOptions carries filesystem locations and test seams.
type appOptions struct {
	TemplatesDir string
	PublicDir    string
	Logger       *zap.Logger
	// Fetcher overrides the configured product source.
	Fetcher catalog.Fetcher
	// RequestTimeout bounds every request; zero uses the default.
	RequestTimeout time.Duration
}

// app wires configuration, the view registry and rendering together.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	bundle    *i18n.Bundle
	render    *renderer
	fetcher   catalog.Fetcher
	registry  *catalog.Registry
	library   *cms.Library
	sessions  *mw.Sessions
	analytics handlers.Analytics
	publicDir string
	timeout   time.Duration
}

func newApp(cfg config.Config, opts appOptions) (*app, error) {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NoopLogger()
	}

	locales := make([]string, 0, len(cfg.Site.Locales))
	for _, l := range cfg.Site.Locales {
		if l = strings.TrimSpace(l); l != "" {
			locales = append(locales, l)
		}
	}
	bundle, err := i18n.Load(cfg.Site.LocalesDir, cfg.Site.DefaultLocale, locales)
	if err != nil {
		return nil, err
	}

	rend, err := newRenderer(opts.TemplatesDir, cfg.Dev, bundle)
	if err != nil {
		return nil, err
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher, err = newFetcher(cfg.Catalog, logger)
		if err != nil {
			return nil, err
		}
	}

	registry := catalog.NewRegistry(fetcher,
		catalog.WithViewTTL(cfg.Views.TTL),
		catalog.WithMaxViews(cfg.Views.MaxViews),
		catalog.WithViewPageSize(cfg.Catalog.PageSize),
		catalog.WithRegistryLogger(logger.Named("views")),
	)

	cacheTTL := 5 * time.Minute
	if cfg.Dev {
		cacheTTL = 0
	}

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		bundle:    bundle,
		render:    rend,
		fetcher:   fetcher,
		registry:  registry,
		library:   cms.NewLibrary(cfg.Site.ContentDir, bundle.Fallback(), cacheTTL),
		sessions:  mw.NewSessions(mw.SessionOptions{
			SigningKey: cfg.Session.SigningKey,
			BlockKey:   cfg.Session.BlockKey,
			Secure:     cfg.IsProd(),
			Logger:     logger,
		}),
		analytics: handlers.AnalyticsFromConfig(cfg.Analytics),
		publicDir: opts.PublicDir,
		timeout:   timeout,
	}, nil
}

// newFetcher picks the HTTP catalog when an API is configured, else fixtures.
func newFetcher(cfg config.CatalogConfig, logger *zap.Logger) (catalog.Fetcher, error) {
	opts := []catalog.FetcherOption{
		catalog.WithLogger(logger),
		catalog.WithFetchTimeout(cfg.FetchTimeout),
	}
	if cfg.APIBaseURL == "" {
		logger.Info("no catalog api configured; serving fixture products", zap.String("fixture", cfg.FixturePath))
		return catalog.NewFixtureFetcher(cfg.FixturePath, opts...), nil
	}
	f, err := catalog.NewHTTPFetcher(cfg.APIBaseURL, cfg.ProductPath, opts...)
	if err != nil {
		return nil, err
	}
	logger.Info("catalog api configured", zap.String("endpoint", f.Endpoint()))
	return f, nil
}

func (a *app) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	// RealIP trusts X-Forwarded-For; only deploy behind a proxy that sets it.
	r.Use(chimw.RealIP)
	r.Use(observability.InjectLogger(a.logger))
	r.Use(mw.HTMX)
	r.Use(mw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(a.timeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})
	r.Handle("/assets/*", mw.AssetsWithCache("/assets", filepath.Join(a.publicDir, "assets")))

	r.Group(func(r chi.Router) {
		r.Use(a.sessions.Session)
		r.Use(mw.Locale(a.bundle))
		r.Use(a.sessions.CSRF)
		r.Use(mw.VaryLocale)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/products", http.StatusFound)
		})
		r.Get("/product/{id}", a.productDetail)

		r.Route("/products", func(r chi.Router) {
			r.Use(mw.NoStore)
			r.Get("/", a.productsPage)
			r.Route("/views/{viewID}", func(r chi.Router) {
				r.Get("/", a.viewPage)
				r.Delete("/", a.unmountView)
				r.Get("/listing", a.listingFragment)
				r.Post("/sort", a.selectSort)
				r.Post("/sort/menu", a.toggleSortMenu)
				r.Post("/filters/open", a.openFilters)
				r.Post("/filters/close", a.closeFilters)
				r.Post("/filters", a.applyFilters)
				r.Post("/page", a.setPage)
			})
		})
		r.NotFound(a.notFound)
	})
	return r
}
