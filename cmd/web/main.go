package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"finitefield.org/catalog-web/internal/config"
	"finitefield.org/catalog-web/internal/observability"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "web: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("web", pflag.ContinueOnError)
	addr := flags.String("addr", "", "HTTP listen address (default :$CATALOG_WEB_PORT)")
	templatesDir := flags.String("templates", "templates", "templates directory")
	publicDir := flags.String("public", "public", "public assets directory")
	envFile := flags.String("env-file", ".env", "optional .env file with local overrides")
	if err := flags.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, config.WithEnvFile(*envFile))
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	a, err := newApp(cfg, appOptions{
		TemplatesDir: *templatesDir,
		PublicDir:    *publicDir,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	listen := *addr
	if listen == "" {
		listen = ":" + cfg.Server.Port
	}
	srv := &http.Server{
		Addr:              listen,
		Handler:           a.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("web listening",
			zap.String("addr", listen),
			zap.Bool("dev", cfg.Dev),
			zap.String("env", cfg.Env),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return a.registry.Run(gctx, cfg.Views.SweepInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Unmount views first so listing requests parked on a fetch return.
		if err := a.registry.Close(shutdownCtx); err != nil {
			logger.Warn("close views", zap.Error(err))
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info("web stopped")
		return nil
	})
	return g.Wait()
}
