package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"tradeindex/internal/app"
	"tradeindex/internal/config"
	"tradeindex/internal/logging"
	"tradeindex/internal/metrics"
	"tradeindex/internal/model"
	"tradeindex/internal/sources"
	"tradeindex/internal/store"
	"tradeindex/internal/store/sqlite"
	transport "tradeindex/internal/transport/http"
)

func main() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config (optional)")
	addr := fs.String("addr", "", "listen address (overrides config)")
	dbPath := fs.String("db", "", "sqlite database path (overrides config)")
	fs.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "server config failed:", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "server logging failed:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	st, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	refs, err := app.LoadReferences(ctx, cfg.Lookups)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	srcs := map[model.Feed]sources.Source{
		model.FeedInstitute: store.NewSource(st, model.FeedInstitute),
		model.FeedCurated:   store.NewSource(st, model.FeedCurated),
	}
	svc, err := app.NewService(cfg, srcs, refs, logger, m)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      transport.NewRouter(transport.NewHandler(svc, logger), m, reg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.Server.Addr).Info("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	logger.Info("shutting down")
	return server.Shutdown(shutdownCtx)
}
