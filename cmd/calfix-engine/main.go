package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/ravimadlani/calfix-sub002/internal/api"
	"github.com/ravimadlani/calfix-sub002/internal/cache"
	"github.com/ravimadlani/calfix-sub002/internal/config"
	"github.com/ravimadlani/calfix-sub002/internal/engine"
	"github.com/ravimadlani/calfix-sub002/internal/ics"
	"github.com/ravimadlani/calfix-sub002/internal/metrics"
	"github.com/ravimadlani/calfix-sub002/internal/repo"
	"github.com/ravimadlani/calfix-sub002/internal/services"
	"github.com/ravimadlani/calfix-sub002/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting calfix-engine", slog.String("address", cfg.Server.Address))

	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Debug(fmt.Sprintf(format, args...))
	})); err != nil {
		logger.Warn("could not adjust GOMAXPROCS", slog.Any("error", err))
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	cacheProvider := buildCache(cfg.Cache, logger)
	defer cacheProvider.Close()

	var eventSource repo.EventSource
	if cfg.Provider.BaseURL != "" {
		eventSource = repo.NewProviderClient(
			cfg.Provider.BaseURL,
			cfg.Provider.EventsPath,
			cfg.Provider.APIKey,
			cfg.Provider.Timeout,
		)
	}

	analyzer := engine.NewAnalyzer(logger, cfg.Analysis.Thresholds())
	analyticsService := services.NewAnalyticsService(logger, analyzer, eventSource, cacheProvider, cfg.Cache.ResultTTL)

	var refresher *services.Refresher
	if len(cfg.ICS.Sources) > 0 {
		sources := make([]ics.Source, 0, len(cfg.ICS.Sources))
		for _, src := range cfg.ICS.Sources {
			sources = append(sources, ics.Source{ID: src.ID, URL: src.URL, OwnerEmail: src.OwnerEmail})
		}
		loader := ics.NewLoader(sources, cfg.ICS.Timeout, logger)
		refresher = services.NewRefresher(logger, analyticsService, loader, cacheProvider, cfg.ICS.RefreshCron)
		if err := refresher.Start(); err != nil {
			logger.Error("failed to start refresh job", slog.Any("error", err))
			os.Exit(1)
		}
	}

	handler := api.NewHandler(logger, analyticsService)
	server, err := api.NewServer(cfg.Server, handler.Routes())
	if err != nil {
		logger.Error("failed to create HTTP server", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("HTTP server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	if refresher != nil {
		refresher.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("calfix-engine stopped")
}

func buildCache(cfg config.CacheConfig, logger *slog.Logger) cache.Provider {
	if !cfg.Enabled {
		return cache.NoopProvider{}
	}
	switch cfg.Kind {
	case "valkey":
		if cfg.Addr == "" {
			logger.Warn("valkey cache enabled without an address, falling back to memory")
			return cache.NewMemoryProvider()
		}
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:         cfg.Addr,
			Username:     cfg.Username,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			MaxRetries:   cfg.MaxRetries,
			TLS:          cfg.TLS,
		})
		if err != nil {
			logger.Warn("valkey cache unavailable, falling back to memory", slog.Any("error", err))
			return cache.NewMemoryProvider()
		}
		return provider
	default:
		return cache.NewMemoryProvider()
	}
}
