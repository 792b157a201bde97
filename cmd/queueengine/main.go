// Command queueengine runs the per-guild queue orchestration engine: it
// loads configuration, wires the provider registry, fairness tracker,
// queue manager, voice session, and playback pump into an Engine, restores
// any persisted guild queues, serves Prometheus metrics, and blocks until
// SIGINT/SIGTERM triggers an orderly shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/sonanterra/queueengine/internal/config"
	"github.com/sonanterra/queueengine/internal/engine"
	"github.com/sonanterra/queueengine/internal/log"
	"github.com/sonanterra/queueengine/internal/metrics"
	"github.com/sonanterra/queueengine/internal/persistence"
	"github.com/sonanterra/queueengine/internal/provider"
	"github.com/sonanterra/queueengine/internal/voice"
)

var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	metricsAddr := flag.String("metrics-addr", ":9090", "address to serve Prometheus /metrics on")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	log.Configure(log.Config{Level: *logLevel, Service: "queueengine", Version: version})
	logger := log.WithComponent("main")

	cfg, err := config.NewLoader(*configPath).Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := run(cfg, *metricsAddr); err != nil {
		logger.Fatal().Err(err).Msg("fatal error")
	}
}

func run(cfg config.AppConfig, metricsAddr string) error {
	logger := log.WithComponent("main")

	store, err := persistence.NewFileStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open persistence store: %w", err)
	}

	registry := buildRegistry(cfg)

	// A production build replaces MemorySession with a Streamer backed by
	// a real voice gateway client; no such transport exists in scope here.
	session := voice.NewMemorySession(voice.FuncStreamer(func(ctx context.Context, channelHandle, url string) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	idleDetach := time.Duration(cfg.IdleDetachSeconds) * time.Second
	eng := engine.New(store, registry, cfg.FairnessConfig(), cfg.MaxQueueLength, session, idleDetach, cfg.MaxTrackDurationSeconds)

	if err := eng.Start(); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	metricsServer := &http.Server{
		Addr:              metricsAddr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		logger.Info().Str("addr", metricsAddr).Msg("serving metrics")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := eng.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("engine shutdown reported an error")
	}

	return g.Wait()
}

func buildRegistry(cfg config.AppConfig) *provider.Registry {
	var providers []provider.Provider
	if cfg.Providers.YouTube.Enabled {
		providers = append(providers, provider.NewYouTube(nil))
	}
	if cfg.Providers.Bilibili.Enabled {
		providers = append(providers, provider.NewBilibili(nil))
	}
	if cfg.Providers.Netease.Enabled {
		providers = append(providers, provider.NewNetease(provider.NeteaseConfig{
			ProxyURL:     cfg.Providers.Netease.ProxyURL,
			MemberCookie: cfg.Providers.Netease.MemberCookie,
		}, nil))
	}
	if cfg.Providers.SoundCloud.Enabled {
		providers = append(providers, provider.NewSoundCloud(nil))
	}
	if cfg.Providers.Catbox.Enabled {
		providers = append(providers, provider.NewCatbox())
	}
	if cfg.Providers.Generic.Enabled {
		providers = append(providers, provider.NewGeneric())
	}
	return provider.NewRegistry(metrics.NewBreakerObserver(), providers...)
}
