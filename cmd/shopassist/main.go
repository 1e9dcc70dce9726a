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

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopassist/internal/config"
	logpkg "github.com/kailas-cloud/shopassist/internal/logger"
	"github.com/kailas-cloud/shopassist/internal/metrics"
	"github.com/kailas-cloud/shopassist/internal/repository/source"
	chiTransport "github.com/kailas-cloud/shopassist/internal/transport/chi"
	assistantuc "github.com/kailas-cloud/shopassist/internal/usecase/assistant"
	healthuc "github.com/kailas-cloud/shopassist/internal/usecase/health"
	"github.com/kailas-cloud/shopassist/internal/version"
)

func main() {
	configPath := flag.StringP("config", "c", "", "Path to a config file (default: config/<ENV>.yaml)")
	showVersion := flag.BoolP("version", "v", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Load configuration based on ENV
	env := config.GetEnv()

	var (
		cfg config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting shopassist API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("source_path", cfg.Source.Path),
		zap.Bool("source_cache", cfg.Source.Cache),
		zap.String("assets_dir", cfg.Assets.Dir),
	)

	// Register source metrics explicitly (no init())
	metrics.RegisterSourceMetrics()

	reader := source.NewReader(cfg.Source.Path).
		WithBatchSize(cfg.Source.BatchSize).
		WithMetrics(source.Metrics{
			LoadDuration:  metrics.SourceLoadDuration,
			RecordsLoaded: metrics.SourceRecordsLoaded,
			ErrorsTotal:   metrics.SourceErrorsTotal,
		})
	if err := reader.HealthCheck(context.Background()); err != nil {
		// Requests answer 500 until the file appears.
		logger.Warn("Source file not available yet", zap.Error(err))
	}

	var records assistantuc.RecordSource = reader
	if cfg.Source.Cache {
		records = source.NewCached(reader, reader.Path(), metrics.SourceCacheTotal, logger)
	}

	assets := chiTransport.NewStaticAssets(cfg.Assets.Dir)

	assistantSvc := assistantuc.New(records).WithMatchObserver(metrics.QueryMatches)
	healthSvc := healthuc.New(reader, assets)

	server := chiTransport.NewServer(assistantSvc, healthSvc, logger)
	handler := chiTransport.NewRouter(chiTransport.RouterConfig{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AssetsRoute:    cfg.Assets.Route,
		Assets:         assets,
	}, server, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
