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

	"github.com/sungwon/campaign-queue/internal/api"
	"github.com/sungwon/campaign-queue/internal/chimp"
	"github.com/sungwon/campaign-queue/internal/config"
	"github.com/sungwon/campaign-queue/internal/logger"
	"github.com/sungwon/campaign-queue/internal/queue"
	"github.com/sungwon/campaign-queue/internal/storage"
)

func main() {
	configPath := flag.String("config", "config", "path to the configuration directory")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewFromConfig(logger.Config{
		Level:     cfg.Logging.Level,
		Output:    cfg.Logging.Output,
		FilePath:  cfg.Logging.FilePath,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	})
	log.Info().Msg("starting campaign-queue API server")

	ctx := context.Background()
	db, err := storage.NewDB(
		ctx,
		cfg.Database.URL,
		cfg.Database.PoolMin,
		cfg.Database.PoolMax,
		cfg.Database.ConnectTimeout,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	log.Info().Msg("database connection established")

	queries := storage.New(db.Pool)

	conn := chimp.NewClient(chimp.Config{
		Endpoint: cfg.Chimp.Endpoint,
		APIKey:   cfg.Chimp.APIKey,
	}, chimp.NewHTTPClient(cfg.Chimp.Timeout))

	svc := queue.New(queries, conn, cfg.Queue.EntityKinds, log)

	if cfg.API.APIKeyHash == "" {
		log.Warn().Msg("api.api_key_hash is not set; admin API is served without authentication")
	}

	router := api.NewRouter(queries, db, svc, cfg.API.APIKeyHash, log)

	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("API server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
