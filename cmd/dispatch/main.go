// Command dispatch runs one pass over the unlocked queued requests and
// exits. The host application schedules it (cron, systemd timer) to drain
// the queue; a request that fails stays queued for the next run.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/sungwon/campaign-queue/internal/chimp"
	"github.com/sungwon/campaign-queue/internal/config"
	"github.com/sungwon/campaign-queue/internal/logger"
	"github.com/sungwon/campaign-queue/internal/queue"
	"github.com/sungwon/campaign-queue/internal/storage"
)

func main() {
	configPath := flag.String("config", "config", "path to the configuration directory")
	limit := flag.Int("limit", -1, "max requests to attempt this pass (-1 uses queue.dispatch_limit, 0 means all)")
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

	passLimit := cfg.Queue.DispatchLimit
	if *limit >= 0 {
		passLimit = *limit
	}

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

	conn := chimp.NewClient(chimp.Config{
		Endpoint: cfg.Chimp.Endpoint,
		APIKey:   cfg.Chimp.APIKey,
	}, chimp.NewHTTPClient(cfg.Chimp.Timeout))

	svc := queue.New(storage.New(db.Pool), conn, cfg.Queue.EntityKinds, log)

	var attempted, sent, failed, locked int
	logFailed := false
	for result := range svc.DequeueAndSend(ctx, passLimit) {
		attempted++
		switch {
		case result.Err == nil:
			sent++
		case errors.Is(result.Err, queue.ErrRequestLocked):
			locked++
		default:
			failed++
			if errors.Is(result.Err, queue.ErrLogFailed) {
				logFailed = true
			}
		}
	}

	log.Info().
		Int("attempted", attempted).
		Int("sent", sent).
		Int("failed", failed).
		Int("locked", locked).
		Msg("dispatch pass finished")

	if logFailed {
		// A campaign went out but has no local record; the locked request
		// marks it for reconciliation.
		os.Exit(1)
	}
}
