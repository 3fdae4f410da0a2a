package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/annomerge/internal/api"
	"github.com/dgallion1/annomerge/internal/config"
	"github.com/dgallion1/annomerge/internal/logging"
	"github.com/dgallion1/annomerge/internal/pipeline"
	"github.com/dgallion1/annomerge/internal/tagger"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the tagger client. Without TAGGER_URL only merge jobs and
	// the synchronous endpoints are available.
	var (
		tg        *tagger.Client
		jobTagger pipeline.Tagger
	)
	if cfg.TaggerURL != "" {
		tg = tagger.NewClient(cfg.TaggerURL, cfg.TaggerAPIKey, cfg.TaggerTimeout)
		jobTagger = tg
	} else {
		log.Warn("TAGGER_URL not set, tag jobs are disabled")
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, jobTagger, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, tg, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if tg != nil {
			tg.Close()
		}
	}()

	log.Info("starting annomerge", "port", cfg.Port, "workers", cfg.WorkerCount, "tagger", cfg.TaggerURL)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
