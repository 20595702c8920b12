package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/salience/internal/config"
	"github.com/lazypower/salience/internal/logging"
	"github.com/lazypower/salience/internal/memstore"
	"github.com/lazypower/salience/internal/metrics"
	"github.com/lazypower/salience/internal/server"
	"github.com/lazypower/salience/internal/track"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the salience daemon",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfgPath, err := config.DefaultPath()
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	cfg, loadErr := config.Load(cfgPath)

	log := logging.New(os.Stderr, cfg.LogLevel)
	if loadErr != nil {
		log.Warn().Msg(loadErr.Error())
	}
	if cfg.MemoryService.Endpoint == "" {
		log.Warn().Msg("no memory service endpoint configured; retrieval will return nothing")
	}

	met := metrics.New()

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath, err = track.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve db path: %w", err)
		}
	}
	db, err := track.Open(dbPath)
	if err != nil {
		// Session tracking is additive; run without it rather than refuse
		// to start.
		log.Warn().Err(err).Str("path", dbPath).Msg("session tracking disabled")
		db = nil
	} else {
		defer db.Close()
	}

	store := memstore.NewClient(
		cfg.MemoryService.Endpoint,
		cfg.MemoryService.APIKey,
		cfg.MemoryService.InsecureTLS,
		log,
		memstore.WithMetrics(met),
	)

	srv := server.New(cfg, store, db, log, met, VersionString())
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", addr).Str("db", dbPath).Msg("salience serving")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			os.Exit(1)
		}
	}()

	<-done
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}
