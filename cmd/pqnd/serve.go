package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/foundups/pqn-detector/internal/config"
	"github.com/foundups/pqn-detector/internal/database"
	"github.com/foundups/pqn-detector/internal/ensemble"
	"github.com/foundups/pqn-detector/internal/journal"
	"github.com/foundups/pqn-detector/internal/reliability"
	"github.com/foundups/pqn-detector/internal/scheduler"
	"github.com/foundups/pqn-detector/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API with the SQLite journal and maintenance jobs",
	Long: `Starts the detector service: an HTTP API for executing and querying
runs, a SQLite journal for results, scheduled journal retention, and
optional backups to S3-compatible storage.

Configuration comes from the PQN_* environment variables, with an
optional .env file in the working directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			log.Error().Err(err).Msg("Failed to load configuration")
			return err
		}

		log.Info().Str("data_dir", cfg.DataDir).Msg("Starting pqnd service")

		db, err := database.New(database.Config{
			Path:    cfg.JournalPath(),
			Profile: database.ProfileJournal,
			Name:    "journal",
		})
		if err != nil {
			log.Error().Err(err).Msg("Failed to open journal database")
			return err
		}
		defer func() { _ = db.Close() }()

		j, err := journal.New(db, log)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize journal")
			return err
		}

		sched := scheduler.New(log)
		if err := sched.AddJob(cfg.PruneSchedule, scheduler.NewRetentionJob(j, cfg.RetentionDays, log)); err != nil {
			log.Error().Err(err).Msg("Failed to register retention job")
			return err
		}

		if cfg.Backup != nil && cfg.Backup.Enabled {
			store, err := reliability.NewS3Client(cmd.Context(), cfg.Backup, log)
			if err != nil {
				log.Error().Err(err).Msg("Failed to initialize backup storage")
				return err
			}
			backups := reliability.NewBackupService(store, cfg.JournalPath(), cfg.Backup.Keep, log)
			if err := sched.AddJob(cfg.Backup.Schedule, scheduler.NewBackupJob(backups, log)); err != nil {
				log.Error().Err(err).Msg("Failed to register backup job")
				return err
			}
		}

		sched.Start()
		defer sched.Stop()

		srv := server.New(server.Config{
			Log:       log,
			Cfg:       cfg,
			JournalDB: db,
			Journal:   j,
			Runner:    ensemble.NewRunner(cfg.EnsembleWorkers, log),
		})

		errCh := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			log.Error().Err(err).Msg("HTTP server failed")
			return err
		case sig := <-quit:
			log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Graceful shutdown failed")
			return err
		}

		log.Info().Msg("Service stopped")
		return nil
	},
}
