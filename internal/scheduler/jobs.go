package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/foundups/pqn-detector/internal/journal"
	"github.com/foundups/pqn-detector/internal/reliability"
)

const jobTimeout = 10 * time.Minute

// RetentionJob prunes journal runs older than the retention window.
type RetentionJob struct {
	journal       *journal.Journal
	retentionDays int
	log           zerolog.Logger
}

// NewRetentionJob creates a retention job. A retention of zero days
// disables pruning entirely.
func NewRetentionJob(j *journal.Journal, retentionDays int, log zerolog.Logger) *RetentionJob {
	return &RetentionJob{
		journal:       j,
		retentionDays: retentionDays,
		log:           log.With().Str("component", "retention_job").Logger(),
	}
}

func (j *RetentionJob) Name() string { return "journal_retention" }

func (j *RetentionJob) Run() error {
	if j.retentionDays <= 0 {
		return nil
	}

	age := time.Duration(j.retentionDays) * 24 * time.Hour
	removed, err := j.journal.PruneOlderThan(age)
	if err != nil {
		return fmt.Errorf("retention prune failed: %w", err)
	}
	j.log.Info().Int64("removed", removed).Int("retention_days", j.retentionDays).Msg("Retention prune finished")
	return nil
}

// BackupJob uploads a journal backup and prunes old remote copies.
type BackupJob struct {
	backups *reliability.BackupService
	log     zerolog.Logger
}

// NewBackupJob creates a backup job over the given backup service.
func NewBackupJob(backups *reliability.BackupService, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		backups: backups,
		log:     log.With().Str("component", "backup_job").Logger(),
	}
}

func (j *BackupJob) Name() string { return "journal_backup" }

func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	key, err := j.backups.CreateAndUploadBackup(ctx)
	if err != nil {
		return fmt.Errorf("backup upload failed: %w", err)
	}

	if _, err := j.backups.PruneBackups(ctx); err != nil {
		return fmt.Errorf("backup prune failed: %w", err)
	}

	j.log.Info().Str("key", key).Msg("Backup cycle finished")
	return nil
}
