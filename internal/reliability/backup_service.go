package reliability

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

const backupTimeFormat = "20060102T150405Z"

// BackupService gzips the journal database and uploads it to object
// storage, keeping a bounded number of backups remotely.
type BackupService struct {
	store       ObjectStore
	journalPath string
	keep        int
	log         zerolog.Logger
}

// NewBackupService creates a backup service over the given store.
func NewBackupService(store ObjectStore, journalPath string, keep int, log zerolog.Logger) *BackupService {
	if keep <= 0 {
		keep = 14
	}
	return &BackupService{
		store:       store,
		journalPath: journalPath,
		keep:        keep,
		log:         log.With().Str("component", "backup").Logger(),
	}
}

// CreateAndUploadBackup compresses the journal database and uploads it
// under a timestamped key. Returns the object key.
func (s *BackupService) CreateAndUploadBackup(ctx context.Context) (string, error) {
	f, err := os.Open(s.journalPath)
	if err != nil {
		return "", fmt.Errorf("failed to open journal database: %w", err)
	}
	defer func() { _ = f.Close() }()

	key := fmt.Sprintf("journal-%s.db.gz", time.Now().UTC().Format(backupTimeFormat))

	// Compress into the upload stream through a pipe so the whole
	// database never sits in memory at once.
	pr, pw := io.Pipe()
	go func() {
		gz := gzip.NewWriter(pw)
		if _, err := io.Copy(gz, f); err != nil {
			_ = pw.CloseWithError(fmt.Errorf("failed to compress journal: %w", err))
			return
		}
		if err := gz.Close(); err != nil {
			_ = pw.CloseWithError(fmt.Errorf("failed to finalize compression: %w", err))
			return
		}
		_ = pw.Close()
	}()

	if err := s.store.Upload(ctx, key, pr); err != nil {
		return "", err
	}

	s.log.Info().Str("key", key).Msg("Journal backup uploaded")
	return key, nil
}

// ListBackups returns the stored backups, newest first.
func (s *BackupService) ListBackups(ctx context.Context) ([]ObjectInfo, error) {
	objects, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(objects, func(i, j int) bool {
		return objects[i].LastModified.After(objects[j].LastModified)
	})
	return objects, nil
}

// PruneBackups deletes all but the newest `keep` backups. Returns how
// many objects were removed.
func (s *BackupService) PruneBackups(ctx context.Context) (int, error) {
	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, err
	}
	if len(backups) <= s.keep {
		return 0, nil
	}

	removed := 0
	for _, obj := range backups[s.keep:] {
		if err := s.store.Delete(ctx, obj.Key); err != nil {
			return removed, err
		}
		removed++
	}

	s.log.Info().Int("removed", removed).Int("kept", s.keep).Msg("Pruned old backups")
	return removed, nil
}
