package scheduler

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundups/pqn-detector/internal/database"
	"github.com/foundups/pqn-detector/internal/detector"
	"github.com/foundups/pqn-detector/internal/journal"
	"github.com/foundups/pqn-detector/internal/reliability"
)

func newTestJournal(t *testing.T) (*journal.Journal, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "journal.db")
	db, err := database.New(database.Config{
		Path:    path,
		Profile: database.ProfileJournal,
		Name:    "journal",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	j, err := journal.New(db, zerolog.Nop())
	require.NoError(t, err)
	return j, path
}

type memStore struct {
	uploads []string
}

func (m *memStore) Upload(_ context.Context, key string, body io.Reader) error {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return err
	}
	m.uploads = append(m.uploads, key)
	return nil
}

func (m *memStore) List(_ context.Context) ([]reliability.ObjectInfo, error) {
	var out []reliability.ObjectInfo
	for _, key := range m.uploads {
		out = append(out, reliability.ObjectInfo{Key: key})
	}
	return out, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	for i, k := range m.uploads {
		if k == key {
			m.uploads = append(m.uploads[:i], m.uploads[i+1:]...)
			break
		}
	}
	return nil
}

func TestRetentionJob_PrunesOldRuns(t *testing.T) {
	j, _ := newTestJournal(t)

	_, err := j.CreateRun(detector.DefaultConfig(), ".")
	require.NoError(t, err)

	// A large window keeps the fresh run.
	job := NewRetentionJob(j, 30, zerolog.Nop())
	require.NoError(t, job.Run())
	runs, err := j.ListRuns(10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRetentionJob_ZeroRetentionDisabled(t *testing.T) {
	j, _ := newTestJournal(t)

	_, err := j.CreateRun(detector.DefaultConfig(), ".")
	require.NoError(t, err)

	job := NewRetentionJob(j, 0, zerolog.Nop())
	require.NoError(t, job.Run())

	runs, err := j.ListRuns(10)
	require.NoError(t, err)
	assert.Len(t, runs, 1, "zero retention should not prune anything")
}

func TestBackupJob_UploadsJournal(t *testing.T) {
	_, path := newTestJournal(t)

	store := &memStore{}
	svc := reliability.NewBackupService(store, path, 5, zerolog.Nop())
	job := NewBackupJob(svc, zerolog.Nop())

	require.NoError(t, job.Run())
	require.Len(t, store.uploads, 1)
	assert.Contains(t, store.uploads[0], "journal-")
}
