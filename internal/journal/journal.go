// Package journal persists detector runs and their events to SQLite.
// The journal is the system's only durable output: each run is recorded
// with its full configuration, and every flagged event is stored as a
// msgpack blob alongside the indexable columns.
package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/foundups/pqn-detector/internal/database"
	"github.com/foundups/pqn-detector/internal/detector"
)

// schema is applied on startup; both tables are append-only in normal
// operation, with deletion happening only through retention pruning.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    created_at  TIMESTAMP NOT NULL,
    script      TEXT NOT NULL,
    seed        INTEGER NOT NULL,
    config      TEXT NOT NULL,
    steps       INTEGER NOT NULL DEFAULT 0,
    event_count INTEGER NOT NULL DEFAULT 0,
    flag_counts TEXT NOT NULL DEFAULT '{}',
    finished_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS events (
    id      INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id  TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    step    INTEGER NOT NULL,
    t       REAL NOT NULL,
    sym     TEXT NOT NULL,
    flags   TEXT NOT NULL,
    payload BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_run_step ON events(run_id, step);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`

// Run is a journal record for one detector run.
type Run struct {
	ID         string          `json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	Script     string          `json:"script"`
	Seed       int64           `json:"seed"`
	Config     detector.Config `json:"config"`
	Steps      int             `json:"steps"`
	EventCount int             `json:"event_count"`
	FlagCounts map[string]int  `json:"flag_counts"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// Journal handles run and event persistence.
type Journal struct {
	db  *sql.DB
	log zerolog.Logger
}

// New creates a journal on the given database and applies the schema.
func New(db *database.DB, log zerolog.Logger) (*Journal, error) {
	if _, err := db.Conn().Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply journal schema: %w", err)
	}
	return &Journal{
		db:  db.Conn(),
		log: log.With().Str("component", "journal").Logger(),
	}, nil
}

// CreateRun records a new run and returns it with a fresh ID.
func (j *Journal) CreateRun(cfg detector.Config, script string) (*Run, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode run config: %w", err)
	}

	run := &Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Script:    script,
		Seed:      cfg.Seed,
		Config:    cfg,
	}

	_, err = j.db.Exec(
		`INSERT INTO runs (id, created_at, script, seed, config) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt, run.Script, run.Seed, string(cfgJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	j.log.Debug().Str("run_id", run.ID).Str("script", script).Msg("Run created")
	return run, nil
}

// AppendEvents stores a batch of events for a run in one transaction.
func (j *Journal) AppendEvents(runID string, events []detector.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin event transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(
		`INSERT INTO events (run_id, step, t, sym, flags, payload) VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare event insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, ev := range events {
		payload, err := msgpack.Marshal(&ev)
		if err != nil {
			return fmt.Errorf("failed to encode event payload: %w", err)
		}
		if _, err := stmt.Exec(runID, ev.Step, ev.T, ev.Sym, strings.Join(ev.Flags, ","), payload); err != nil {
			return fmt.Errorf("failed to insert event for run %s: %w", runID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit events: %w", err)
	}
	return nil
}

// FinishRun records the run outcome.
func (j *Journal) FinishRun(runID string, steps, eventCount int, flagCounts map[string]int) error {
	if flagCounts == nil {
		flagCounts = map[string]int{}
	}
	countsJSON, err := json.Marshal(flagCounts)
	if err != nil {
		return fmt.Errorf("failed to encode flag counts: %w", err)
	}

	res, err := j.db.Exec(
		`UPDATE runs SET steps = ?, event_count = ?, flag_counts = ?, finished_at = ? WHERE id = ?`,
		steps, eventCount, string(countsJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// GetRun fetches a run by ID. Returns nil if the run doesn't exist (not an error).
func (j *Journal) GetRun(id string) (*Run, error) {
	row := j.db.QueryRow(
		`SELECT id, created_at, script, seed, config, steps, event_count, flag_counts, finished_at
		 FROM runs WHERE id = ?`, id,
	)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (j *Journal) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.Query(
		`SELECT id, created_at, script, seed, config, steps, event_count, flag_counts, finished_at
		 FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// EventsForRun returns a run's events in step order, decoded from their
// msgpack payloads. limit <= 0 returns all events.
func (j *Journal) EventsForRun(runID string, limit int) ([]detector.Event, error) {
	query := `SELECT payload FROM events WHERE run_id = ? ORDER BY step`
	args := []interface{}{runID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for run %s: %w", runID, err)
	}
	defer func() { _ = rows.Close() }()

	var events []detector.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan event payload: %w", err)
		}
		var ev detector.Event
		if err := msgpack.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("failed to decode event payload: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// PruneOlderThan deletes runs (and, via cascade, their events) created
// before the cutoff. Returns the number of runs removed.
func (j *Journal) PruneOlderThan(age time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-age)
	res, err := j.db.Exec(`DELETE FROM runs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	removed, _ := res.RowsAffected()
	if removed > 0 {
		j.log.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("Pruned old runs")
	}
	return removed, nil
}

// scanner abstracts sql.Row and sql.Rows for scanRun.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		run        Run
		cfgJSON    string
		countsJSON string
		finished   sql.NullTime
	)
	err := s.Scan(&run.ID, &run.CreatedAt, &run.Script, &run.Seed, &cfgJSON,
		&run.Steps, &run.EventCount, &countsJSON, &finished)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(cfgJSON), &run.Config); err != nil {
		return nil, fmt.Errorf("failed to decode run config: %w", err)
	}
	if err := json.Unmarshal([]byte(countsJSON), &run.FlagCounts); err != nil {
		return nil, fmt.Errorf("failed to decode flag counts: %w", err)
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
