// Package store records collation runs in a libsql database: one row per run
// and one row per collated batch.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/chatllms-go/chatllms/collator"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "github.com/tursodatabase/go-libsql"
)

var (
	// ErrRunNotFound is returned for run ids the store has never seen.
	ErrRunNotFound = errors.New("run not found")
	// ErrInvalidDSN is returned when the DSN is empty.
	ErrInvalidDSN = errors.New("invalid store dsn")
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		ignore_index INTEGER NOT NULL,
		config TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		finished_at TEXT,
		error TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS batches (
		run_id TEXT NOT NULL REFERENCES runs(id),
		batch_index INTEGER NOT NULL,
		rows INTEGER NOT NULL,
		cols INTEGER NOT NULL,
		tokens INTEGER NOT NULL,
		label_tokens INTEGER NOT NULL,
		PRIMARY KEY (run_id, batch_index)
	)`,
}

// Run status values.
const (
	StatusRunning  = "running"
	StatusFinished = "finished"
	StatusFailed   = "failed"
)

// RunConfig is persisted as JSON alongside a run.
type RunConfig struct {
	Dataset   string          `json:"dataset"`
	Tokenizer string          `json:"tokenizer"`
	BatchSize int             `json:"batch_size"`
	Collator  collator.Config `json:"collator"`
}

// Summary aggregates the batches recorded for a run.
type Summary struct {
	RunID     uuid.UUID
	StartedAt time.Time
	Config    RunConfig
	Status    string
	// FinishedAt is zero while the run is still running.
	FinishedAt time.Time
	// Error holds the failure message of a failed run.
	Error   string
	Batches int
	Rows    int
	// Cells is the sum of rows*cols, padding included.
	Cells       int
	Tokens      int
	LabelTokens int
}

// Store wraps the libsql connection.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger

	mu      sync.RWMutex
	ignores map[uuid.UUID]int64
}

// Open connects to dsn and creates the schema. File DSNs get their parent
// directory created.
func Open(ctx context.Context, dsn string, logger zerolog.Logger) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, ErrInvalidDSN
	}
	if path, ok := strings.CutPrefix(dsn, "file:"); ok {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", dsn, err)
	}
	if err := initialize(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	logger.Debug().Str("dsn", dsn).Msg("Store opened")
	return &Store{db: db, logger: logger, ignores: make(map[uuid.UUID]int64)}, nil
}

func initialize(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for initialization: %w", err)
	}
	defer tx.Rollback()
	for _, statement := range schema {
		if _, err := tx.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return tx.Commit()
}

// Close releases the connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun inserts a new run and returns its id.
func (s *Store) StartRun(ctx context.Context, cfg RunConfig) (uuid.UUID, error) {
	id := uuid.New()
	raw, err := sonic.Marshal(cfg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode run config: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, ignore_index, config, status) VALUES (?, ?, ?, ?, ?)`,
		id.String(), time.Now().UTC().Format(time.RFC3339Nano), cfg.Collator.IgnoreIndex, string(raw), StatusRunning)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert run: %w", err)
	}

	s.mu.Lock()
	s.ignores[id] = cfg.Collator.IgnoreIndex
	s.mu.Unlock()

	s.logger.Info().Str("run_id", id.String()).Str("dataset", cfg.Dataset).Msg("Run started")
	return id, nil
}

// FinishRun marks the run finished, or failed with runErr's message when
// runErr is non-nil.
func (s *Store) FinishRun(ctx context.Context, runID uuid.UUID, runErr error) error {
	status, msg := StatusFinished, sql.NullString{}
	if runErr != nil {
		status, msg = StatusFailed, sql.NullString{String: runErr.Error(), Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, error = ? WHERE id = ?`,
		status, time.Now().UTC().Format(time.RFC3339Nano), msg, runID.String())
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	ev := s.logger.Info()
	if runErr != nil {
		ev = s.logger.Warn().Str("error", runErr.Error())
	}
	ev.Str("run_id", runID.String()).Str("status", status).Msg("Run finished")
	return nil
}

// RecordBatch stores the shape and token counts of batch idx.
func (s *Store) RecordBatch(ctx context.Context, runID uuid.UUID, idx int, b *collator.Batch) error {
	ignore, err := s.ignoreIndex(ctx, runID)
	if err != nil {
		return err
	}
	rows, cols := b.Shape()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO batches (run_id, batch_index, rows, cols, tokens, label_tokens) VALUES (?, ?, ?, ?, ?, ?)`,
		runID.String(), idx, rows, cols, b.NumTokens(), b.NumLabelTokens(ignore))
	if err != nil {
		return fmt.Errorf("failed to insert batch %d: %w", idx, err)
	}
	return nil
}

func (s *Store) ignoreIndex(ctx context.Context, runID uuid.UUID) (int64, error) {
	s.mu.RLock()
	ignore, ok := s.ignores[runID]
	s.mu.RUnlock()
	if ok {
		return ignore, nil
	}

	err := s.db.QueryRowContext(ctx, `SELECT ignore_index FROM runs WHERE id = ?`, runID.String()).Scan(&ignore)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query run: %w", err)
	}

	s.mu.Lock()
	s.ignores[runID] = ignore
	s.mu.Unlock()
	return ignore, nil
}

// RunSummary aggregates everything recorded for runID.
func (s *Store) RunSummary(ctx context.Context, runID uuid.UUID) (*Summary, error) {
	var (
		startedAt, raw, status string
		finishedAt, runErr     sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT started_at, config, status, finished_at, error FROM runs WHERE id = ?`, runID.String()).
		Scan(&startedAt, &raw, &status, &finishedAt, &runErr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	sum := &Summary{RunID: runID, Status: status, Error: runErr.String}
	if sum.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return nil, fmt.Errorf("failed to parse run start time: %w", err)
	}
	if finishedAt.Valid {
		if sum.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt.String); err != nil {
			return nil, fmt.Errorf("failed to parse run finish time: %w", err)
		}
	}
	if err := sonic.UnmarshalString(raw, &sum.Config); err != nil {
		return nil, fmt.Errorf("failed to decode run config: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(rows), 0),
			COALESCE(SUM(rows * cols), 0),
			COALESCE(SUM(tokens), 0),
			COALESCE(SUM(label_tokens), 0)
		FROM batches WHERE run_id = ?`, runID.String()).
		Scan(&sum.Batches, &sum.Rows, &sum.Cells, &sum.Tokens, &sum.LabelTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate batches: %w", err)
	}
	return sum, nil
}
