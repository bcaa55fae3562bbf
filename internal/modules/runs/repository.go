// Package runs persists optimization run history.
package runs

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/allocator/internal/database"
	"github.com/aristath/allocator/internal/modules/optimization"
	"github.com/aristath/allocator/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS optimization_runs (
	id              TEXT PRIMARY KEY,
	created_at      TEXT NOT NULL,
	request         TEXT NOT NULL,
	weights         TEXT NOT NULL,
	success         INTEGER NOT NULL,
	status          TEXT NOT NULL,
	expected_return REAL NOT NULL,
	volatility      REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_optimization_runs_created_at
	ON optimization_runs(created_at DESC);
`

// Repository stores optimization runs in the runs database.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates the repository and applies its schema.
func NewRepository(db *database.DB, log zerolog.Logger) (*Repository, error) {
	conn := db.Conn()
	if _, err := conn.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply runs schema: %w", err)
	}
	return &Repository{
		db:  conn,
		log: logger.Component(log, "runs_repository"),
	}, nil
}

// Save inserts one completed run.
func (r *Repository) Save(rec *optimization.RunRecord) error {
	requestJSON, err := json.Marshal(rec.Request)
	if err != nil {
		return fmt.Errorf("failed to marshal run request: %w", err)
	}
	weightsJSON, err := json.Marshal(rec.Weights)
	if err != nil {
		return fmt.Errorf("failed to marshal run weights: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO optimization_runs
			(id, created_at, request, weights, success, status, expected_return, volatility)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.CreatedAt.Format(time.RFC3339Nano),
		string(requestJSON),
		string(weightsJSON),
		boolToInt(rec.Success),
		rec.Status,
		rec.Return,
		rec.Volatility,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", rec.ID, err)
	}
	return nil
}

// Latest returns the most recent run, or nil when the table is empty.
func (r *Repository) Latest() (*optimization.RunRecord, error) {
	recs, err := r.List(1)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}

// List returns up to limit runs, newest first.
func (r *Repository) List(limit int) ([]*optimization.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(
		`SELECT id, created_at, request, weights, success, status, expected_return, volatility
		 FROM optimization_runs
		 ORDER BY created_at DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var recs []*optimization.RunRecord
	for rows.Next() {
		var (
			rec         optimization.RunRecord
			createdAt   string
			requestJSON string
			weightsJSON string
			success     int
		)
		if err := rows.Scan(&rec.ID, &createdAt, &requestJSON, &weightsJSON,
			&success, &rec.Status, &rec.Return, &rec.Volatility); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}

		rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse run timestamp %q: %w", createdAt, err)
		}
		if err := json.Unmarshal([]byte(requestJSON), &rec.Request); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run request: %w", err)
		}
		if err := json.Unmarshal([]byte(weightsJSON), &rec.Weights); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run weights: %w", err)
		}
		rec.Success = success != 0

		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

// LatestRequest returns the request of the most recent run, or nil when no
// run has been stored yet. Used by the scheduled re-optimization job.
func (r *Repository) LatestRequest() (*optimization.Request, error) {
	rec, err := r.Latest()
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	req := rec.Request
	return &req, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
