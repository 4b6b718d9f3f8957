// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reliability

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/search-gateway/pkg/types"
)

// Store persists provider statistics in a SQLite database, one row per
// provider name.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the statistics database at path, creating
// parent directories and the schema as needed.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating stats directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening stats database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS provider_stats (
		provider_name TEXT PRIMARY KEY,
		requests_total INTEGER NOT NULL DEFAULT 0,
		requests_success INTEGER NOT NULL DEFAULT 0,
		requests_failed INTEGER NOT NULL DEFAULT 0,
		failure_rate REAL NOT NULL DEFAULT 0,
		avg_response_time_ms INTEGER NOT NULL DEFAULT 0,
		last_success TEXT,
		last_failure TEXT,
		last_error TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("executing schema statement: %w", err)
	}
	return nil
}

// LoadAll reads every persisted record. Used at startup to seed the
// in-memory tracker.
func (s *Store) LoadAll() ([]types.ProviderStats, error) {
	rows, err := s.db.Query(`SELECT provider_name, requests_total, requests_success,
		requests_failed, failure_rate, avg_response_time_ms,
		last_success, last_failure, last_error, updated_at
		FROM provider_stats ORDER BY provider_name`)
	if err != nil {
		return nil, fmt.Errorf("querying provider stats: %w", err)
	}
	defer rows.Close()

	var all []types.ProviderStats
	for rows.Next() {
		var (
			st                     types.ProviderStats
			lastSuccess, lastFail  sql.NullString
			updatedAt              string
		)
		if err := rows.Scan(&st.ProviderName, &st.RequestsTotal, &st.RequestsSuccess,
			&st.RequestsFailed, &st.FailureRate, &st.AvgResponseTimeMs,
			&lastSuccess, &lastFail, &st.LastError, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning provider stats: %w", err)
		}
		if t, ok := parseTimePtr(lastSuccess); ok {
			st.LastSuccess = t
		}
		if t, ok := parseTimePtr(lastFail); ok {
			st.LastFailure = t
		}
		if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
			st.UpdatedAt = t
		}
		all = append(all, st)
	}
	return all, rows.Err()
}

// Upsert writes one provider record, replacing any existing row for the
// same provider name.
func (s *Store) Upsert(st types.ProviderStats) error {
	_, err := s.db.Exec(`INSERT INTO provider_stats
		(provider_name, requests_total, requests_success, requests_failed,
		 failure_rate, avg_response_time_ms, last_success, last_failure,
		 last_error, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider_name) DO UPDATE SET
		 requests_total = excluded.requests_total,
		 requests_success = excluded.requests_success,
		 requests_failed = excluded.requests_failed,
		 failure_rate = excluded.failure_rate,
		 avg_response_time_ms = excluded.avg_response_time_ms,
		 last_success = excluded.last_success,
		 last_failure = excluded.last_failure,
		 last_error = excluded.last_error,
		 updated_at = excluded.updated_at`,
		st.ProviderName, st.RequestsTotal, st.RequestsSuccess, st.RequestsFailed,
		st.FailureRate, st.AvgResponseTimeMs,
		formatTimePtr(st.LastSuccess), formatTimePtr(st.LastFailure),
		st.LastError, st.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upserting stats for %s: %w", st.ProviderName, err)
	}
	return nil
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

func parseTimePtr(s sql.NullString) (*time.Time, bool) {
	if !s.Valid || s.String == "" {
		return nil, false
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil, false
	}
	return &t, true
}
