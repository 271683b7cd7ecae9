package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store over a local SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the SQLite database at path and runs pending
// migrations. Use ":memory:" for an in-memory database.
func Open(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// IsEnded implements Store.
func (s *SQLiteStore) IsEnded(ctx context.Context, offerID string, ttl time.Duration) (bool, error) {
	var markedAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT marked_at FROM ended_offers WHERE offer_id = ?`, offerID,
	).Scan(&markedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query ended offer: %w", err)
	}
	return time.Since(markedAt) < ttl, nil
}

// MarkEnded implements Store.
func (s *SQLiteStore) MarkEnded(ctx context.Context, offerID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ended_offers (offer_id, marked_at) VALUES (?, ?)
		 ON CONFLICT (offer_id) DO UPDATE SET marked_at = excluded.marked_at`,
		offerID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to mark offer ended: %w", err)
	}
	return nil
}

// LastAlertPrice implements Store.
func (s *SQLiteStore) LastAlertPrice(ctx context.Context, product, offerID string) (float64, bool, error) {
	var price float64
	err := s.db.QueryRowContext(ctx,
		`SELECT last_alert_price FROM offer_state WHERE product = ? AND offer_id = ?`,
		product, offerID,
	).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query offer state: %w", err)
	}
	return price, true, nil
}

// RecordAlert implements Store.
func (s *SQLiteStore) RecordAlert(ctx context.Context, product, offerID string, price float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO offer_state (product, offer_id, last_alert_price, last_alert_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (product, offer_id) DO UPDATE SET
		   last_alert_price = excluded.last_alert_price,
		   last_alert_at = excluded.last_alert_at`,
		product, offerID, price, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record alert: %w", err)
	}
	return nil
}

// RecordSample implements Store.
func (s *SQLiteStore) RecordSample(ctx context.Context, sample PriceSample) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO price_samples (offer_id, price, checked_at) VALUES (?, ?, ?)`,
		sample.OfferID, sample.Price, sample.CheckedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record price sample: %w", err)
	}
	return nil
}

// CreateRun implements Store.
func (s *SQLiteStore) CreateRun(ctx context.Context) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, started_at) VALUES (?, ?, ?)`,
		run.ID, run.Status, run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// FinishRun implements Store.
func (s *SQLiteStore) FinishRun(ctx context.Context, run *Run) error {
	if run.CompletedAt.IsZero() {
		run.CompletedAt = time.Now().UTC()
	}
	if run.Status == RunStatusRunning {
		run.Status = RunStatusCompleted
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, completed_at = ?, checked = ?, alerted = ?,
		   skipped_ended = ?, errors = ? WHERE id = ?`,
		run.Status, run.CompletedAt, run.Checked, run.Alerted,
		run.SkippedEnded, run.Errors, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// RecentRuns implements Store.
func (s *SQLiteStore) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, started_at, completed_at, checked, alerted, skipped_ended, errors
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var completedAt sql.NullTime
		if err := rows.Scan(&run.ID, &run.Status, &run.StartedAt, &completedAt,
			&run.Checked, &run.Alerted, &run.SkippedEnded, &run.Errors); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if completedAt.Valid {
			run.CompletedAt = completedAt.Time
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}
