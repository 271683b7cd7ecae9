// Package store persists watcher state: which offers already alerted and
// at what price, which offers have ended, per-check price samples, and a
// ledger of worker runs.
package store

import (
	"context"
	"time"
)

// OfferState is the alert state of one watched offer.
type OfferState struct {
	Product        string
	OfferID        string
	LastAlertPrice float64
	LastAlertAt    time.Time
}

// PriceSample is one observed price.
type PriceSample struct {
	OfferID   string
	Price     float64
	CheckedAt time.Time
}

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run is one worker check cycle.
type Run struct {
	ID           string
	Status       string
	StartedAt    time.Time
	CompletedAt  time.Time
	Checked      int
	Alerted      int
	SkippedEnded int
	Errors       int
}

// Store is the persistence boundary of the worker.
type Store interface {
	// IsEnded reports whether offerID was marked ended within the last ttl.
	IsEnded(ctx context.Context, offerID string, ttl time.Duration) (bool, error)

	// MarkEnded records offerID as ended now, refreshing any earlier mark.
	MarkEnded(ctx context.Context, offerID string) error

	// LastAlertPrice returns the price offerID last alerted at for product,
	// and whether any alert was recorded.
	LastAlertPrice(ctx context.Context, product, offerID string) (float64, bool, error)

	// RecordAlert upserts the alert state for (product, offerID).
	RecordAlert(ctx context.Context, product, offerID string, price float64) error

	// RecordSample appends a price observation.
	RecordSample(ctx context.Context, sample PriceSample) error

	// CreateRun opens a new run record.
	CreateRun(ctx context.Context) (*Run, error)

	// FinishRun closes a run with its final counters and status.
	FinishRun(ctx context.Context, run *Run) error

	// RecentRuns lists the most recent runs, newest first.
	RecentRuns(ctx context.Context, limit int) ([]Run, error)

	// Close releases the underlying database.
	Close() error
}
