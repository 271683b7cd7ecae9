// Package worker drives the check pipeline: load watchlists, fetch
// current prices, compare against thresholds, alert, and persist state.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/offerwatch/offerwatch/pkg/alert"
	"github.com/offerwatch/offerwatch/pkg/logging"
	"github.com/offerwatch/offerwatch/pkg/scrape"
	"github.com/offerwatch/offerwatch/pkg/store"
	"github.com/offerwatch/offerwatch/pkg/watchlist"
)

// Options wires the worker's collaborators and run shaping.
type Options struct {
	// Watchlist selects which files are loaded each run.
	Watchlist watchlist.Options

	// Fetcher retrieves offer prices. Wrap with scrape.RetryingFetcher to
	// get captcha backoff.
	Fetcher scrape.Fetcher

	// Store persists alert state, the ended cache, samples, and runs.
	Store store.Store

	// Sender delivers the per-run alert batch.
	Sender alert.Sender

	// Pacer spaces fetches out. The zero value disables pacing.
	Pacer scrape.Pacer

	// BatchSize is how many offers are fetched per batch. Minimum 1.
	BatchSize int

	// Concurrency bounds simultaneous fetches inside a batch. Minimum 1.
	Concurrency int

	// MaxPerRun caps offers checked per run; 0 means no cap.
	MaxPerRun int

	// RecheckEnded is how long an ended offer stays skipped.
	RecheckEnded time.Duration

	// OfferURL is the offer page URL template; empty means the default.
	OfferURL string

	// Log defaults to a "worker" component logger.
	Log *logging.Logger
}

// Worker runs price checks.
type Worker struct {
	opts Options
	log  *logging.Logger
}

// New validates the options and creates a worker.
func New(opts Options) (*Worker, error) {
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("worker: fetcher is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("worker: store is required")
	}
	if opts.Sender == nil {
		opts.Sender = alert.NopSender{}
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	log := opts.Log
	if log == nil {
		log = logging.NewLogger("worker")
	}
	return &Worker{opts: opts, log: log}, nil
}

// observation pairs a watchlist entry with its fetch outcome.
type observation struct {
	entry  watchlist.Entry
	result scrape.Result
	err    error
}

// RunOnce performs a single full check and returns the recorded run.
func (w *Worker) RunOnce(ctx context.Context) (*store.Run, error) {
	run, err := w.opts.Store.CreateRun(ctx)
	if err != nil {
		return nil, err
	}

	entries, alerts, err := w.check(ctx, run)
	if err != nil {
		run.Status = store.RunStatusFailed
		if ferr := w.opts.Store.FinishRun(ctx, run); ferr != nil {
			w.log.Errorf("failed to record failed run: %v", ferr)
		}
		return run, err
	}

	if len(alerts) > 0 {
		w.log.Infof("found %d underpriced offers, sending alert mail", len(alerts))
		if serr := w.opts.Sender.Send(ctx, alerts); serr != nil {
			w.log.Errorf("alert delivery failed: %v", serr)
			run.Errors++
		} else {
			for _, a := range alerts {
				if rerr := w.opts.Store.RecordAlert(ctx, a.Product, a.OfferID, a.Price); rerr != nil {
					w.log.Errorf("failed to record alert state: %v", rerr)
					run.Errors++
				}
			}
			run.Alerted = len(alerts)
		}
	} else {
		w.log.Infof("no underpriced offers")
	}

	run.Checked = len(entries)
	if err := w.opts.Store.FinishRun(ctx, run); err != nil {
		return run, err
	}
	w.log.Infof("run %s done: checked=%d alerted=%d skipped_ended=%d errors=%d",
		run.ID, run.Checked, run.Alerted, run.SkippedEnded, run.Errors)
	return run, nil
}

// check loads the watchlists and fetches every eligible offer, returning
// the entries actually checked and the alerts to send.
func (w *Worker) check(ctx context.Context, run *store.Run) ([]watchlist.Entry, []alert.Alert, error) {
	entries, parseErrs, err := watchlist.Load(w.opts.Watchlist)
	if err != nil {
		return nil, nil, fmt.Errorf("loading watchlists: %w", err)
	}
	for _, perr := range parseErrs {
		w.log.Warnf("watchlist: %v", perr)
		run.Errors++
	}
	w.log.Infof("loaded %d watchlist entries", len(entries))
	if len(entries) == 0 {
		return nil, nil, nil
	}

	entries, err = w.filterEnded(ctx, run, entries)
	if err != nil {
		return nil, nil, err
	}

	if w.opts.MaxPerRun > 0 && len(entries) > w.opts.MaxPerRun {
		w.log.Infof("per-run quota %d reached, deferring %d offers",
			w.opts.MaxPerRun, len(entries)-w.opts.MaxPerRun)
		entries = entries[:w.opts.MaxPerRun]
	}

	observations := w.fetchAll(ctx, entries)
	if err := ctx.Err(); err != nil {
		return entries, nil, err
	}

	alerts := w.evaluate(ctx, run, observations)
	return entries, alerts, nil
}

// filterEnded drops entries whose offers are inside the ended-cache TTL.
func (w *Worker) filterEnded(ctx context.Context, run *store.Run, entries []watchlist.Entry) ([]watchlist.Entry, error) {
	if w.opts.RecheckEnded <= 0 {
		return entries, nil
	}
	kept := entries[:0]
	for _, e := range entries {
		ended, err := w.opts.Store.IsEnded(ctx, e.OfferID, w.opts.RecheckEnded)
		if err != nil {
			return nil, err
		}
		if ended {
			run.SkippedEnded++
			continue
		}
		kept = append(kept, e)
	}
	if run.SkippedEnded > 0 {
		w.log.Infof("temporarily skipping %d ended offers (TTL %s)",
			run.SkippedEnded, w.opts.RecheckEnded)
	}
	return kept, nil
}

// fetchAll fetches prices batch by batch with bounded concurrency.
// Individual failures are carried in the observations, never aborting the
// run; only context cancellation stops early.
func (w *Worker) fetchAll(ctx context.Context, entries []watchlist.Entry) []observation {
	observations := make([]observation, 0, len(entries))
	var mu sync.Mutex

	batches := chunk(entries, w.opts.BatchSize)
	for i, batch := range batches {
		if ctx.Err() != nil {
			break
		}
		start := time.Now()

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(w.opts.Concurrency)
		for _, e := range batch {
			g.Go(func() error {
				if err := w.opts.Pacer.Wait(gctx); err != nil {
					return nil
				}
				res, err := w.opts.Fetcher.Fetch(gctx, e.OfferID)
				mu.Lock()
				observations = append(observations, observation{entry: e, result: res, err: err})
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait() // goroutines never return errors, outcomes are collected

		w.log.Infof("batch %d/%d done in %.1fs (%d offers)",
			i+1, len(batches), time.Since(start).Seconds(), len(batch))
	}
	return observations
}

// evaluate records samples, marks ended offers, and picks the alerts.
// An alert fires when the price is at or below the threshold and either no
// alert was recorded before or the price dropped below the last alerted one.
func (w *Worker) evaluate(ctx context.Context, run *store.Run, observations []observation) []alert.Alert {
	var alerts []alert.Alert
	for _, obs := range observations {
		e := obs.entry
		if obs.err != nil {
			switch {
			case errors.Is(obs.err, context.Canceled), errors.Is(obs.err, context.DeadlineExceeded):
				// Shutdown in progress; not an offer-level failure.
			case errors.Is(obs.err, scrape.ErrOfferEnded):
				w.log.Infof("offer %s ended, caching for %s", e.OfferID, w.opts.RecheckEnded)
				if merr := w.opts.Store.MarkEnded(ctx, e.OfferID); merr != nil {
					w.log.Errorf("failed to cache ended offer %s: %v", e.OfferID, merr)
					run.Errors++
				}
			default:
				w.log.Warnf("offer %s check failed: %v", e.OfferID, obs.err)
				run.Errors++
			}
			continue
		}

		if serr := w.opts.Store.RecordSample(ctx, store.PriceSample{
			OfferID:   e.OfferID,
			Price:     obs.result.Price,
			CheckedAt: obs.result.CheckedAt,
		}); serr != nil {
			w.log.Errorf("failed to record sample for %s: %v", e.OfferID, serr)
			run.Errors++
		}

		w.log.Debugf("offer %s price=%.2f threshold=%.2f (%s:%d)",
			e.OfferID, obs.result.Price, e.MinPrice, e.File, e.Line)

		if obs.result.Price > e.MinPrice {
			continue
		}
		last, found, lerr := w.opts.Store.LastAlertPrice(ctx, e.Product, e.OfferID)
		if lerr != nil {
			w.log.Errorf("failed to read alert state for %s: %v", e.OfferID, lerr)
			run.Errors++
			continue
		}
		if found && obs.result.Price >= last {
			w.log.Debugf("offer %s already alerted at %.2f, skipping", e.OfferID, last)
			continue
		}
		alerts = append(alerts, alert.Alert{
			Product:  e.Product,
			OfferID:  e.OfferID,
			Price:    obs.result.Price,
			MinPrice: e.MinPrice,
			URL:      scrape.OfferURL(w.opts.OfferURL, e.OfferID),
		})
	}
	return alerts
}

// chunk splits entries into batches of at most size.
func chunk(entries []watchlist.Entry, size int) [][]watchlist.Entry {
	var batches [][]watchlist.Entry
	for len(entries) > size {
		batches = append(batches, entries[:size])
		entries = entries[size:]
	}
	if len(entries) > 0 {
		batches = append(batches, entries)
	}
	return batches
}
