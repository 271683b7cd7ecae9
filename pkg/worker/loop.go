package worker

import (
	"context"
	"errors"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/offerwatch/offerwatch/pkg/logging"
)

// watchlistDebounce coalesces bursts of file events into one extra run.
const watchlistDebounce = 2 * time.Second

// Loop runs the worker forever: once immediately, then on every interval
// tick, plus an extra run when the watchlist directory changes.
type Loop struct {
	// Worker performs the checks.
	Worker *Worker

	// Interval is the time between scheduled runs.
	Interval time.Duration

	// Heartbeat is how often the wait is logged while idle.
	Heartbeat time.Duration

	// WatchDir, when set, is watched for changes that trigger an
	// immediate extra run.
	WatchDir string

	// Log defaults to a "loop" component logger.
	Log *logging.Logger
}

// Run blocks until ctx is cancelled. A failing run is logged and the loop
// keeps going; only cancellation ends it.
func (l *Loop) Run(ctx context.Context) error {
	log := l.Log
	if log == nil {
		log = logging.NewLogger("loop")
	}

	var fileEvents chan fsnotify.Event
	var fileErrors chan error
	if l.WatchDir != "" {
		fw, err := fsnotify.NewWatcher()
		if err != nil {
			log.Warnf("watchlist watching disabled: %v", err)
		} else if err := fw.Add(l.WatchDir); err != nil {
			log.Warnf("watchlist watching disabled for %s: %v", l.WatchDir, err)
			fw.Close()
		} else {
			defer fw.Close()
			fileEvents = fw.Events
			fileErrors = fw.Errors
		}
	}

	// Debounce timer starts disarmed.
	debounce := time.NewTimer(time.Hour)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	log.Infof("worker loop started (interval %s)", l.Interval)

	runOnce := func() {
		start := time.Now()
		if _, err := l.Worker.RunOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Errorf("run failed: %v", err)
		}
		log.Infof("check finished in %.1fs", time.Since(start).Seconds())
	}

	runOnce()
	nextRun := time.Now().Add(l.Interval)

	interval := time.NewTimer(l.Interval)
	defer interval.Stop()
	heartbeat := time.NewTicker(l.Heartbeat)
	defer heartbeat.Stop()

	reschedule := func() {
		runOnce()
		nextRun = time.Now().Add(l.Interval)
		if !interval.Stop() {
			select {
			case <-interval.C:
			default:
			}
		}
		interval.Reset(l.Interval)
	}

	for {
		select {
		case <-ctx.Done():
			log.Infof("worker loop stopping")
			return ctx.Err()

		case <-interval.C:
			reschedule()

		case <-heartbeat.C:
			left := time.Until(nextRun).Round(time.Second)
			if left < 0 {
				left = 0
			}
			log.Infof("waiting for next cycle… %s left", left)

		case ev, ok := <-fileEvents:
			if !ok {
				fileEvents = nil
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			log.Infof("watchlist change detected (%s), scheduling extra run", ev.Name)
			debounce.Reset(watchlistDebounce)

		case err, ok := <-fileErrors:
			if !ok {
				fileErrors = nil
				continue
			}
			log.Warnf("watchlist watcher error: %v", err)

		case <-debounce.C:
			reschedule()
		}
	}
}
