package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/offerwatch/offerwatch/pkg/alert"
	"github.com/offerwatch/offerwatch/pkg/config"
	"github.com/offerwatch/offerwatch/pkg/logging"
	"github.com/offerwatch/offerwatch/pkg/scrape"
	"github.com/offerwatch/offerwatch/pkg/store"
	"github.com/offerwatch/offerwatch/pkg/worker"
)

const version = "1.0.0"

var cfgFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "offerwatch",
		Short:         "Watch marketplace offers for price drops",
		Long:          "offerwatch checks Allegro offers listed in watchlist files and mails an alert when a price drops to or below its threshold.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "path to config file (default offerwatch.yaml)")
	pf.String("watch-dir", ".", "directory with watchlist *.txt files")
	pf.String("target-file", "", "restrict checking to a single watchlist file")
	pf.String("include", "*.txt", "glob for watchlist file names")
	pf.String("state-path", "offerwatch.db", "path to the state database")
	pf.String("fetcher", config.FetcherBrowser, "price fetcher: browser or http")
	pf.Bool("headless", true, "run the browser headless")
	pf.Bool("install-driver", false, "install the Playwright driver on startup")
	pf.String("offer-url", scrape.DefaultOfferURLTemplate, "offer page URL template with one %s")
	pf.Int("batch-size", 25, "offers fetched per batch")
	pf.Int("concurrency", 1, "concurrent fetches inside a batch")
	pf.Int("max-per-run", 0, "cap on offers checked per run (0 = unlimited)")
	pf.Duration("base-delay", 800*time.Millisecond, "fixed delay between fetches")
	pf.Duration("jitter", 800*time.Millisecond, "random extra delay between fetches")
	pf.Duration("backoff-start", 5*time.Second, "initial captcha backoff")
	pf.Duration("backoff-max", 15*time.Minute, "captcha backoff cap")
	pf.Duration("recheck-ended", 72*time.Hour, "how long ended offers stay skipped")
	pf.Duration("interval", 15*time.Minute, "time between worker runs")
	pf.Duration("heartbeat", 60*time.Second, "heartbeat log period while idle")
	pf.Bool("alerts-enabled", true, "send alert mail")
	pf.Bool("verbose", false, "enable debug logging")

	root.AddCommand(
		newRunCmd(),
		newWorkerCmd(),
		newListCmd(),
		newStatusCmd(),
		newInitCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig builds the effective configuration for a command invocation.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := logging.Init(cfg.Verbose); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildFetcher assembles the configured fetcher wrapped with captcha
// backoff. The returned cleanup stops the browser when one was started.
func buildFetcher(cfg *config.Config, log *logging.Logger) (scrape.Fetcher, func(), error) {
	var inner scrape.Fetcher
	cleanup := func() {}

	switch cfg.Fetcher {
	case config.FetcherBrowser:
		browser := scrape.NewBrowser(scrape.BrowserOptions{
			Headless:      cfg.Headless,
			InstallDriver: cfg.InstallDriver,
		})
		inner = scrape.NewBrowserFetcher(browser, cfg.OfferURL)
		cleanup = func() {
			if err := browser.Stop(); err != nil {
				log.Warnf("browser shutdown: %v", err)
			}
		}
	case config.FetcherHTTP:
		inner = scrape.NewHTTPFetcher(&http.Client{Timeout: 30 * time.Second}, cfg.OfferURL)
	default:
		return nil, nil, fmt.Errorf("unknown fetcher %q", cfg.Fetcher)
	}

	return &scrape.RetryingFetcher{
		Inner:        inner,
		BackoffStart: cfg.BackoffStart,
		BackoffMax:   cfg.BackoffMax,
		OnBackoff: func(offerID string, delay time.Duration) {
			log.Warnf("offer %s: captcha or rate limit suspected, backing off %s", offerID, delay)
		},
	}, cleanup, nil
}

// buildSender picks the alert sender. Disabled alerting gets a no-op.
func buildSender(cfg *config.Config, log *logging.Logger) (alert.Sender, error) {
	if !cfg.AlertsEnabled {
		log.Warnf("alerting disabled, price drops will only be logged")
		return alert.NopSender{}, nil
	}
	sender, err := alert.NewEmailSender(alert.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
		To:       cfg.SMTP.To,
		Subject:  cfg.SMTP.Subject,
	})
	if err != nil {
		return nil, fmt.Errorf("smtp configuration: %w", err)
	}
	return sender, nil
}

// buildWorker opens the store and assembles a ready worker. The returned
// cleanup closes everything in reverse order.
func buildWorker(cfg *config.Config) (*worker.Worker, func(), error) {
	log := logging.NewLogger("worker")

	st, err := store.Open(cfg.StatePath)
	if err != nil {
		return nil, nil, err
	}

	fetcher, stopFetcher, err := buildFetcher(cfg, log)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	sender, err := buildSender(cfg, log)
	if err != nil {
		stopFetcher()
		st.Close()
		return nil, nil, err
	}

	w, err := worker.New(worker.Options{
		Watchlist: watchlistOptions(cfg),
		Fetcher:   fetcher,
		Store:     st,
		Sender:    sender,
		Pacer: scrape.Pacer{
			Base:   cfg.BaseDelay,
			Jitter: cfg.Jitter,
		},
		BatchSize:    cfg.BatchSize,
		Concurrency:  cfg.Concurrency,
		MaxPerRun:    cfg.MaxPerRun,
		RecheckEnded: cfg.RecheckEnded,
		OfferURL:     cfg.OfferURL,
		Log:          log,
	})
	if err != nil {
		stopFetcher()
		st.Close()
		return nil, nil, err
	}

	cleanup := func() {
		stopFetcher()
		if err := st.Close(); err != nil {
			log.Warnf("state store close: %v", err)
		}
	}
	return w, cleanup, nil
}
