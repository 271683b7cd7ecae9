package scrape

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Default browser settings.
const (
	defaultBrowserTimeout = 30 * time.Second
	viewportWidth         = 1280
	viewportHeight        = 720
)

// BrowserOptions configures the shared browser runtime.
type BrowserOptions struct {
	// Headless controls whether Chromium runs without a visible window.
	// Workers always want true; false helps local debugging.
	Headless bool

	// Timeout is the default per-operation timeout.
	Timeout time.Duration

	// InstallDriver downloads the Playwright driver and browsers on Start
	// when they are missing. Container images usually ship them already.
	InstallDriver bool
}

// Browser owns the Playwright runtime and a single headless Chromium
// instance shared by all fetches. Each fetch gets its own page.
type Browser struct {
	mu      sync.Mutex
	opts    BrowserOptions
	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
	started bool
}

// NewBrowser creates an unstarted browser runtime.
func NewBrowser(opts BrowserOptions) *Browser {
	if opts.Timeout == 0 {
		opts.Timeout = defaultBrowserTimeout
	}
	return &Browser{opts: opts}
}

// Start launches Playwright and Chromium. Safe to call once; subsequent
// calls are no-ops.
func (b *Browser) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return nil
	}

	// Driver output goes nowhere: it would interleave with worker logs.
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if b.opts.InstallDriver {
		if err := playwright.Install(runOpts); err != nil {
			return fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(b.opts.Headless),
	})
	if err != nil {
		pw.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(UserAgent),
		Locale:    playwright.String("pl-PL"),
		Viewport: &playwright.Size{
			Width:  viewportWidth,
			Height: viewportHeight,
		},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return fmt.Errorf("failed to create browser context: %w", err)
	}

	b.pw = pw
	b.browser = browser
	b.bctx = bctx
	b.started = true
	return nil
}

// Stop closes the browser and shuts the Playwright runtime down.
// Safe to call multiple times.
func (b *Browser) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return nil
	}
	b.started = false

	_ = b.bctx.Close()
	_ = b.browser.Close()
	if err := b.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

// newPage opens a fresh page in the shared context.
func (b *Browser) newPage() (playwright.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return nil, fmt.Errorf("browser not started")
	}
	page, err := b.bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	page.SetDefaultTimeout(float64(b.opts.Timeout.Milliseconds()))
	return page, nil
}

// BrowserFetcher reads offer pages through the shared headless browser.
// Rendered pages expose prices that plain HTTP responses sometimes hide
// behind client-side templates.
type BrowserFetcher struct {
	browser     *Browser
	urlTemplate string
}

// NewBrowserFetcher creates a fetcher over an already constructed Browser.
// The browser is started lazily on first fetch.
func NewBrowserFetcher(browser *Browser, urlTemplate string) *BrowserFetcher {
	return &BrowserFetcher{browser: browser, urlTemplate: urlTemplate}
}

// Fetch implements Fetcher.
func (f *BrowserFetcher) Fetch(ctx context.Context, offerID string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := f.browser.Start(); err != nil {
		return Result{}, err
	}

	url := OfferURL(f.urlTemplate, offerID)

	page, err := f.browser.newPage()
	if err != nil {
		return Result{}, fmt.Errorf("offer %s: %w", offerID, err)
	}
	defer page.Close()

	resp, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return Result{}, fmt.Errorf("offer %s: navigation failed: %w", offerID, err)
	}
	if resp != nil {
		if err := classifyStatus(offerID, resp.Status()); err != nil {
			return Result{}, err
		}
	}

	content, err := page.Content()
	if err != nil {
		return Result{}, fmt.Errorf("offer %s: reading page content: %w", offerID, err)
	}
	return classifyPage(offerID, url, content)
}
