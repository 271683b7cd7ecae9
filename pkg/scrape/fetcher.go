package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// UserAgent identifies the watcher to the marketplace. Single, slow
// requests only; this is deliberately not a browser impersonation.
const UserAgent = "Mozilla/5.0 (compatible; OfferWatch/1.0; price-worker)"

// DefaultOfferURLTemplate builds the offer page URL from an offer ID.
const DefaultOfferURLTemplate = "https://allegro.pl/oferta/%s"

// Result is one successful price observation.
type Result struct {
	OfferID   string
	Price     float64
	URL       string
	CheckedAt time.Time
}

// Fetcher retrieves the current price of a single offer.
type Fetcher interface {
	Fetch(ctx context.Context, offerID string) (Result, error)
}

// OfferURL renders the offer page URL for an ID using the template, which
// must contain a single %s verb. Empty template means the default.
func OfferURL(template, offerID string) string {
	if template == "" {
		template = DefaultOfferURLTemplate
	}
	return fmt.Sprintf(template, offerID)
}

// classifyPage turns a fetched page body into a Result or a sentinel error.
// Shared by the HTTP and browser fetchers.
func classifyPage(offerID, url, body string) (Result, error) {
	if SuspectsCaptcha(body) {
		return Result{}, fmt.Errorf("offer %s: %w", offerID, ErrCaptchaSuspected)
	}
	price, err := ExtractPrice(body)
	if err != nil {
		if LooksEnded(body) {
			return Result{}, fmt.Errorf("offer %s: %w", offerID, ErrOfferEnded)
		}
		return Result{}, fmt.Errorf("offer %s: %w", offerID, err)
	}
	return Result{
		OfferID:   offerID,
		Price:     price,
		URL:       url,
		CheckedAt: time.Now().UTC(),
	}, nil
}

// classifyStatus maps throttling and gone statuses to sentinel errors.
func classifyStatus(offerID string, status int) error {
	switch {
	case status == http.StatusForbidden || status == http.StatusTooManyRequests:
		return fmt.Errorf("offer %s: HTTP %d: %w", offerID, status, ErrCaptchaSuspected)
	case status == http.StatusNotFound || status == http.StatusGone:
		return fmt.Errorf("offer %s: HTTP %d: %w", offerID, status, ErrOfferEnded)
	case status >= 400:
		return fmt.Errorf("offer %s: unexpected HTTP %d", offerID, status)
	}
	return nil
}

// HTTPFetcher reads offer pages with plain HTTP requests.
type HTTPFetcher struct {
	client      *http.Client
	urlTemplate string
}

// NewHTTPFetcher creates an HTTP fetcher. A nil client gets a 30s-timeout
// default.
func NewHTTPFetcher(client *http.Client, urlTemplate string) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPFetcher{client: client, urlTemplate: urlTemplate}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, offerID string) (Result, error) {
	url := OfferURL(f.urlTemplate, offerID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, fmt.Errorf("offer %s: building request: %w", offerID, err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept-Language", "pl-PL,pl;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("offer %s: request failed: %w", offerID, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(offerID, resp.StatusCode); err != nil {
		return Result{}, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return Result{}, fmt.Errorf("offer %s: reading body: %w", offerID, err)
	}
	return classifyPage(offerID, url, string(body))
}

// RetryingFetcher wraps a Fetcher and retries in place with exponential
// backoff whenever a captcha or rate limit is suspected. All other errors
// pass through. Retrying stops when ctx is cancelled or MaxAttempts is
// reached (0 means no attempt limit).
type RetryingFetcher struct {
	Inner        Fetcher
	BackoffStart time.Duration
	BackoffMax   time.Duration
	MaxAttempts  int

	// OnBackoff, if set, is called with the offer ID and the delay before
	// each backoff sleep. Used for logging.
	OnBackoff func(offerID string, delay time.Duration)
}

// Fetch implements Fetcher.
func (f *RetryingFetcher) Fetch(ctx context.Context, offerID string) (Result, error) {
	backoff := NewBackoff(f.BackoffStart, f.BackoffMax)
	attempts := 0
	for {
		res, err := f.Inner.Fetch(ctx, offerID)
		if err == nil || !errors.Is(err, ErrCaptchaSuspected) {
			return res, err
		}
		attempts++
		if f.MaxAttempts > 0 && attempts >= f.MaxAttempts {
			return Result{}, fmt.Errorf("offer %s: giving up after %d attempts: %w", offerID, attempts, ErrCaptchaSuspected)
		}
		delay := backoff.Next()
		if f.OnBackoff != nil {
			f.OnBackoff(offerID, delay)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return Result{}, serr
		}
	}
}

// ValidateURLTemplate rejects templates that cannot render an offer URL.
func ValidateURLTemplate(template string) error {
	if template == "" {
		return nil
	}
	if strings.Count(template, "%s") != 1 {
		return fmt.Errorf("offer URL template %q must contain exactly one %%s", template)
	}
	return nil
}
