package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfferURL(t *testing.T) {
	assert.Equal(t, "https://allegro.pl/oferta/123", OfferURL("", "123"))
	assert.Equal(t, "https://example.test/o/123", OfferURL("https://example.test/o/%s", "123"))
}

func TestValidateURLTemplate(t *testing.T) {
	assert.NoError(t, ValidateURLTemplate(""))
	assert.NoError(t, ValidateURLTemplate("https://example.test/o/%s"))
	assert.Error(t, ValidateURLTemplate("https://example.test/o/"))
	assert.Error(t, ValidateURLTemplate("https://example.test/%s/%s"))
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    float64
		wantErr error
	}{
		{
			name:   "price from page",
			status: http.StatusOK,
			body:   offerPageJSONLD,
			want:   39.99,
		},
		{
			name:    "forbidden means captcha",
			status:  http.StatusForbidden,
			body:    "",
			wantErr: ErrCaptchaSuspected,
		},
		{
			name:    "too many requests means captcha",
			status:  http.StatusTooManyRequests,
			body:    "",
			wantErr: ErrCaptchaSuspected,
		},
		{
			name:    "not found means ended",
			status:  http.StatusNotFound,
			body:    "",
			wantErr: ErrOfferEnded,
		},
		{
			name:    "gone means ended",
			status:  http.StatusGone,
			body:    "",
			wantErr: ErrOfferEnded,
		},
		{
			name:    "captcha body on 200",
			status:  http.StatusOK,
			body:    "Potwierdź, że nie jesteś robotem",
			wantErr: ErrCaptchaSuspected,
		},
		{
			name:    "ended body on 200",
			status:  http.StatusOK,
			body:    "Ta oferta została zakończona",
			wantErr: ErrOfferEnded,
		},
		{
			name:    "no price anywhere",
			status:  http.StatusOK,
			body:    "<html><body>pusto</body></html>",
			wantErr: ErrNoPrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			f := NewHTTPFetcher(srv.Client(), srv.URL+"/oferta/%s")
			res, err := f.Fetch(context.Background(), "12345678901")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "12345678901", res.OfferID)
			assert.InDelta(t, tt.want, res.Price, 0.001)
			assert.False(t, res.CheckedAt.IsZero())
		})
	}
}

// flakyFetcher fails with captcha errors a fixed number of times, then
// succeeds.
type flakyFetcher struct {
	failures int
	calls    int
}

func (f *flakyFetcher) Fetch(ctx context.Context, offerID string) (Result, error) {
	f.calls++
	if f.calls <= f.failures {
		return Result{}, fmt.Errorf("offer %s: %w", offerID, ErrCaptchaSuspected)
	}
	return Result{OfferID: offerID, Price: 10, CheckedAt: time.Now()}, nil
}

func TestRetryingFetcher_RecoversFromCaptcha(t *testing.T) {
	inner := &flakyFetcher{failures: 2}
	var delays []time.Duration
	f := &RetryingFetcher{
		Inner:        inner,
		BackoffStart: time.Millisecond,
		BackoffMax:   4 * time.Millisecond,
		OnBackoff: func(_ string, d time.Duration) {
			delays = append(delays, d)
		},
	}

	res, err := f.Fetch(context.Background(), "12345678901")
	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls)
	assert.InDelta(t, 10.0, res.Price, 0.001)
	require.Len(t, delays, 2)
	assert.Equal(t, time.Millisecond, delays[0])
	assert.Equal(t, 2*time.Millisecond, delays[1])
}

func TestRetryingFetcher_MaxAttempts(t *testing.T) {
	inner := &flakyFetcher{failures: 100}
	f := &RetryingFetcher{
		Inner:        inner,
		BackoffStart: time.Microsecond,
		BackoffMax:   time.Microsecond,
		MaxAttempts:  3,
	}

	_, err := f.Fetch(context.Background(), "12345678901")
	assert.ErrorIs(t, err, ErrCaptchaSuspected)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingFetcher_ContextCancel(t *testing.T) {
	inner := &flakyFetcher{failures: 100}
	f := &RetryingFetcher{
		Inner:        inner,
		BackoffStart: time.Hour,
		BackoffMax:   time.Hour,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Fetch(ctx, "12345678901")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryingFetcher_PassesThroughOtherErrors(t *testing.T) {
	f := &RetryingFetcher{Inner: fetcherFunc(func(ctx context.Context, id string) (Result, error) {
		return Result{}, fmt.Errorf("offer %s: %w", id, ErrOfferEnded)
	})}
	_, err := f.Fetch(context.Background(), "12345678901")
	assert.ErrorIs(t, err, ErrOfferEnded)
}

// fetcherFunc adapts a function to the Fetcher interface.
type fetcherFunc func(ctx context.Context, offerID string) (Result, error)

func (f fetcherFunc) Fetch(ctx context.Context, offerID string) (Result, error) {
	return f(ctx, offerID)
}
