package scrape

import "errors"

var (
	// ErrCaptchaSuspected indicates the marketplace answered with a
	// captcha challenge or a rate-limit status. The offer may still be
	// live; callers should back off and retry.
	ErrCaptchaSuspected = errors.New("captcha or rate limit suspected")

	// ErrOfferEnded indicates the offer has ended or was removed.
	ErrOfferEnded = errors.New("offer ended or removed")

	// ErrNoPrice indicates the page loaded but no price could be found.
	ErrNoPrice = errors.New("no price found on page")
)
