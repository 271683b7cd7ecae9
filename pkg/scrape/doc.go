// Package scrape fetches current offer prices from the marketplace.
//
// Prices are read from offer pages either through a headless Playwright
// browser or plain HTTP. Extraction prefers JSON-LD offer metadata and
// falls back to the lowest price literal in the page text. The package
// does not try to defeat bot protection: a suspected captcha or rate
// limit surfaces as ErrCaptchaSuspected so callers can back off.
package scrape
