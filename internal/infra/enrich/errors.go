// Package enrich upgrades thin feed excerpts by fetching the linked page and
// extracting its abstract or main text. Enrichment is best-effort: any
// failure leaves the original excerpt in place.
package enrich

import "errors"

var (
	// ErrInvalidURL indicates the item link failed validation.
	ErrInvalidURL = errors.New("invalid url")

	// ErrPrivateIP indicates the hostname resolved to a private address.
	ErrPrivateIP = errors.New("url resolves to private ip")

	// ErrTooManyRedirects indicates the redirect limit was hit.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrBodyTooLarge indicates the page exceeded the size limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrNoContent indicates no usable abstract or article text was found.
	ErrNoContent = errors.New("no readable content found")
)
