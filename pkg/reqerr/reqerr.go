// Package reqerr defines the single sentinel error HandleStream can
// fail with.
package reqerr

import "errors"

// ErrInvalidRequest means the stream type or id didn't parse. Every
// other failure mode (cancellation, scraper errors, cache errors) is
// absorbed internally and surfaces as an empty, non-error response.
var ErrInvalidRequest = errors.New("invalid stream request")
