package entrysearch

import "github.com/kailas-cloud/entrysearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrContentSource   = domain.ErrContentSource
	ErrDecode          = domain.ErrDecode
	ErrInvalidPageSize = domain.ErrInvalidPageSize
	ErrInvalidPage     = domain.ErrInvalidPage
	ErrClosed          = domain.ErrClosed
)

// StatusError carries the non-2xx status returned by the content source.
// It matches ErrContentSource with errors.Is.
type StatusError = domain.StatusError
