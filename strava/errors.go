package strava

import (
	"errors"
	"fmt"
)

// ErrDuplicateActivity is benign: the content already exists remotely
// under another upload. Callers must delete the local file and must
// not retry.
var ErrDuplicateActivity = errors.New("strava: duplicate activity")

// ErrProcessingTimeout means the status poll loop gave up before the
// remote service reached a terminal state. The file is retained.
var ErrProcessingTimeout = errors.New("strava: upload processing timed out")

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("strava: uploader closed")

// AuthError is a 401 that survived the single forced-refresh retry.
type AuthError struct {
	Op string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("strava: unauthorized during %s", e.Op)
}

// RateLimitError is a 429. No internal backoff; the caller decides
// whether and when to retry.
type RateLimitError struct {
	Op string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("strava: rate limited during %s", e.Op)
}

// StatusError is any other non-2xx response.
type StatusError struct {
	Op     string
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("strava: %s returned %d: %s", e.Op, e.Code, e.Detail)
}

// UploadError is a terminal, non-duplicate processing error reported
// by the upload-status endpoint. The file is retained for retry.
type UploadError struct {
	Detail string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("strava: upload rejected: %s", e.Detail)
}

// IsBenign reports whether the caller should treat the outcome as
// success for cleanup purposes (delete the local file, no retry).
func IsBenign(err error) bool {
	return errors.Is(err, ErrDuplicateActivity)
}
