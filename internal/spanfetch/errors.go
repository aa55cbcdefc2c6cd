package spanfetch

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrPermanent marks provider failures that retrying or splitting cannot fix
// (missing credentials, rejected parameters, malformed payloads).
var ErrPermanent = errors.New("permanent provider error")

// HTTPStatuser is implemented by provider errors that carry the upstream HTTP
// (or payload) status code.
type HTTPStatuser interface {
	HTTPStatus() int
}

// SpanError is returned when a span could not be fetched after retries and
// could not be split further.
type SpanError struct {
	Provider string
	Dataset  string
	Span     Span
	Attempts int
	Err      error
}

func (e *SpanError) Error() string {
	return fmt.Sprintf("%s %s span %s failed after %d attempt(s): %v",
		e.Provider, e.Dataset, e.Span, e.Attempts, e.Err)
}

func (e *SpanError) Unwrap() error { return e.Err }

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

func (e *permanentError) Is(target error) bool { return target == ErrPermanent }

// Permanent wraps err so the fetcher neither retries nor splits on it.
// The wrapped error stays reachable through errors.As.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}

// StatusCode extracts the upstream status code from err, or 0 when none is attached.
func StatusCode(err error) int {
	var s HTTPStatuser
	if errors.As(err, &s) {
		return s.HTTPStatus()
	}
	return 0
}

// AsSpanError extracts the failing span from err.
func AsSpanError(err error) (*SpanError, bool) {
	var se *SpanError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// splittableStatus lists statuses that upstream APIs return when a range is too large to serve.
var splittableStatus = map[int]bool{
	408: true, 429: true, 500: true, 502: true, 503: true,
	504: true, 520: true, 522: true, 524: true, 598: true,
}

var splittableWording = []string{
	"timeout", "timed out", "network", "fetch failed", "socket hang up",
	"aborted", "connection reset", "unexpected eof",
}

// spanRelated reports whether err looks like the provider choking on the span size.
func spanRelated(err error) bool {
	if err == nil || IsPermanent(err) {
		return false
	}
	if code := StatusCode(err); code != 0 {
		return splittableStatus[code]
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, w := range splittableWording {
		if strings.Contains(msg, w) {
			return true
		}
	}
	return false
}
