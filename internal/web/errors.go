package web

import (
	"errors"
	"fmt"
)

var (
	ErrDisallowed          = errors.New("robots.txt disallows fetching")
	ErrInsufficientContent = errors.New("insufficient content")
	ErrInvalidURL          = errors.New("invalid URL")
)

// FetchError reports a failed page request. For a TLS failure whose unverified
// retry also failed, Err is the verification error and Fallback the retry error.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Fallback   error
}

func (e *FetchError) Error() string {
	switch {
	case e.Fallback != nil:
		return fmt.Sprintf("fetch %s: certificate verification failed (%v) and unverified retry failed (%v)", e.URL, e.Err, e.Fallback)
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() []error {
	var errs []error
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Fallback != nil {
		errs = append(errs, e.Fallback)
	}
	return errs
}
