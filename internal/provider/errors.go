package provider

import (
	"fmt"
	"regexp"
	"strconv"
)

// FailedError reports that no plan could be obtained from a provider.
type FailedError struct {
	Provider string
	Err      error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("provider %s failed: %v", e.Provider, e.Err)
}

func (e *FailedError) Unwrap() error {
	return e.Err
}

// StatusError carries the HTTP status code of a failed model request.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %v", e.Code, e.Err)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

var statusCodePattern = regexp.MustCompile(`(?i)\bstatus(?:\s*code)?\s*[:=]?\s*(\d{3})\b`)

// withStatus wraps err in a *StatusError when its message carries an HTTP
// status code, as the eino-ext clients report them.
func withStatus(err error) error {
	if err == nil {
		return nil
	}
	m := statusCodePattern.FindStringSubmatch(err.Error())
	if m == nil {
		return err
	}
	code, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return err
	}
	return &StatusError{Code: code, Err: err}
}
