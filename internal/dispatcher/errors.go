package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// FatalError marks a job failure that a retry cannot fix, such as an
// unreadable PDF or an unknown job.
type FatalError struct {
	Reason string
	Err    error
}

func (e *FatalError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// Fatal wraps err so the worker does not retry it.
func Fatal(reason string, err error) error { return &FatalError{Reason: reason, Err: err} }

func isFatalError(err error) bool {
	if err == nil {
		return false
	}
	var fe *FatalError
	if errors.As(err, &fe) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "malformed") || strings.Contains(errStr, "invalid pdf")
}

// isTransientError reports errors worth retrying: timeouts and storage or
// network hiccups.
func isTransientError(err error) bool {
	if err == nil || isFatalError(err) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "connection reset", "timeout", "network", "eof", "slowdown", "throttl", "503"} {
		if strings.Contains(errStr, s) {
			return true
		}
	}
	return false
}
