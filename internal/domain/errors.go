package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveSources is returned when a scan request resolves to zero
	// active integrations; nothing is persisted in that case.
	ErrNoActiveSources = errors.New("no active sources for project")

	// ErrNoJobs is returned by stores refusing to create a scan with an
	// empty job set; a scan without jobs could never terminate.
	ErrNoJobs = errors.New("scan requires at least one discovery job")

	ErrScanNotFound = errors.New("scan not found")
	ErrJobNotFound  = errors.New("discovery job not found")
)

// TerminalSourceError marks a discovery failure that retrying cannot fix,
// e.g. revoked credentials. It short-circuits the job's remaining retry
// budget.
type TerminalSourceError struct {
	Err error
}

func (e *TerminalSourceError) Error() string {
	return fmt.Sprintf("terminal source error: %v", e.Err)
}

func (e *TerminalSourceError) Unwrap() error { return e.Err }

// Terminal wraps err so IsTerminal reports true for it.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &TerminalSourceError{Err: err}
}

// IsTerminal reports whether err (or anything it wraps) is a
// TerminalSourceError.
func IsTerminal(err error) bool {
	var t *TerminalSourceError
	return errors.As(err, &t)
}
