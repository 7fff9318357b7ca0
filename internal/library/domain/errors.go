package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Common domain errors
var (
	// ErrInvalidPath is returned when a scan root is missing or not a directory
	ErrInvalidPath = errors.New("invalid library path")

	// ErrScanInProgress is returned when another run holds the store
	ErrScanInProgress = errors.New("scan already in progress")

	// ErrEmptyTitle is returned for a catalog entry without primary title
	ErrEmptyTitle = errors.New("catalog entry title is empty")

	// ErrInvalidOrigin is returned for an unknown origin flag
	ErrInvalidOrigin = errors.New("invalid catalog entry origin")

	// ErrInvalidEpisodeNumber is returned for episode numbers below 1
	ErrInvalidEpisodeNumber = errors.New("episode number must be at least 1")

	// ErrInconsistentAvailability is returned when status, local path and
	// stream reference disagree
	ErrInconsistentAvailability = errors.New("availability status inconsistent with local path or stream reference")
)

// PersistenceError reports a failed write-back. Nothing from the run was
// stored; the counts say how much work was discarded.
type PersistenceError struct {
	LostEntries  int
	LostEpisodes int
	Err          error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("write-back failed, discarded %d new entries and %d episode updates: %v",
		e.LostEntries, e.LostEpisodes, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func trimSpace(s string) string {
	return strings.TrimSpace(s)
}
