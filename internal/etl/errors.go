package etl

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoData is returned when a run produced no rows at all: every city failed
// to extract, or a loader was handed an empty table it is not allowed to
// write.
var ErrNoData = errors.New("no weather data collected")

// Permanent extraction failures. These are never retried.
var (
	ErrCityNotFound = errors.New("city not found")
	ErrUnauthorized = errors.New("invalid API credentials")
)

// APIError is the final failure for one city, raised after the attempt budget
// is spent or a permanent error cut retrying short.
type APIError struct {
	City     string
	Attempts int
	Err      error
}

func (e *APIError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("city %q: giving up after %d attempts: %v", e.City, e.Attempts, e.Err)
	}
	return fmt.Sprintf("city %q: %v", e.City, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// Violation is one failed quality rule together with the rows that
// triggered it.
type Violation struct {
	Rule    string
	Message string
	Rows    []int
}

// ValidationError carries every violation found in a table. A single
// violation fails the whole table; no rows are filtered out.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return fmt.Sprintf("validation failed (%d violations): %s", len(e.Violations), strings.Join(msgs, "; "))
}
