package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidThreshold is returned when classification thresholds are out of range.
	ErrInvalidThreshold = errors.New("invalid threshold")
	// ErrInvalidConfig is returned by config validation.
	ErrInvalidConfig = errors.New("invalid config")
)

// MalformedInputError means the input table could not be read at all.
// It aborts the run; no partial result is produced.
type MalformedInputError struct {
	Source string
	Reason string
	Err    error
}

func (e *MalformedInputError) Error() string {
	msg := "malformed input " + e.Source + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// MissingFieldWarning reports columns needed for the landing-page quality
// metric that were absent. The analysis continues with the metric at 0
// unless the strict policy turns it into a failure.
type MissingFieldWarning struct {
	Columns []string
}

func (w *MissingFieldWarning) Error() string {
	return fmt.Sprintf("missing columns %s: landing page view rate set to 0 for every row",
		strings.Join(w.Columns, ", "))
}

// IsMalformedInput reports whether err is (or wraps) a MalformedInputError.
func IsMalformedInput(err error) bool {
	var m *MalformedInputError
	return errors.As(err, &m)
}
