// Package diag defines the data-quality error taxonomy and the diagnostics
// report returned alongside every load cycle.
package diag

import (
	"errors"
	"fmt"
	"strings"
)

// NormalizationError reports a key that is empty after canonicalization.
type NormalizationError struct {
	Raw string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("keys: empty key after normalization (raw %q)", e.Raw)
}

// DuplicateKeyError reports two or more rows of one table sharing a
// canonical key.
type DuplicateKeyError struct {
	Table string
	Key   string
	Rows  []int
}

func (e *DuplicateKeyError) Error() string {
	rows := make([]string, len(e.Rows))
	for i, r := range e.Rows {
		rows[i] = fmt.Sprint(r)
	}
	return fmt.Sprintf("join: table %q has duplicate key %q (rows %s)", e.Table, e.Key, strings.Join(rows, ", "))
}

// OrphanReference is a facility whose district matches no known district.
type OrphanReference struct {
	Facility string `json:"facility"`
	District string `json:"district"`
	Category string `json:"category"`
	Row      int    `json:"row"`
}

func (e *OrphanReference) Error() string {
	return fmt.Sprintf("facility: %q references unknown district %q", e.Facility, e.District)
}

// InvalidValueError is a cell that does not parse as its declared type.
type InvalidValueError struct {
	Column string
	Value  string
	Reason string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("table: column %q value %q: %s", e.Column, e.Value, e.Reason)
}

// GeometryError is a boundary record whose geometry cannot be used.
type GeometryError struct {
	District string
	Reason   string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("boundary: %q: %s", e.District, e.Reason)
}

// LoadError marks a source as fundamentally unusable. It aborts the cycle.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// NewLoadError wraps err as a fatal load failure for source.
func NewLoadError(source string, err error) *LoadError {
	return &LoadError{Source: source, Err: err}
}

// IsFatal reports whether err (or anything it wraps) is a LoadError or a
// DuplicateKeyError.
func IsFatal(err error) bool {
	var le *LoadError
	if errors.As(err, &le) {
		return true
	}
	var de *DuplicateKeyError
	return errors.As(err, &de)
}
