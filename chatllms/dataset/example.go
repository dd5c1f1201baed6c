// Package dataset turns raw instruction-tuning records into input/output
// examples. Each named dataset has a pure normalization function registered
// in a flat table; local files are read by extension and split into train
// and eval sets.
package dataset

import (
	"errors"
	"fmt"
	"strconv"
)

// Example is one instruction-tuning pair: the source span and the expected
// completion.
type Example struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Record is a single raw row as read from a dataset file.
type Record map[string]any

var (
	ErrUnsupportedFormat = errors.New("unsupported dataset format")
	ErrMissingField      = errors.New("record is missing a required field")
	ErrMalformedRecord   = errors.New("malformed record")
	ErrDatasetNotFound   = errors.New("dataset not found")
	ErrEmptySplit        = errors.New("split would leave an empty dataset")
)

// String returns the field as text. Missing and null fields are reported as
// absent; numbers and booleans are rendered the way they appear in JSON.
func (r Record) String(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return fmt.Sprint(t), true
	}
}

// Get returns the field as text or "" when missing.
func (r Record) Get(key string) string {
	s, _ := r.String(key)
	return s
}

// Require returns the field as text or ErrMissingField.
func (r Record) Require(key string) (string, error) {
	s, ok := r.String(key)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMissingField, key)
	}
	return s, nil
}
