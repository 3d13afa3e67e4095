// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sales

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingColumn classifies datasets that lack a required column.
	// Use errors.Is(err, ErrMissingColumn); errors.As yields *MissingColumnError.
	ErrMissingColumn = errors.New("missing required column")

	// ErrEmptyInput is returned when the CSV has no header row or no valid
	// transaction rows.
	ErrEmptyInput = errors.New("empty sales input")
)

// MissingColumnError reports which required column was not found.
type MissingColumnError struct {
	Column  string // normalised column name that was expected
	Purpose string // record field the column feeds (date, quantity, ...)
}

func (e *MissingColumnError) Error() string {
	if e.Purpose != "" && e.Purpose != e.Column {
		return fmt.Sprintf("no %q column found to create %s", e.Column, e.Purpose)
	}
	return fmt.Sprintf("no %q column found in the dataset", e.Column)
}

func (e *MissingColumnError) Unwrap() error { return ErrMissingColumn }
