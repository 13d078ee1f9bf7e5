package sqlite

import (
	"encoding/json"
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/arpeggia/recordkeeper/internal/shared"
)

// encodeStrings marshals an ordered string slice for storage in a TEXT
// column. Nil encodes as an empty JSON array so scans never see NULL
// surprises.
func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode string list: %w", err)
	}
	return string(data), nil
}

// decodeStrings unmarshals a TEXT column back into a string slice.
func decodeStrings(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("failed to decode string list: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values, nil
}

// containsPattern builds a LIKE pattern matching one element of a
// JSON-encoded string list. The element is matched fully, quotes included,
// so "Song" does not match "Songbird".
func containsPattern(value string) string {
	quoted, _ := json.Marshal(value)
	return "%" + string(quoted) + "%"
}

// mapExecErr translates driver errors from a write into the shared taxonomy.
func mapExecErr(err error, op string) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %s", shared.ErrIntegrity, op)
		}
		switch sqliteErr.Code {
		case sqlite3.ErrCantOpen, sqlite3.ErrBusy, sqlite3.ErrLocked:
			return fmt.Errorf("%w: %s: %v", shared.ErrBackendUnavailable, op, err)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// placeholders renders n comma-separated bind markers for IN clauses.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	marks := make([]byte, 0, n*2-1)
	for i := 0; i < n; i++ {
		if i > 0 {
			marks = append(marks, ',')
		}
		marks = append(marks, '?')
	}
	return string(marks)
}
