package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/arpeggia/recordkeeper/internal/shared"
)

// encodeStrings marshals an ordered string slice for a JSONB column.
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

// decodeStrings unmarshals a JSONB column back into a string slice.
func decodeStrings(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("failed to decode string list: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values, nil
}

// pq error classes: 23503 foreign_key_violation, class 08 connection errors.
const (
	codeForeignKeyViolation = "23503"
	classConnection         = "08"
)

// mapExecErr translates driver errors from a write into the shared taxonomy.
func mapExecErr(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if string(pqErr.Code) == codeForeignKeyViolation {
			return fmt.Errorf("%w: %s", shared.ErrIntegrity, op)
		}
		if strings.HasPrefix(string(pqErr.Code), classConnection) {
			return fmt.Errorf("%w: %s: %v", shared.ErrBackendUnavailable, op, err)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// placeholders renders $start..$start+n-1 bind markers for IN clauses.
func placeholders(start, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(start + i))
	}
	return b.String()
}
