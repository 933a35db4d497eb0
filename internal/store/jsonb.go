package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONB adapts a Go value to a Postgres jsonb column.
type JSONB[T any] struct {
	V *T
}

// Scan implements sql.Scanner.
func (j JSONB[T]) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("jsonb: unsupported source %T", src)
	}
	return json.Unmarshal(raw, j.V)
}

// Value implements driver.Valuer. A nil slice is stored as an empty array.
func (j JSONB[T]) Value() (driver.Value, error) {
	if j.V == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(*j.V)
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		return "[]", nil
	}
	return string(raw), nil
}
