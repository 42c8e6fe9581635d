package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSONBMap is a custom type for handling JSONB data in PostgreSQL.
// It implements sql.Scanner and driver.Valuer interfaces to seamlessly
// convert between Go's map[string]any and PostgreSQL's JSONB type.
type JSONBMap map[string]any

// Scan implements the sql.Scanner interface.
func (j *JSONBMap) Scan(value any) error {
	if value == nil {
		*j = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return errors.New("unsupported type for JSONBMap")
	}

	if len(data) == 0 {
		*j = JSONBMap{}
		return nil
	}

	return json.Unmarshal(data, j)
}

// Value implements the driver.Valuer interface.
func (j *JSONBMap) Value() (driver.Value, error) {
	if j == nil || len(*j) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(j)
}

// StringArray is a custom type for string slices stored as JSONB.
type StringArray []string

// Scan implements sql.Scanner for database retrieval.
func (a *StringArray) Scan(value any) error {
	if value == nil {
		*a = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return errors.New("unsupported type for StringArray")
	}

	if len(data) == 0 {
		*a = nil
		return nil
	}

	return json.Unmarshal(data, a)
}

// Value implements driver.Valuer for database storage.
func (a StringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}
