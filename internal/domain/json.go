package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// RecordSet is a slice of Records stored as a JSON column. It implements
// sql.Scanner and driver.Valuer so sqlx can round-trip it through the
// backup column.
type RecordSet []Record

// Scan implements the sql.Scanner interface.
func (r *RecordSet) Scan(value any) error {
	if value == nil {
		*r = nil
		return nil
	}

	data, err := columnBytes(value)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*r = RecordSet{}
		return nil
	}

	return json.Unmarshal(data, r)
}

// Value implements the driver.Valuer interface.
func (r RecordSet) Value() (driver.Value, error) {
	if len(r) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(r)
}

// StringList is a slice of strings stored as a JSON column.
type StringList []string

// Scan implements the sql.Scanner interface.
func (s *StringList) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}

	data, err := columnBytes(value)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*s = StringList{}
		return nil
	}

	return json.Unmarshal(data, s)
}

// Value implements the driver.Valuer interface.
func (s StringList) Value() (driver.Value, error) {
	if len(s) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

func columnBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, errors.New("unsupported type for JSON column")
	}
}
