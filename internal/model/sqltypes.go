package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringSlice - ошибки батча, хранятся в JSONB-колонке err_msg
type StringSlice []string

func (s *StringSlice) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = StringSlice{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("err_msg: unexpected column type %T", src)
	}

	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("err_msg: decode JSONB: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*s = out
	return nil
}

// Value always stores an array, never SQL NULL.
func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return []byte(`[]`), nil
	}
	raw, err := json.Marshal([]string(s))
	if err != nil {
		return nil, fmt.Errorf("err_msg: encode JSONB: %w", err)
	}
	return raw, nil
}
