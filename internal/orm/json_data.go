package orm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap stores a free-form metadata object in a JSON/JSONB or TEXT column.
type JSONMap map[string]interface{}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", value)
	}

	if len(raw) == 0 {
		*m = nil
		return nil
	}

	out := make(map[string]interface{})
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode json column: %w", err)
	}
	*m = out
	return nil
}

// Value encodes the map as a JSON string so both TEXT and JSONB columns accept it.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(map[string]interface{}(m))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
