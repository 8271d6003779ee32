package models

import (
	"database/sql/driver"
	"encoding/json"
)

// JSONBMap is a custom type for PostgreSQL JSONB columns that maps to map[string]interface{}
type JSONBMap map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONBMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONBMap) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSONBMap)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*j = make(JSONBMap)
		return nil
	}

	if len(bytes) == 0 {
		*j = make(JSONBMap)
		return nil
	}

	result := make(JSONBMap)
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}
	*j = result
	return nil
}

// StringList is a JSON string array stored in a JSONB or text column.
// Used for brand lists, persona priorities, and run model lists.
type StringList []string

// Value implements driver.Valuer interface
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal([]string(l))
}

// Scan implements sql.Scanner interface
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*l = StringList{}
		return nil
	}

	if len(bytes) == 0 {
		*l = StringList{}
		return nil
	}

	var result []string
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}
	*l = result
	return nil
}
