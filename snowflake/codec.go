package snowflake

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

var nullLiteral = []byte("null")

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON decodes the string form used by the API. Numbers, null and
// any other token fail the surrounding decode.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '"' {
		return invalidIdentifier(string(data), nil)
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return invalidIdentifier(string(data), err)
	}
	parsed, err := Parse(text)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (l List) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Strings())
}

// UnmarshalJSON decodes an array of id strings, skipping strings that are not
// valid identifiers. The array itself and every element must be strings, so
// null or a non-string element fails the surrounding decode.
func (l *List) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, nullLiteral) {
		return invalidIdentifier(string(data), nil)
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return invalidIdentifier(string(data), err)
	}
	values := make([]string, 0, len(raw))
	for _, element := range raw {
		element = bytes.TrimSpace(element)
		if len(element) == 0 || element[0] != '"' {
			return invalidIdentifier(string(element), nil)
		}
		var text string
		if err := json.Unmarshal(element, &text); err != nil {
			return invalidIdentifier(string(element), err)
		}
		values = append(values, text)
	}
	*l = ParseList(values)
	return nil
}

// Value stores ids as decimal text so the full unsigned range survives
// drivers that only support signed 64-bit integers.
func (id ID) Value() (driver.Value, error) {
	return id.String(), nil
}

func (id *ID) Scan(src any) error {
	switch typed := src.(type) {
	case nil:
		*id = 0
		return nil
	case string:
		parsed, err := Parse(typed)
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	case []byte:
		parsed, err := Parse(string(typed))
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	case int64:
		*id = Int(typed)
		return nil
	default:
		return invalidIdentifier(fmt.Sprintf("%T", src), nil)
	}
}

var (
	_ json.Marshaler   = ID(0)
	_ json.Unmarshaler = (*ID)(nil)
	_ json.Unmarshaler = (*List)(nil)
	_ driver.Valuer    = ID(0)
	_ Like             = ID(0)
	_ Resolver         = Text("")
)
