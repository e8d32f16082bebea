package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// Field is one named metadata value.
// Value is a string, an int/int64, or nil (encoded as null).
type Field struct {
	Name  string
	Value any
}

// Metadata is an ordered field-name → value mapping.
//
// Unlike map[string]any, Metadata keeps declaration order on the wire so the
// backend sees the same key order for every submission of a form.
type Metadata []Field

// Set replaces the value of an existing field or appends a new one.
func (m *Metadata) Set(name string, value any) {
	for i := range *m {
		if (*m)[i].Name == name {
			(*m)[i].Value = value
			return
		}
	}
	*m = append(*m, Field{Name: name, Value: value})
}

// Get returns the value of a field and whether it is present.
func (m Metadata) Get(name string) (any, bool) {
	for _, f := range m {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Names returns the field names in order.
func (m Metadata) Names() []string {
	names := make([]string, len(m))
	for i, f := range m {
		names[i] = f.Name
	}
	return names
}

// MarshalJSON encodes the fields as a JSON object in declaration order.
//
// Strings are NFC normalized so visually identical input typed on different
// platforms produces the same bytes. HTML characters are not escaped.
func (m Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, f := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalString(f.Name)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", f.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')

		val, err := marshalValue(f.Value)
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", f.Name, err)
		}
		buf.Write(val)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalValue(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case string:
		return marshalString(val)
	case int:
		return []byte(strconv.Itoa(val)), nil
	case int64:
		return []byte(strconv.FormatInt(val, 10)), nil
	case bool:
		return []byte(strconv.FormatBool(val)), nil
	default:
		return nil, fmt.Errorf("unsupported metadata type %T", v)
	}
}

// marshalString produces a JSON string from the NFC form of s.
func marshalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// json.Encoder adds a trailing newline
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
