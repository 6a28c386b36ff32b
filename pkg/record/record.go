package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// Record is a schema-less server or vulnerability entry as returned by the
// data source. Any field may be absent.
type Record map[string]interface{}

// HasFields reports whether every named field is present on the record.
func (r Record) HasFields(names ...string) bool {
	for _, name := range names {
		if _, ok := r[name]; !ok {
			return false
		}
	}
	return true
}

// Get returns the raw value of a field and whether it is present.
func (r Record) Get(name string) (interface{}, bool) {
	v, ok := r[name]
	return v, ok
}

// String returns the string form of a field without modifying the record.
func (r Record) String(name string) (string, bool) {
	v, ok := r[name]
	if !ok {
		return "", false
	}
	return toString(v), true
}

// Coerce rewrites a present field to its string form in place and returns
// it. An absent field is left absent. The string forms are the ones legacy
// rule files compare against: null is "None", booleans are "True" and
// "False", numbers keep their JSON literal.
func (r Record) Coerce(name string) (string, bool) {
	s, ok := r.String(name)
	if !ok {
		return "", false
	}
	r[name] = s
	return s, true
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		if t {
			return "True"
		}
		return "False"
	case []interface{}, map[string]interface{}:
		// nested values keep their JSON text
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

// Decode reads a JSON array of objects. Numbers are kept as json.Number so
// that coercion reproduces the literal the source sent ("20.04", not "20.0399…").
func Decode(r io.Reader) ([]Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var records []Record
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return records, nil
}

// DecodeBytes is Decode over an in-memory payload.
func DecodeBytes(data []byte) ([]Record, error) {
	return Decode(bytes.NewReader(data))
}
