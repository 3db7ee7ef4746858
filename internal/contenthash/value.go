// Package contenthash computes canonical-JSON SHA-256 digests that match,
// byte for byte, digests produced by the forecasting service
// (sorted keys, compact separators, ASCII-only string escapes).
package contenthash

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Kind tags the variant held by a Value
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Value is a JSON value with an explicit variant tag
type Value struct {
	kind   Kind
	b      bool
	n      float64
	s      string
	items  []Value
	fields map[string]Value
}

func Null() Value                { return Value{kind: KindNull} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func Number(n float64) Value     { return Value{kind: KindNumber, n: n} }
func String(s string) Value      { return Value{kind: KindString, s: s} }
func Array(items ...Value) Value { return Value{kind: KindArray, items: items} }

// Object builds an object value. Field order is irrelevant; keys are sorted on encoding.
func Object(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: KindObject, fields: fields}
}

// Kind returns the variant tag
func (v Value) Kind() Kind { return v.kind }

// Quantities converts an item→quantity map into an object value
func Quantities(q map[string]float64) Value {
	fields := make(map[string]Value, len(q))
	for k, n := range q {
		fields[k] = Number(n)
	}
	return Object(fields)
}

// FromJSON decodes arbitrary JSON into a Value. Numbers decode as float64,
// the same precision Number carries.
func FromJSON(data []byte) (Value, error) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Value{}, fmt.Errorf("failed to decode json: %w", err)
	}
	return fromDecoded(raw)
}

func fromDecoded(raw interface{}) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case string:
		return String(t), nil
	case []interface{}:
		items := make([]Value, 0, len(t))
		for _, e := range t {
			v, err := fromDecoded(e)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return Array(items...), nil
	case map[string]interface{}:
		fields := make(map[string]Value, len(t))
		for k, e := range t {
			v, err := fromDecoded(e)
			if err != nil {
				return Value{}, err
			}
			fields[k] = v
		}
		return Object(fields), nil
	default:
		return Value{}, fmt.Errorf("unsupported json type %T", raw)
	}
}

func (v Value) sortedKeys() []string {
	keys := make([]string, 0, len(v.fields))
	for k := range v.fields {
		keys = append(keys, k)
	}
	// Byte order of UTF-8 equals code point order
	sort.Strings(keys)
	return keys
}
