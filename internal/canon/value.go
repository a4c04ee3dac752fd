package canon

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// ErrFloat is returned when a decoded number has a fractional part or exponent.
var ErrFloat = errors.New("floating point numbers are not allowed")

// ErrNull is returned when a decoded document contains null.
var ErrNull = errors.New("null is not allowed")

// ErrNotNFC is returned for strings and keys that are not in Unicode
// Normalization Form C. Composed and decomposed spellings would otherwise be
// two different bodies that look the same.
var ErrNotNFC = errors.New("string is not NFC-normalized")

// Value is a sealed interface over the permitted body value kinds.
type Value interface {
	value()
}

// String is a text value.
type String string

// Int is a signed 64-bit integer value.
type Int int64

// Bool is a boolean value.
type Bool bool

// Array is an ordered list of values.
type Array []Value

// Object maps keys to values. Iterate with SortedKeys for stable order.
type Object map[string]Value

func (String) value() {}
func (Int) value()    {}
func (Bool) value()   {}
func (Array) value()  {}
func (Object) value() {}

// SortedKeys returns the object's keys ordered by UTF-16 code units.
// This differs from byte order for characters outside the BMP.
func (o Object) SortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

// Str returns the string stored under key and whether it was a String.
func (o Object) Str(key string) (string, bool) {
	v, ok := o[key].(String)
	return string(v), ok
}

// Flag returns the bool stored under key and whether it was a Bool.
func (o Object) Flag(key string) (bool, bool) {
	v, ok := o[key].(Bool)
	return bool(v), ok
}

// Has reports whether key is present.
func (o Object) Has(key string) bool {
	_, ok := o[key]
	return ok
}

func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

// MarshalJSON renders the object in canonical form.
func (o Object) MarshalJSON() ([]byte, error) {
	return Marshal(o)
}

// UnmarshalJSON decodes a JSON object, rejecting floats and null.
func (o *Object) UnmarshalJSON(data []byte) error {
	v, err := Decode(data)
	if err != nil {
		return err
	}
	obj, ok := v.(Object)
	if !ok {
		return fmt.Errorf("expected object, got %T", v)
	}
	*o = obj
	return nil
}

// Decode parses a JSON document into a Value.
// Numbers must be integers that fit in int64.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	return FromAny(raw)
}

// FromAny converts the output of encoding/json (with UseNumber) or a YAML
// decoder into a Value.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, ErrNull
	case Value:
		return val, nil
	case string:
		if !norm.NFC.IsNormalString(val) {
			return nil, fmt.Errorf("%w: %q", ErrNotNFC, val)
		}
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case json.Number:
		s := string(val)
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("%w: %s", ErrFloat, s)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("integer out of range: %s", s)
		}
		return Int(n), nil
	case float32, float64:
		return nil, fmt.Errorf("%w: %v", ErrFloat, val)
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			ev, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = ev
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			if !norm.NFC.IsNormalString(k) {
				return nil, fmt.Errorf("key %q: %w", k, ErrNotNFC)
			}
			ev, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", k, err)
			}
			obj[k] = ev
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}
