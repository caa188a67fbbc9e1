// Package jsondiff flattens nested JSON documents into dotted leaf paths and
// compares two documents leaf by leaf.
//
// Documents are held in an ordered model so that the reference document's
// key order decides the order of every comparison:
//
//	nil      JSON null
//	bool     JSON true/false
//	Number   JSON number, kept as its literal text
//	string   JSON string
//	Array    JSON array
//	Object   JSON object, members in insertion order
package jsondiff

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
)

// Number is a JSON number kept in its literal form so that no precision is
// lost between decoding and rendering.
type Number string

// Rat returns the exact rational value of the number.
func (n Number) Rat() (*big.Rat, bool) {
	return new(big.Rat).SetString(string(n))
}

// Float64 returns the number as a float64.
func (n Number) Float64() (float64, error) {
	return strconv.ParseFloat(string(n), 64)
}

func (n Number) String() string { return string(n) }

// MarshalJSON writes the literal unchanged.
func (n Number) MarshalJSON() ([]byte, error) {
	if n == "" {
		return []byte("0"), nil
	}
	return []byte(n), nil
}

// Array is an ordered JSON array.
type Array []any

// Member is a single key/value pair of an Object.
type Member struct {
	Key   string
	Value any
}

// Object is a JSON object that remembers insertion order.
type Object []Member

// Get returns the value stored under key.
func (o Object) Get(key string) (any, bool) {
	for _, m := range o {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// Keys returns the member names in order.
func (o Object) Keys() []string {
	keys := make([]string, len(o))
	for i, m := range o {
		keys[i] = m.Key
	}
	return keys
}

// Set replaces the value of an existing key in place, or appends a new member.
func (o *Object) Set(key string, value any) {
	for i := range *o {
		if (*o)[i].Key == key {
			(*o)[i].Value = value
			return
		}
	}
	*o = append(*o, Member{Key: key, Value: value})
}

// MarshalJSON encodes the object with members in insertion order.
func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(m.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(m.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal member %q: %w", m.Key, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keeping member order. This lets an Object
// be embedded in structs decoded with encoding/json.
func (o *Object) UnmarshalJSON(data []byte) error {
	v, err := DecodeBytes(data)
	if err != nil {
		return err
	}
	obj, ok := v.(Object)
	if !ok {
		return fmt.Errorf("jsondiff: expected object, got %s", kindOf(v))
	}
	*o = obj
	return nil
}

// Document wraps any JSON value so that it can be decoded from and encoded to
// JSON with object order preserved.
type Document struct {
	Value any
}

// MarshalJSON encodes the wrapped value.
func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Value)
}

// UnmarshalJSON decodes into the ordered model.
func (d *Document) UnmarshalJSON(data []byte) error {
	v, err := DecodeBytes(data)
	if err != nil {
		return err
	}
	d.Value = v
	return nil
}

type missing struct{}

func (missing) String() string { return "N/A" }

// MarshalJSON encodes Missing as null. Callers that need to tell it apart
// from a real null carry a separate flag (see Entry).
func (missing) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// Missing stands in for a path that does not exist in the candidate document.
// It never compares equal to nil, "" or any other value.
var Missing any = missing{}

// IsMissing reports whether v is the Missing sentinel.
func IsMissing(v any) bool {
	_, ok := v.(missing)
	return ok
}

// kindOf names the JSON kind of v for error messages and equality checks.
func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case Number, float64, float32, int, int64, int32, json.Number:
		return "number"
	case string:
		return "string"
	case Array, []any:
		return "array"
	case Object, map[string]any:
		return "object"
	case missing:
		return "missing"
	default:
		return fmt.Sprintf("%T", v)
	}
}
