package jsondiff

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-json-experiment/json/jsontext"
)

// ErrTrailingData is returned when input holds more than one JSON value.
var ErrTrailingData = errors.New("jsondiff: unexpected data after top-level value")

// DecodeBytes parses a single JSON value into the ordered model.
func DecodeBytes(data []byte) (any, error) {
	return Decode(bytes.NewReader(data))
}

// Decode parses a single JSON value from r into the ordered model.
//
// Duplicate object names are accepted: the later value replaces the earlier
// one without moving it.
func Decode(r io.Reader) (any, error) {
	dec := jsontext.NewDecoder(r, jsontext.AllowDuplicateNames(true))

	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}

	if _, err := dec.ReadToken(); err != io.EOF {
		if err == nil {
			return nil, ErrTrailingData
		}
		return nil, fmt.Errorf("%w: %v", ErrTrailingData, err)
	}
	return v, nil
}

func decodeValue(dec *jsontext.Decoder) (any, error) {
	switch dec.PeekKind() {
	case '{':
		return decodeObject(dec)
	case '[':
		return decodeArray(dec)
	case '0':
		raw, err := dec.ReadValue()
		if err != nil {
			return nil, fmt.Errorf("read number: %w", err)
		}
		return Number(raw), nil
	default:
		tok, err := dec.ReadToken()
		if err != nil {
			return nil, fmt.Errorf("read value: %w", err)
		}
		switch tok.Kind() {
		case 'n':
			return nil, nil
		case 't', 'f':
			return tok.Bool(), nil
		case '"':
			return tok.String(), nil
		default:
			return nil, fmt.Errorf("unexpected token %v", tok.Kind())
		}
	}
}

func decodeObject(dec *jsontext.Decoder) (Object, error) {
	if _, err := dec.ReadToken(); err != nil { // '{'
		return nil, fmt.Errorf("read object open: %w", err)
	}
	obj := Object{}
	seen := make(map[string]int)
	for dec.PeekKind() != '}' {
		tok, err := dec.ReadToken()
		if err != nil {
			return nil, fmt.Errorf("read object key: %w", err)
		}
		key := tok.String()
		val, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("read value for key %q: %w", key, err)
		}
		if i, ok := seen[key]; ok {
			obj[i].Value = val
			continue
		}
		seen[key] = len(obj)
		obj = append(obj, Member{Key: key, Value: val})
	}
	if _, err := dec.ReadToken(); err != nil { // '}'
		return nil, fmt.Errorf("read object close: %w", err)
	}
	return obj, nil
}

func decodeArray(dec *jsontext.Decoder) (Array, error) {
	if _, err := dec.ReadToken(); err != nil { // '['
		return nil, fmt.Errorf("read array open: %w", err)
	}
	arr := Array{}
	for dec.PeekKind() != ']' {
		elem, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("read array element %d: %w", len(arr), err)
		}
		arr = append(arr, elem)
	}
	if _, err := dec.ReadToken(); err != nil { // ']'
		return nil, fmt.Errorf("read array close: %w", err)
	}
	return arr, nil
}
