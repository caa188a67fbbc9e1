package parsers

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed parsers.schema.json
var schemaJSON string

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("parsers.schema.json", schemaJSON)
})

// Document is the whole parsers.json: parser name to configuration.
type Document map[string]Parser

// Names returns the parser names, sorted.
func (d Document) Names() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for name, p := range d {
		if p.FieldMappings != nil {
			m := make(map[string]string, len(p.FieldMappings))
			for k, v := range p.FieldMappings {
				m[k] = v
			}
			p.FieldMappings = m
		}
		out[name] = p
	}
	return out
}

// DecodeDocument parses and validates parsers.json. Empty input is an empty
// document.
func DecodeDocument(data []byte) (Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Document{}, nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsers.json is not valid JSON: %w", err)
	}
	schema, err := compileSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to compile parsers schema: %w", err)
	}
	if err := schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("parsers.json does not match schema: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode parsers.json: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	for name, p := range doc {
		p.Name = name
		p.Normalize()
		doc[name] = p
	}
	return doc, nil
}

// EncodeDocument renders parsers.json with four-space indentation.
func EncodeDocument(doc Document) ([]byte, error) {
	if doc == nil {
		doc = Document{}
	}
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode parsers.json: %w", err)
	}
	return append(data, '\n'), nil
}
