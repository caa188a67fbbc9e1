// Package parsers manages the catalog of named OCR parser configurations and
// keeps it in sync with a backing store.
package parsers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/parserlab/ocrdiff/internal/jsondiff"
	"github.com/parserlab/ocrdiff/internal/ocr"
)

var (
	// ErrNotFound is returned when a parser name is unknown.
	ErrNotFound = errors.New("parser not found")
	// ErrExists is returned when adding a parser whose name is taken.
	ErrExists = errors.New("parser already exists")
	// ErrInvalidParser is returned when a parser fails validation.
	ErrInvalidParser = errors.New("invalid parser")
)

// Type is the document category a parser handles.
type Type string

const (
	TypeInvoice      Type = "invoice"
	TypeLedger       Type = "ledger"
	TypeVisitingCard Type = "visiting_card"
	TypeBusinessCard Type = "business_card"
	TypeOther        Type = "other"
)

// Types lists the known parser types in display order.
var Types = []Type{TypeInvoice, TypeLedger, TypeVisitingCard, TypeBusinessCard, TypeOther}

// NormalizeType maps unknown or empty types to TypeOther.
func NormalizeType(s string) Type {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Types {
		if t == known {
			return t
		}
	}
	return TypeOther
}

// Parser is one entry of parsers.json.
type Parser struct {
	Name             string            `json:"-" yaml:"name"`
	APIKey           string            `json:"api_key" yaml:"api_key"`
	AppID            string            `json:"parser_app_id" yaml:"parser_app_id"`
	ExtraAccuracy    bool              `json:"extra_accuracy" yaml:"extra_accuracy"`
	Type             Type              `json:"type" yaml:"type"`
	ExpectedResponse string            `json:"expected_response" yaml:"expected_response,omitempty"`
	SampleCurl       string            `json:"sample_curl" yaml:"sample_curl,omitempty"`
	FieldMappings    map[string]string `json:"field_mappings" yaml:"field_mappings,omitempty"`
}

// Normalize trims identifiers and fills defaults in place.
func (p *Parser) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.APIKey = strings.TrimSpace(p.APIKey)
	p.AppID = strings.TrimSpace(p.AppID)
	p.Type = NormalizeType(string(p.Type))
	if p.FieldMappings == nil {
		p.FieldMappings = map[string]string{}
	}
}

// Validate checks the required fields and that the expected response, when
// given, is valid JSON.
func (p *Parser) Validate() error {
	var missing []string
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(p.APIKey) == "" {
		missing = append(missing, "api_key")
	}
	if strings.TrimSpace(p.AppID) == "" {
		missing = append(missing, "parser_app_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidParser, strings.Join(missing, ", "))
	}
	if _, err := p.Expected(); err != nil {
		return fmt.Errorf("%w: expected_response: %v", ErrInvalidParser, err)
	}
	return nil
}

// Expected decodes the expected response sample. It returns nil when the
// parser has none.
func (p *Parser) Expected() (any, error) {
	if strings.TrimSpace(p.ExpectedResponse) == "" {
		return nil, nil
	}
	return jsondiff.DecodeBytes([]byte(p.ExpectedResponse))
}

// Credentials returns what the OCR client needs to route a request.
func (p *Parser) Credentials() ocr.Credentials {
	return ocr.Credentials{APIKey: p.APIKey, AppID: p.AppID}
}

// Label returns the display label for a flattened path, falling back to the
// path itself.
func (p *Parser) Label(path string) string {
	if l, ok := p.FieldMappings[path]; ok && l != "" {
		return l
	}
	return path
}

// Redacted returns a copy with the API key masked.
func (p *Parser) Redacted() Parser {
	c := *p
	if n := len(c.APIKey); n > 4 {
		c.APIKey = strings.Repeat("*", n-4) + c.APIKey[n-4:]
	} else if n > 0 {
		c.APIKey = strings.Repeat("*", n)
	}
	return c
}
