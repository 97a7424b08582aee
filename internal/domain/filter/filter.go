// Package filter parses the structured objects (filters and payloads) that
// nodes forward verbatim to the vector database.
package filter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qdrant/rivet-plugin-qdrant/internal/domain"
)

// Filter is an opaque field-constraint object.
type Filter = map[string]any

// Parse decodes serialized text into an object. Blank text and a JSON null
// both yield an empty object. Failures wrap invalid (ErrInvalidFilter or
// ErrInvalidPayload).
func Parse(text string, invalid error) (map[string]any, error) {
	if strings.TrimSpace(text) == "" {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", invalid, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after object", invalid)
	}
	return FromAny(raw, invalid)
}

// FromAny accepts an already decoded value: an object, nil, or serialized text.
func FromAny(v any, invalid error) (map[string]any, error) {
	switch x := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		if x == nil {
			return map[string]any{}, nil
		}
		return x, nil
	case string:
		return Parse(x, invalid)
	case json.RawMessage:
		return Parse(string(x), invalid)
	default:
		return nil, fmt.Errorf("%w: expected object, got %T", invalid, v)
	}
}

// clauses are the top-level keys of the service's filter grammar.
var clauses = map[string]bool{
	"must":       true,
	"should":     true,
	"must_not":   true,
	"min_should": true,
}

// Validate checks the top level of the filter grammar: only boolean clauses,
// each holding a condition object or a list of condition objects.
func Validate(f Filter) error {
	for key, val := range f {
		if !clauses[key] {
			return fmt.Errorf("%w: unknown clause %q", domain.ErrInvalidFilter, key)
		}
		if key == "min_should" {
			if _, ok := val.(map[string]any); !ok {
				return fmt.Errorf("%w: min_should must be an object", domain.ErrInvalidFilter)
			}
			continue
		}
		switch c := val.(type) {
		case map[string]any:
		case []any:
			for i, cond := range c {
				if _, ok := cond.(map[string]any); !ok {
					return fmt.Errorf("%w: %s[%d] must be an object", domain.ErrInvalidFilter, key, i)
				}
			}
		default:
			return fmt.Errorf("%w: %s must be an object or a list of objects", domain.ErrInvalidFilter, key)
		}
	}
	return nil
}
