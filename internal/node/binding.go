package node

import (
	"encoding/json"
	"fmt"

	"github.com/qdrant/rivet-plugin-qdrant/internal/domain"
	"github.com/qdrant/rivet-plugin-qdrant/internal/domain/filter"
	"github.com/qdrant/rivet-plugin-qdrant/internal/domain/port"
)

// Binding is a parameter whose value comes either from static node data or,
// when UseInput is set, from the input port of the same name.
type Binding[T any] struct {
	Port     port.ID
	Static   T
	UseInput bool
}

// Bind creates a binding for a port.
func Bind[T any](id port.ID, static T, useInput bool) Binding[T] {
	return Binding[T]{Port: id, Static: static, UseInput: useInput}
}

// Resolve returns the static value, or the coerced input value when the
// binding is toggled to input. A toggled binding with no bound value fails
// with ErrMissingInput; there is no fallback to the static value.
func (b Binding[T]) Resolve(inputs port.Inputs, coerce func(port.Value) (T, error)) (T, error) {
	if !b.UseInput {
		return b.Static, nil
	}
	var zero T
	v, ok := inputs.Lookup(b.Port)
	if !ok {
		return zero, domain.NewMissingInput(string(b.Port))
	}
	out, err := coerce(v)
	if err != nil {
		return zero, fmt.Errorf("port %q: %w", b.Port, err)
	}
	return out, nil
}

// ResolveObject resolves a filter or payload binding. Static text and string
// inputs are parsed; object inputs are taken as they are. invalid is the
// sentinel wrapped on parse failure.
func ResolveObject(b Binding[Serialized], inputs port.Inputs, invalid error) (map[string]any, error) {
	if !b.UseInput {
		return filter.Parse(string(b.Static), invalid)
	}
	v, ok := inputs.Lookup(b.Port)
	if !ok {
		return nil, domain.NewMissingInput(string(b.Port))
	}
	obj, err := filter.FromAny(v.Value, invalid)
	if err != nil {
		return nil, fmt.Errorf("port %q: %w", b.Port, err)
	}
	return obj, nil
}

// Serialized is structured data kept as text in static node data. When
// decoding, a JSON string is taken as the text and any other JSON value is
// kept in its serialized form, so both `"{\"a\":1}"` and `{"a":1}` load.
type Serialized string

// UnmarshalJSON implements json.Unmarshaler.
func (s *Serialized) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*s = Serialized(text)
		return nil
	}
	if string(data) == "null" {
		*s = ""
		return nil
	}
	*s = Serialized(data)
	return nil
}
