// Package port defines the typed values that flow between workflow nodes.
package port

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/qdrant/rivet-plugin-qdrant/internal/domain"
)

// ID names an input or output port of a node.
type ID string

// DataType is the type tag carried by a port value.
type DataType string

// Data types understood by the nodes.
const (
	TypeString      DataType = "string"
	TypeNumber      DataType = "number"
	TypeBoolean     DataType = "boolean"
	TypeVector      DataType = "vector"
	TypeObject      DataType = "object"
	TypeAny         DataType = "any"
	TypeStringArray DataType = "string[]"
	TypeObjectArray DataType = "object[]"
	TypeAnyArray    DataType = "any[]"
)

// Value is a typed port value.
type Value struct {
	Type  DataType `json:"type"`
	Value any      `json:"value"`
}

// Inputs are the values bound to a node's input ports for one invocation.
type Inputs map[ID]Value

// Outputs are the values a node produced, one per output port.
type Outputs map[ID]Value

// Lookup returns the value bound to a port. A bound nil value counts as absent.
func (in Inputs) Lookup(id ID) (Value, bool) {
	v, ok := in[id]
	if !ok || v.Value == nil {
		return Value{}, false
	}
	return v, true
}

// Definition describes a port exposed to the host.
type Definition struct {
	ID       ID       `json:"id"`
	DataType DataType `json:"dataType"`
	Title    string   `json:"title"`
	Default  any      `json:"defaultValue,omitempty"`
}

// String creates a string value.
func String(s string) Value { return Value{Type: TypeString, Value: s} }

// Boolean creates a boolean value.
func Boolean(b bool) Value { return Value{Type: TypeBoolean, Value: b} }

// Vector creates a vector value.
func Vector(v []float64) Value { return Value{Type: TypeVector, Value: v} }

// StringArray creates a string sequence value. A nil slice becomes empty.
func StringArray(s []string) Value {
	if s == nil {
		s = []string{}
	}
	return Value{Type: TypeStringArray, Value: s}
}

// ObjectArray creates an object sequence value. A nil slice becomes empty.
func ObjectArray(o []map[string]any) Value {
	if o == nil {
		o = []map[string]any{}
	}
	return Value{Type: TypeObjectArray, Value: o}
}

// AsString coerces a scalar value to text.
func AsString(v Value) (string, error) {
	switch x := v.Value.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case bool:
		return strconv.FormatBool(x), nil
	default:
		return "", fmt.Errorf("%w: expected string, got %T", domain.ErrInvalidInput, v.Value)
	}
}

// AsVector coerces a value to a dense numeric sequence.
func AsVector(v Value) ([]float64, error) {
	switch x := v.Value.(type) {
	case []float64:
		return x, nil
	case []float32:
		out := make([]float64, len(x))
		for i, f := range x {
			out[i] = float64(f)
		}
		return out, nil
	case []any:
		out := make([]float64, len(x))
		for i, e := range x {
			f, ok := toFloat(e)
			if !ok {
				return nil, fmt.Errorf("%w: element %d is %T", domain.ErrInvalidVector, i, e)
			}
			out[i] = f
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: expected numeric sequence, got %T", domain.ErrInvalidVector, v.Value)
	}
}

// AsSlice coerces a value to a heterogeneous sequence.
func AsSlice(v Value) ([]any, error) {
	switch x := v.Value.(type) {
	case []any:
		return x, nil
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out, nil
	case []float64:
		out := make([]any, len(x))
		for i, f := range x {
			out[i] = f
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: expected sequence, got %T", domain.ErrInvalidInput, v.Value)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
