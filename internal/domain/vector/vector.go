// Package vector describes dense vectors addressed by an optional name.
package vector

// Named is a dense vector stored under Name, or under the collection's
// default (unnamed) slot when Name is empty.
type Named struct {
	Name   string
	Values []float64
}

// New creates a vector bound to name. An empty name selects the default slot.
func New(name string, values []float64) Named {
	return Named{Name: name, Values: values}
}

// IsNamed reports whether the vector targets a named slot.
func (n Named) IsNamed() bool { return n.Name != "" }

// UpsertShape returns the point "vector" field: {name: values} or bare values.
func (n Named) UpsertShape() any {
	if n.IsNamed() {
		return map[string][]float64{n.Name: n.Values}
	}
	return n.Values
}

// SearchShape returns the search "vector" field: {"name", "vector"} or bare values.
func (n Named) SearchShape() any {
	if n.IsNamed() {
		return struct {
			Name   string    `json:"name"`
			Vector []float64 `json:"vector"`
		}{Name: n.Name, Vector: n.Values}
	}
	return n.Values
}
