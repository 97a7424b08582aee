// Package registry holds the immutable table of node definitions exposed to a
// workflow host, together with the plugin descriptor.
package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/qdrant/rivet-plugin-qdrant/internal/domain"
	"github.com/qdrant/rivet-plugin-qdrant/internal/domain/point"
	"github.com/qdrant/rivet-plugin-qdrant/internal/node"
)

// aliases maps legacy node types onto current ones.
var aliases = map[node.Type]node.Type{
	"uploadPoint": node.TypeUpsertPoint,
}

// Registry maps node types to definitions. It is built once and never mutated.
type Registry struct {
	order []node.Type
	defs  map[node.Type]node.Definition
}

// New builds a registry. Empty and duplicate types are rejected.
func New(defs ...node.Definition) (*Registry, error) {
	r := &Registry{
		order: make([]node.Type, 0, len(defs)),
		defs:  make(map[node.Type]node.Definition, len(defs)),
	}
	for _, d := range defs {
		typ := d.Type()
		if typ == "" {
			return nil, errors.New("registry: node with empty type")
		}
		if _, dup := r.defs[typ]; dup {
			return nil, fmt.Errorf("registry: duplicate node type %q", typ)
		}
		r.defs[typ] = d
		r.order = append(r.order, typ)
	}
	return r, nil
}

// Get returns the definition for typ, following legacy aliases.
func (r *Registry) Get(typ node.Type) (node.Definition, error) {
	if d, ok := r.defs[typ]; ok {
		return d, nil
	}
	if target, ok := aliases[typ]; ok {
		if d, ok := r.defs[target]; ok {
			return d, nil
		}
	}
	return node.Definition{}, fmt.Errorf("%w: %q", domain.ErrUnknownNode, typ)
}

// Types returns the registered types in lexical order.
func (r *Registry) Types() []node.Type {
	out := append([]node.Type(nil), r.order...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Definitions returns the definitions in registration order.
func (r *Registry) Definitions() []node.Definition {
	out := make([]node.Definition, 0, len(r.order))
	for _, typ := range r.order {
		out = append(out, r.defs[typ])
	}
	return out
}

// Describe returns descriptors for every node in registration order.
func (r *Registry) Describe() ([]node.Descriptor, error) {
	out := make([]node.Descriptor, 0, len(r.order))
	for _, d := range r.Definitions() {
		desc, err := d.Describe()
		if err != nil {
			return nil, err
		}
		out = append(out, desc)
	}
	return out, nil
}

// Deps are the collaborators of the standard node set.
type Deps struct {
	Dial          node.Dialer
	Embedder      node.Embedder
	IDCoercion    point.Coercion
	StrictFilters bool
}

// Build registers the standard node set.
func Build(deps Deps) (*Registry, error) {
	if deps.Dial == nil {
		return nil, errors.New("registry: dialer is required")
	}
	return New(node.Standard(node.Options{
		Dial:          deps.Dial,
		Embedder:      deps.Embedder,
		IDCoercion:    deps.IDCoercion,
		StrictFilters: deps.StrictFilters,
	})...)
}
