// Package request holds validated operation requests ready for dispatch.
package request

import (
	"github.com/qdrant/rivet-plugin-qdrant/internal/domain/filter"
	"github.com/qdrant/rivet-plugin-qdrant/internal/domain/point"
	"github.com/qdrant/rivet-plugin-qdrant/internal/domain/vector"
)

// Upsert writes a single point. A zero ID is replaced by a generated one.
type Upsert struct {
	Collection string
	ID         point.ID
	Vector     vector.Named
	Payload    map[string]any
}

// Search is a nearest-neighbour query. Nil Limit and ScoreThreshold leave
// the defaults to the service.
type Search struct {
	Collection     string
	Vector         vector.Named
	Filter         filter.Filter
	Limit          *int
	ScoreThreshold *float64
}

// Scroll pages through points matching Filter starting at Offset.
type Scroll struct {
	Collection string
	Filter     filter.Filter
	Limit      *int
	Offset     *point.ID
}

// Page is one scroll page. NextOffset is nil on the last page.
type Page struct {
	Points     []point.Record
	NextOffset *point.ID
}
