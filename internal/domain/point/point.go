// Package point holds the point records exchanged with the vector database.
package point

// Record is a stored point as returned by retrieval and scrolling.
type Record struct {
	ID      ID             `json:"id"`
	Payload map[string]any `json:"payload"`
	// Vector is a bare sequence for the default vector or a name → sequence map.
	Vector any `json:"vector"`
}

// Scored is a search hit. Vectors are never returned for hits.
type Scored struct {
	ID      ID             `json:"id"`
	Payload map[string]any `json:"payload"`
	Score   float64        `json:"score"`
}

// Object projects the record onto an object port element.
func (r Record) Object() map[string]any {
	return map[string]any{
		"id":      r.ID.Value(),
		"payload": payloadOrEmpty(r.Payload),
		"vector":  r.Vector,
	}
}

// Object projects the hit onto an object port element.
func (s Scored) Object() map[string]any {
	return map[string]any{
		"id":      s.ID.Value(),
		"payload": payloadOrEmpty(s.Payload),
		"score":   s.Score,
	}
}

// Objects projects records onto an object sequence.
func Objects[T interface{ Object() map[string]any }](items []T) []map[string]any {
	out := make([]map[string]any, len(items))
	for i, it := range items {
		out[i] = it.Object()
	}
	return out
}

func payloadOrEmpty(p map[string]any) map[string]any {
	if p == nil {
		return map[string]any{}
	}
	return p
}
