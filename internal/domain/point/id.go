package point

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/qdrant/rivet-plugin-qdrant/internal/domain"
)

// ID identifies a point: either text (usually a UUID) or a number.
// The zero value means "no identifier".
type ID struct {
	text    string
	num     json.Number
	numeric bool
}

// TextID creates a textual identifier.
func TextID(s string) ID { return ID{text: s} }

// NumericID creates a numeric identifier.
func NumericID(n uint64) ID {
	return ID{num: json.Number(strconv.FormatUint(n, 10)), numeric: true}
}

// NewID generates a fresh random UUID identifier.
func NewID() ID { return TextID(uuid.New().String()) }

// IsZero reports whether the identifier is unset.
func (id ID) IsZero() bool { return !id.numeric && id.text == "" }

// IsNumeric reports whether the identifier is a number.
func (id ID) IsNumeric() bool { return id.numeric }

// String returns the identifier as text.
func (id ID) String() string {
	if id.numeric {
		return id.num.String()
	}
	return id.text
}

// Value returns the identifier as a port value: string or json.Number.
func (id ID) Value() any {
	if id.numeric {
		return id.num
	}
	return id.text
}

// MarshalJSON encodes numbers bare and text quoted.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.num), nil
	}
	return json.Marshal(id.text) //nolint:wrapcheck // string marshal cannot fail
}

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode point id: %w", err)
	}
	parsed, err := ParseID(raw)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseID converts a loosely typed value into an identifier.
// Only strings and finite numbers are accepted.
func ParseID(v any) (ID, error) {
	switch x := v.(type) {
	case ID:
		return x, nil
	case string:
		return TextID(x), nil
	case json.Number:
		if _, err := x.Float64(); err != nil {
			return ID{}, fmt.Errorf("%w: %q", domain.ErrInvalidIdentifier, x.String())
		}
		return ID{num: x, numeric: true}, nil
	case float64:
		return floatID(x)
	case float32:
		return floatID(float64(x))
	case int:
		return ID{num: json.Number(strconv.Itoa(x)), numeric: true}, nil
	case int64:
		return ID{num: json.Number(strconv.FormatInt(x, 10)), numeric: true}, nil
	case uint64:
		return NumericID(x), nil
	case uint:
		return NumericID(uint64(x)), nil
	default:
		return ID{}, fmt.Errorf("%w: %T is neither string nor number", domain.ErrInvalidIdentifier, v)
	}
}

// ParseIDs converts every element, failing on the first invalid one.
func ParseIDs(values []any) ([]ID, error) {
	ids := make([]ID, len(values))
	for i, v := range values {
		id, err := ParseID(v)
		if err != nil {
			return nil, fmt.Errorf("ids[%d]: %w", i, err)
		}
		ids[i] = id
	}
	return ids, nil
}

func floatID(f float64) (ID, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ID{}, fmt.Errorf("%w: %v", domain.ErrInvalidIdentifier, f)
	}
	return ID{num: json.Number(formatFloat(f)), numeric: true}, nil
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && f >= 0 && f < 1<<63 {
		return strconv.FormatUint(uint64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Coercion decides whether a textual identifier is sent as a number.
type Coercion string

const (
	// CoercionNumeric converts any text that reads as a number ("42", "007", "1e3").
	CoercionNumeric Coercion = "numeric"
	// CoercionCanonical converts only canonical unsigned integers ("42" but not "007").
	CoercionCanonical Coercion = "canonical"
	// CoercionNever keeps identifiers textual.
	CoercionNever Coercion = "never"
)

var canonicalUint = regexp.MustCompile(`^(0|[1-9][0-9]*)$`)

// ParseCoercion validates a coercion name. Empty selects CoercionNumeric.
func ParseCoercion(s string) (Coercion, error) {
	switch c := Coercion(s); c {
	case "":
		return CoercionNumeric, nil
	case CoercionNumeric, CoercionCanonical, CoercionNever:
		return c, nil
	default:
		return "", fmt.Errorf("unknown id coercion %q (want numeric, canonical or never)", s)
	}
}

// Apply converts resolved identifier text into an ID. Empty text yields the zero ID.
func (c Coercion) Apply(s string) ID {
	if s == "" {
		return ID{}
	}
	switch c {
	case CoercionNever:
		return TextID(s)
	case CoercionCanonical:
		if !canonicalUint.MatchString(s) {
			return TextID(s)
		}
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return TextID(s)
		}
		return NumericID(n)
	default:
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			return TextID(s)
		}
		if n, err := strconv.ParseUint(trimmed, 10, 64); err == nil {
			return NumericID(n)
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return TextID(s)
		}
		return ID{num: json.Number(formatFloat(f)), numeric: true}
	}
}
