package node

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qdrant/rivet-plugin-qdrant/internal/domain"
	"github.com/qdrant/rivet-plugin-qdrant/internal/domain/port"
)

func TestBinding_Resolve(t *testing.T) {
	inputs := port.Inputs{"name": port.String("from-input")}

	got, err := Bind[string]("name", "static", false).Resolve(inputs, port.AsString)
	require.NoError(t, err)
	assert.Equal(t, "static", got)

	got, err = Bind[string]("name", "static", true).Resolve(inputs, port.AsString)
	require.NoError(t, err)
	assert.Equal(t, "from-input", got)
}

func TestBinding_NoFallbackToStatic(t *testing.T) {
	tests := []struct {
		name   string
		inputs port.Inputs
	}{
		{"absent", port.Inputs{}},
		{"nil inputs", nil},
		{"nil value", port.Inputs{"name": port.Value{Type: port.TypeString}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Bind[string]("name", "static", true).Resolve(tc.inputs, port.AsString)
			require.ErrorIs(t, err, domain.ErrMissingInput)
		})
	}
}

func TestBinding_CoercionFailure(t *testing.T) {
	inputs := port.Inputs{"name": {Type: port.TypeObject, Value: map[string]any{}}}

	_, err := Bind[string]("name", "", true).Resolve(inputs, port.AsString)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), `port "name"`)
}

func TestResolveObject(t *testing.T) {
	t.Run("static text", func(t *testing.T) {
		obj, err := ResolveObject(Bind[Serialized]("filter", `{"must":[]}`, false), nil, domain.ErrInvalidFilter)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"must": []any{}}, obj)
	})

	t.Run("blank text is empty", func(t *testing.T) {
		obj, err := ResolveObject(Bind[Serialized]("filter", "  ", false), nil, domain.ErrInvalidFilter)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{}, obj)
	})

	t.Run("non object input", func(t *testing.T) {
		inputs := port.Inputs{"payload": {Type: port.TypeAny, Value: []any{1}}}
		_, err := ResolveObject(Bind[Serialized]("payload", "", true), inputs, domain.ErrInvalidPayload)
		require.ErrorIs(t, err, domain.ErrInvalidPayload)
	})

	t.Run("array text", func(t *testing.T) {
		_, err := ResolveObject(Bind[Serialized]("payload", "[1,2]", false), nil, domain.ErrInvalidPayload)
		require.ErrorIs(t, err, domain.ErrInvalidPayload)
	})
}

func TestSerialized_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Serialized
	}{
		{"string", `"{\"a\":1}"`, `{"a":1}`},
		{"object", `{"a":1}`, `{"a":1}`},
		{"null", `null`, ""},
		{"empty string", `""`, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var s Serialized
			require.NoError(t, json.Unmarshal([]byte(tc.in), &s))
			assert.Equal(t, tc.want, s)
		})
	}
}
