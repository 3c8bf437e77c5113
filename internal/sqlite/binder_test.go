package sqlite

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/sqlschema/pkg/types"
)

type status string

type weekday int

type label struct{ v string }

func (l label) String() string { return "label:" + l.v }

type token struct{ id int }

func (k token) MarshalText() ([]byte, error) { return []byte(fmt.Sprintf("tok-%d", k.id)), nil }

func TestBind_Inference(t *testing.T) {
	when := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	n := 42
	var nilInt *int

	tests := []struct {
		name  string
		value any
		want  types.BoundParam
	}{
		{"nil", nil, types.BoundParam{Type: types.ParamNull}},
		{"true", true, types.BoundParam{Value: int64(1), Type: types.ParamInteger}},
		{"false", false, types.BoundParam{Value: int64(0), Type: types.ParamInteger}},
		{"int", 7, types.BoundParam{Value: int64(7), Type: types.ParamInteger}},
		{"int8", int8(-8), types.BoundParam{Value: int64(-8), Type: types.ParamInteger}},
		{"uint32", uint32(9), types.BoundParam{Value: int64(9), Type: types.ParamInteger}},
		{"named int", weekday(3), types.BoundParam{Value: int64(3), Type: types.ParamInteger}},
		{"float32", float32(1.5), types.BoundParam{Value: 1.5, Type: types.ParamFloat}},
		{"float64", 2.25, types.BoundParam{Value: 2.25, Type: types.ParamFloat}},
		{"string", "abc", types.BoundParam{Value: "abc", Type: types.ParamText}},
		{"numeric string stays text", "12", types.BoundParam{Value: "12", Type: types.ParamText}},
		{"named string", status("open"), types.BoundParam{Value: "open", Type: types.ParamText}},
		{"bytes", []byte{1, 2}, types.BoundParam{Value: []byte{1, 2}, Type: types.ParamBlob}},
		{"blob", types.Blob("xy"), types.BoundParam{Value: []byte("xy"), Type: types.ParamBlob}},
		{"time", when, types.BoundParam{Value: "2024-03-05 14:07:09", Type: types.ParamText}},
		{"time pointer", &when, types.BoundParam{Value: "2024-03-05 14:07:09", Type: types.ParamText}},
		{"int pointer", &n, types.BoundParam{Value: int64(42), Type: types.ParamInteger}},
		{"nil pointer", nilInt, types.BoundParam{Type: types.ParamNull}},
		{"stringer", label{"x"}, types.BoundParam{Value: "label:x", Type: types.ParamText}},
		{"text marshaler", token{9}, types.BoundParam{Value: "tok-9", Type: types.ParamText}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Bind([]any{tt.value})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0])
		})
	}
}

func TestBind_Overrides(t *testing.T) {
	tests := []struct {
		name  string
		value types.Typed
		want  types.BoundParam
	}{
		{"integer from text", types.Typed{Type: types.ParamInteger, Value: " 17 "}, types.BoundParam{Value: int64(17), Type: types.ParamInteger}},
		{"integer from float", types.Typed{Type: types.ParamInteger, Value: 3.9}, types.BoundParam{Value: int64(3), Type: types.ParamInteger}},
		{"integer from nil", types.Typed{Type: types.ParamInteger}, types.BoundParam{Value: int64(0), Type: types.ParamInteger}},
		{"float from int", types.Typed{Type: types.ParamFloat, Value: 2}, types.BoundParam{Value: 2.0, Type: types.ParamFloat}},
		{"text from int", types.Typed{Type: types.ParamText, Value: 5}, types.BoundParam{Value: "5", Type: types.ParamText}},
		{"text from bool", types.Typed{Type: types.ParamText, Value: true}, types.BoundParam{Value: "1", Type: types.ParamText}},
		{"null discards value", types.Typed{Type: types.ParamNull, Value: "x"}, types.BoundParam{Type: types.ParamNull}},
		{"blob from string", types.Typed{Type: types.ParamBlob, Value: "ab"}, types.BoundParam{Value: []byte("ab"), Type: types.ParamBlob}},
		{"blob from nil", types.Typed{Type: types.ParamBlob}, types.BoundParam{Value: []byte{}, Type: types.ParamBlob}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Bind([]any{tt.value})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got[0])
		})
	}
}

func TestBind_Errors(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"struct", struct{ A int }{1}},
		{"map", map[string]int{"a": 1}},
		{"int slice", []int{1, 2}},
		{"channel", make(chan int)},
		{"uint64 overflow", uint64(math.MaxUint64)},
		{"override integer from junk", types.Typed{Type: types.ParamInteger, Value: "seven"}},
		{"override float from junk", types.Typed{Type: types.ParamFloat, Value: "x"}},
		{"override blob from int", types.Typed{Type: types.ParamBlob, Value: 3}},
		{"override unknown type", types.Typed{Type: "decimal", Value: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Bind([]any{"ok", tt.value})
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrUnsupportedParameterType)
			assert.Contains(t, err.Error(), "parameter 2")
		})
	}
}

func TestBind_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("integers bind as integer with the same value", prop.ForAll(
		func(n int64) bool {
			got, err := Bind([]any{n})
			return err == nil && got[0].Type == types.ParamInteger && got[0].Value == n
		},
		gen.Int64(),
	))

	properties.Property("strings bind as text unchanged", prop.ForAll(
		func(s string) bool {
			got, err := Bind([]any{s})
			return err == nil && got[0].Type == types.ParamText && got[0].Value == s
		},
		gen.AnyString(),
	))

	properties.Property("integer override round-trips decimal text", prop.ForAll(
		func(n int64) bool {
			got, err := Bind([]any{types.Typed{Type: types.ParamInteger, Value: paramText(integer(n))}})
			return err == nil && got[0].Value == n
		},
		gen.Int64(),
	))

	properties.Property("binding is deterministic and preserves length", prop.ForAll(
		func(ints []int, strs []string) bool {
			values := make([]any, 0, len(ints)+len(strs))
			for _, i := range ints {
				values = append(values, i)
			}
			for _, s := range strs {
				values = append(values, s)
			}
			a, errA := Bind(values)
			b, errB := Bind(values)
			if errA != nil || errB != nil || len(a) != len(values) {
				return false
			}
			for i := range a {
				if a[i] != b[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

func TestBindArgs(t *testing.T) {
	args, err := bindArgs(nil)
	assert.NoError(t, err)
	assert.Nil(t, args)

	args, err = bindArgs([]any{true, "a", nil})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), "a", nil}, args)

	_, err = bindArgs([]any{errors.New("x")})
	assert.ErrorIs(t, err, types.ErrUnsupportedParameterType)
}
