package nullable

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_ZeroIsMissing(t *testing.T) {
	var v Value[int64]
	assert.False(t, v.Present())
	_, ok := v.Get()
	assert.False(t, ok)
	assert.Equal(t, int64(7), v.Or(7))
}

func TestValue_ZeroIsNotMissing(t *testing.T) {
	v := Of[int64](0)
	assert.True(t, v.Present())
	got, ok := v.Get()
	assert.True(t, ok)
	assert.Equal(t, int64(0), got)
}

func TestRatio(t *testing.T) {
	tests := []struct {
		name    string
		num     Value[int64]
		den     Value[int64]
		want    float64
		present bool
	}{
		{"both present", Of[int64](200), Of[int64](50), 4.0, true},
		{"zero denominator", Of[int64](200), Of[int64](0), 0, false},
		{"missing numerator", Missing[int64](), Of[int64](50), 0, false},
		{"missing denominator", Of[int64](200), Missing[int64](), 0, false},
		{"zero numerator", Of[int64](0), Of[int64](50), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Ratio(tt.num, tt.den)
			v, ok := got.Get()
			assert.Equal(t, tt.present, ok)
			if tt.present {
				assert.InDelta(t, tt.want, v, 1e-9)
				assert.False(t, math.IsInf(v, 0))
			}
		})
	}
}

func TestScale(t *testing.T) {
	assert.False(t, Scale(Missing[float64](), 100).Present())
	v, ok := Scale(Of(0.5), 100).Get()
	require.True(t, ok)
	assert.InDelta(t, 50.0, v, 1e-9)
}

func TestValue_JSON(t *testing.T) {
	type rec struct {
		A Value[int64]   `json:"a"`
		B Value[float64] `json:"b"`
	}
	data, err := json.Marshal(rec{A: Of[int64](150000)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":150000,"b":null}`, string(data))

	var back rec
	require.NoError(t, json.Unmarshal([]byte(`{"a":null,"b":2.5}`), &back))
	assert.False(t, back.A.Present())
	assert.Equal(t, 2.5, back.B.Or(0))
}

func TestValue_String(t *testing.T) {
	assert.Equal(t, "", Missing[int64]().String())
	assert.Equal(t, "42", Of[int64](42).String())
	assert.Equal(t, "4", Of(4.0).String())
}
