package keys

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/petatlas/internal/diag"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Gangnam", "Gangnam"},
		{" Gangnam", "Gangnam"},
		{"Gangnam ", "Gangnam"},
		{"\tJongno \n", "Jongno"},
		{"강남구\x00\x00", "강남구"},
		{"\uFEFF동별", "동별"},
		{"Jung gu", "Jung gu"},
		{"gangnam", "gangnam"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := Normalize(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_ComposesHangul(t *testing.T) {
	decomposed := norm.NFD.String("강남구")
	require.NotEqual(t, "강남구", decomposed)

	got, err := Normalize(decomposed)
	require.NoError(t, err)
	assert.Equal(t, "강남구", got)
}

func TestNormalize_Empty(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t\n", "\x00"} {
		_, err := Normalize(raw)
		require.Error(t, err)
		var ne *diag.NormalizationError
		assert.True(t, errors.As(err, &ne))
		assert.Equal(t, raw, ne.Raw)
	}
}

func TestNormalize_FixedPoint(t *testing.T) {
	inputs := []string{"", " ", " Gangnam", "Gangnam ", "  서초구  ", norm.NFD.String(" 종로구"), "a b", "\x00x\x00"}
	for _, in := range inputs {
		once := Canonical(in)
		twice := Canonical(once)
		assert.Equal(t, once, twice, "input %q", in)
	}
}

func TestResolve(t *testing.T) {
	header := []string{" 동별", "인구수 ", "세대수"}

	assert.Equal(t, 0, Resolve(header, Column{Field: "district", Names: []string{"자치구", "동별"}}))
	assert.Equal(t, 1, Resolve(header, Column{Field: "population", Names: []string{"인구수"}}))
	assert.Equal(t, -1, Resolve(header, Column{Field: "pets", Names: []string{"등록수"}}))
}

func TestResolve_FirstAliasWins(t *testing.T) {
	header := []string{"구", "자치구"}
	assert.Equal(t, 1, Resolve(header, Column{Names: []string{"자치구", "구"}}))
}

func TestSet(t *testing.T) {
	s := NewSet([]string{"Gangnam", "Jongno"})
	assert.True(t, s.Has("Gangnam"))
	assert.False(t, s.Has("Nonexistent"))
}
