package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlphabetExcludesAmbiguousCharacters(t *testing.T) {
	for _, c := range "il1Lo0O" {
		assert.False(t, strings.ContainsRune(Alphabet, c), "alphabet must not contain %q", c)
	}
}

func TestGenerate(t *testing.T) {
	g := New(6)

	for i := 0; i < 100; i++ {
		code, err := g.Generate()
		require.NoError(t, err)
		assert.Len(t, code, 6)
		assert.True(t, IsValidCode(code), "generated code %q must be valid", code)
	}
}

func TestGenerateWithLength(t *testing.T) {
	g := New(6)

	code, err := g.GenerateWithLength(7)
	require.NoError(t, err)
	assert.Len(t, code, 7)

	_, err = g.GenerateWithLength(0)
	assert.Error(t, err)
}

func TestGenerateDistinctness(t *testing.T) {
	g := New(8)

	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		code, err := g.Generate()
		require.NoError(t, err)
		seen[code] = struct{}{}
	}
	// 55^8 possible codes; a collision inside 1000 draws means a broken source.
	assert.Len(t, seen, 1000)
}

func TestFromURLDeterministic(t *testing.T) {
	g := New(6)

	a := g.FromURL("https://example.com/page")
	b := g.FromURL("https://example.com/page")
	assert.Equal(t, a, b)
	assert.Len(t, a, 6)
	assert.True(t, IsValidCode(a))

	c := g.FromURL("https://example.com/other")
	assert.NotEqual(t, a, c)
}

func TestIsValidCode(t *testing.T) {
	tests := []struct {
		name string
		code string
		want bool
	}{
		{"empty", "", false},
		{"simple", "abc234", true},
		{"contains ambiguous l", "abcl34", false},
		{"contains ambiguous 0", "abc034", false},
		{"contains symbol", "abc-34", false},
		{"contains space", "ab c34", false},
		{"at ceiling", strings.Repeat("a", MaxCodeLength), true},
		{"over ceiling", strings.Repeat("a", MaxCodeLength+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidCode(tt.code))
		})
	}
}
