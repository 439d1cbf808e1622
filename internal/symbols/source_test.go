package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScriptSource_ParsesAndCycles(t *testing.T) {
	src, err := NewScriptSource("^&#.")
	require.NoError(t, err)

	assert.Equal(t, Entangle, src.Next(0, 0))
	assert.Equal(t, Cohere, src.Next(0, 1))
	assert.Equal(t, Distort, src.Next(0, 2))
	assert.Equal(t, Rest, src.Next(0, 3))
	assert.Equal(t, Entangle, src.Next(0, 4), "script should cycle")
	assert.Equal(t, "^&#.", src.Script())
}

func TestNewScriptSource_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"unknown symbol", "^&x."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScriptSource(tt.script)
			assert.Error(t, err)
		})
	}
}

func TestRandomSource_DeterministicForSeed(t *testing.T) {
	a := NewRandomSource(42, nil)
	b := NewRandomSource(42, nil)

	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Next(0, i), b.Next(0, i))
	}
}

func TestRandomSource_RespectsAlphabet(t *testing.T) {
	src := NewRandomSource(1, []Symbol{Rest})

	for i := 0; i < 20; i++ {
		assert.Equal(t, Rest, src.Next(0, i))
	}
}
