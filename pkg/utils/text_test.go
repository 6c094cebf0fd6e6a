package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hello...", Truncate("hello world", 5))
	assert.Equal(t, "x", Truncate("x", 0))
	assert.Equal(t, "Cálc...", Truncate("Cálculo", 4), "cuts on runes")
}

func TestFoldAccents(t *testing.T) {
	tests := map[string]string{
		"Cálculo I":           "calculo i",
		"INFORMACIÓN GENERAL": "informacion general",
		"Diseño":              "diseno",
		"plain":               "plain",
		"":                    "",
	}
	for in, want := range tests {
		assert.Equal(t, want, FoldAccents(in), in)
	}
}
