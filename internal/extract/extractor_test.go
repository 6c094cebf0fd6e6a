package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFExtractor_FileTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "UG-202520_1AEL0244-8281.pdf")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", 2048)), 0600))

	e := NewPDFExtractor(WithMaxFileSize(1024))
	_, err := e.Extract(context.Background(), path)
	require.ErrorIs(t, err, ErrFileTooLarge)
}

func TestPDFExtractor_MissingFile(t *testing.T) {
	_, err := NewPDFExtractor().Extract(context.Background(), filepath.Join(t.TempDir(), "absent.pdf"))
	require.Error(t, err)
}

func TestPDFExtractor_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("plain text, not a PDF"), 0600))

	for _, validate := range []bool{true, false} {
		_, err := NewPDFExtractor(WithValidation(validate)).Extract(context.Background(), path)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrFileTooLarge)
	}
}

func TestValidate_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-garbage"), 0600))
	_, err := Validate(path)
	require.Error(t, err)
}
