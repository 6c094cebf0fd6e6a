package fileid

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigest(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.pdf")
	b := filepath.Join(dir, "b.pdf")
	c := filepath.Join(dir, "c.pdf")
	require.NoError(t, os.WriteFile(a, []byte("%PDF-1.4 same"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("%PDF-1.4 same"), 0644))
	require.NoError(t, os.WriteFile(c, []byte("%PDF-1.4 other"), 0644))

	da, err := Digest(a)
	require.NoError(t, err)
	db, err := Digest(b)
	require.NoError(t, err)
	dc, err := Digest(c)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(da, digestPrefix))
	assert.Equal(t, da, db)
	assert.NotEqual(t, da, dc)

	_, err = Digest(filepath.Join(dir, "missing.pdf"))
	assert.True(t, os.IsNotExist(err))
}
