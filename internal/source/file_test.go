package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stream.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestFileSourceReadAndSeek(t *testing.T) {
	path := writeTempFile(t, []byte{10, 20, 30, 40, 50})
	fs := NewFileSource(path)
	require.NoError(t, fs.Open())
	defer fs.Close()

	assert.Equal(t, uint32(5), fs.Size())

	b, ok := fs.Read()
	require.True(t, ok)
	assert.Equal(t, byte(10), b)

	require.True(t, fs.Seek(3))
	b, ok = fs.Read()
	require.True(t, ok)
	assert.Equal(t, byte(40), b)
}

func TestFileSourceDataStartRelativeSeek(t *testing.T) {
	path := writeTempFile(t, []byte{0, 0, 0, 0, 1, 2, 3})
	fs := NewFileSource(path)
	require.NoError(t, fs.Open())
	defer fs.Close()

	fs.SetDataStart(4)
	require.True(t, fs.Seek(1))
	b, ok := fs.Read()
	require.True(t, ok)
	assert.Equal(t, byte(2), b)
}

func TestFileSourceHasMoreAtEOF(t *testing.T) {
	path := writeTempFile(t, []byte{1})
	fs := NewFileSource(path)
	require.NoError(t, fs.Open())
	defer fs.Close()

	assert.True(t, fs.HasMore())
	_, _ = fs.Read()
	assert.False(t, fs.HasMore())
	_, ok := fs.Read()
	assert.False(t, ok)
}
