package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempGzip(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stream.vgz")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gw := gzip.NewWriter(f)
	_, err = gw.Write(data)
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	return path
}

func TestGzipStreamSourceRejectsTooSmallFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.vgz")
	require.NoError(t, os.WriteFile(path, []byte{0x1f, 0x8b, 0x08}, 0o644))

	gs := NewGzipStreamSource(path, nil)
	assert.Error(t, gs.Open())
}

func TestGzipStreamSourceReadsDecompressedBytes(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	path := writeTempGzip(t, payload)

	gs := NewGzipStreamSource(path, nil)
	require.NoError(t, gs.Open())
	defer gs.Close()

	var got []byte
	for gs.HasMore() {
		b, ok := gs.Read()
		require.True(t, ok)
		got = append(got, b)
	}
	assert.Equal(t, payload, got)
}

func TestGzipStreamSourceSeekForwardDiscards(t *testing.T) {
	payload := []byte{10, 20, 30, 40, 50}
	path := writeTempGzip(t, payload)

	gs := NewGzipStreamSource(path, nil)
	require.NoError(t, gs.Open())
	defer gs.Close()

	require.True(t, gs.Seek(3))
	b, ok := gs.Read()
	require.True(t, ok)
	assert.Equal(t, byte(40), b)
}

func TestGzipStreamSourceBackwardSeekWithoutLoopOffsetFails(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5}
	path := writeTempGzip(t, payload)

	gs := NewGzipStreamSource(path, nil)
	require.NoError(t, gs.Open())
	defer gs.Close()

	require.True(t, gs.Seek(4))
	assert.False(t, gs.Seek(1))
}

func TestGzipStreamSourceLoopSnapshotRestore(t *testing.T) {
	payload := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	path := writeTempGzip(t, payload)

	gs := NewGzipStreamSource(path, nil)
	gs.SetLoopOffset(3)
	require.NoError(t, gs.Open())
	defer gs.Close()

	// The snapshot is taken when the byte at the loop offset is read, so
	// read through byte 3 before checking it.
	for gs.Position() <= 3 {
		_, ok := gs.Read()
		require.True(t, ok)
	}
	assert.True(t, gs.haveSnapshot)
	assert.Equal(t, uint32(3), gs.snapshotPos)

	for gs.Position() < 8 {
		_, ok := gs.Read()
		require.True(t, ok)
	}

	require.True(t, gs.Seek(3))
	assert.Equal(t, uint32(3), gs.Position())
	b, ok := gs.Read()
	require.True(t, ok)
	assert.Equal(t, byte(3), b)
}

func TestGzipStreamSourceSizeAlwaysUnknown(t *testing.T) {
	path := writeTempGzip(t, []byte{1, 2, 3})
	gs := NewGzipStreamSource(path, nil)
	require.NoError(t, gs.Open())
	defer gs.Close()

	assert.Equal(t, SizeUnknown, gs.Size())
	assert.True(t, gs.CanSeek())
}
