package vgm

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dewi-tim/genesisplay/internal/source"
)

// buildHeader returns a minHeaderReadSize-byte VGM header with the given
// fields poked in at their documented offsets, followed by extra trailing
// bytes representing the command stream.
func buildHeader(t *testing.T, version, snClock, ymClock, totalSamples, loopRel, loopSamples, gd3Rel, dataOffsetRel uint32, trailing []byte) []byte {
	t.Helper()
	buf := make([]byte, minHeaderReadSize)
	copy(buf[magicOffset:], vgmMagic)
	binary.LittleEndian.PutUint32(buf[versionOffset:], version)
	binary.LittleEndian.PutUint32(buf[sn76489ClkOffset:], snClock)
	binary.LittleEndian.PutUint32(buf[ym2612ClkOffset:], ymClock)
	binary.LittleEndian.PutUint32(buf[totalSampOffset:], totalSamples)
	binary.LittleEndian.PutUint32(buf[loopOffsetOffset:], loopRel)
	binary.LittleEndian.PutUint32(buf[loopSampOffset:], loopSamples)
	binary.LittleEndian.PutUint32(buf[gd3Offset:], gd3Rel)
	binary.LittleEndian.PutUint32(buf[dataOffsetOffset:], dataOffsetRel)
	return append(buf, trailing...)
}

func TestParseHeaderRejectsBadMagic(t *testing.T) {
	buf := make([]byte, minHeaderReadSize)
	src := source.NewMemSource(buf)
	require.NoError(t, src.Open())

	_, err := ParseHeader(src)
	assert.ErrorIs(t, err, ErrBadFormat)
}

func TestParseHeaderRejectsNoChipEnabled(t *testing.T) {
	buf := buildHeader(t, 0x150, 0, 0, 100, 0, 0, 0, 0x0C, nil)
	src := source.NewMemSource(buf)
	require.NoError(t, src.Open())

	_, err := ParseHeader(src)
	assert.ErrorIs(t, err, ErrBadFormat)
}

func TestParseHeaderPreVersion110IgnoresYM2612Clock(t *testing.T) {
	// Even with a nonzero YM2612 clock, versions below 0x110 never read
	// that field, so PSG alone must be what satisfies "a chip is enabled".
	buf := buildHeader(t, 0x100, 0x3579545, 0x7670453, 1000, 0, 0, 0, 0x0C, nil)
	src := source.NewMemSource(buf)
	require.NoError(t, src.Open())

	h, err := ParseHeader(src)
	require.NoError(t, err)
	assert.True(t, h.HasPSG)
	assert.False(t, h.HasYM2612)
}

func TestParseHeaderDefaultsDataOffsetBeforeV150(t *testing.T) {
	buf := buildHeader(t, 0x101, 0x3579545, 0x7670453, 1000, 0, 0, 0, 0, nil)
	src := source.NewMemSource(buf)
	require.NoError(t, src.Open())

	h, err := ParseHeader(src)
	require.NoError(t, err)
	assert.Equal(t, uint32(defaultDataOffset), h.DataOffset)
}

func TestParseHeaderHonorsExplicitDataOffsetAtV150(t *testing.T) {
	// Four padding bytes fill 0x40-0x43, so the command stream starts at 0x44.
	extra := []byte{0x00, 0x00, 0x00, 0x00, 0xAA, 0xBB, 0xCC}
	buf := buildHeader(t, 0x150, 0x3579545, 0x7670453, 1000, 0, 0, 0, 0x10, extra)

	src := source.NewMemSource(buf)
	require.NoError(t, src.Open())

	h, err := ParseHeader(src)
	require.NoError(t, err)
	// dataOffsetOffset(0x34) + rel(0x10) = 0x44
	assert.Equal(t, uint32(0x44), h.DataOffset)

	b, ok := src.Read()
	require.True(t, ok)
	assert.Equal(t, byte(0xAA), b)
}

func TestParseHeaderComputesAbsoluteLoopAndGD3Offsets(t *testing.T) {
	// loopRel=0x30 lands the absolute loop offset at 0x4C, inside the
	// [DataOffset(0x40), size) range the trailing bytes below extend to.
	buf := buildHeader(t, 0x150, 0x3579545, 0x7670453, 1000, 0x30, 500, 0x30, 0x0C, make([]byte, 0x10))
	src := source.NewMemSource(buf)
	require.NoError(t, src.Open())

	h, err := ParseHeader(src)
	require.NoError(t, err)
	assert.Equal(t, uint32(loopOffsetOffset)+0x30, h.LoopOffset)
	assert.Equal(t, uint32(gd3Offset)+0x30, h.GD3Offset)
	assert.True(t, h.HasLoop())
	assert.Equal(t, uint32(500), h.LoopSamples)
}

func TestParseHeaderRejectsLoopOffsetBelowDataOffset(t *testing.T) {
	// loopRel=0x08 -> absolute loop offset 0x24, dataOffsetRel=0x10 ->
	// DataOffset 0x44: the loop point would land before the command
	// stream even starts.
	buf := buildHeader(t, 0x150, 0x3579545, 0x7670453, 1000, 0x08, 0, 0, 0x10, make([]byte, 0x10))
	src := source.NewMemSource(buf)
	require.NoError(t, src.Open())

	_, err := ParseHeader(src)
	assert.ErrorIs(t, err, ErrBadFormat)
}

func TestParseHeaderRejectsLoopOffsetAtOrPastSourceSize(t *testing.T) {
	// loopRel=0x40 -> absolute loop offset 0x5C, but the stream is only
	// minHeaderReadSize (0x40) bytes long with no trailing command data.
	buf := buildHeader(t, 0x150, 0x3579545, 0x7670453, 1000, 0x40, 0, 0, 0x0C, nil)
	src := source.NewMemSource(buf)
	require.NoError(t, src.Open())

	_, err := ParseHeader(src)
	assert.ErrorIs(t, err, ErrBadFormat)
}

func TestParseHeaderNoLoopWhenOffsetFieldZero(t *testing.T) {
	buf := buildHeader(t, 0x150, 0x3579545, 0x7670453, 1000, 0, 0, 0, 0x0C, nil)
	src := source.NewMemSource(buf)
	require.NoError(t, src.Open())

	h, err := ParseHeader(src)
	require.NoError(t, err)
	assert.False(t, h.HasLoop())
	assert.Equal(t, uint32(0), h.LoopOffset)
}
