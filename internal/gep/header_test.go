package gep

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dewi-tim/genesisplay/internal/source"
)

func buildGEPHeader(flags uint16, dictCount, pcmBlockCount byte, totalSamples uint32, loopChunk, loopOffset uint16) []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:4], gepMagic)
	binary.LittleEndian.PutUint16(buf[4:6], flags)
	buf[6] = dictCount
	buf[7] = pcmBlockCount
	binary.LittleEndian.PutUint32(buf[8:12], totalSamples)
	binary.LittleEndian.PutUint16(buf[12:14], loopChunk)
	binary.LittleEndian.PutUint16(buf[14:16], loopOffset)
	return buf
}

func TestParseHeaderRejectsBadMagic(t *testing.T) {
	buf := make([]byte, headerSize)
	src := source.NewMemSource(buf)
	require.NoError(t, src.Open())

	_, err := ParseHeader(src)
	assert.ErrorIs(t, err, ErrBadFormat)
}

func TestParseHeaderDictCountZeroMeans256(t *testing.T) {
	buf := buildGEPHeader(FlagPSG|FlagYM2612, 0, 0, 1000, 0xFFFF, 0xFFFF)
	src := source.NewMemSource(buf)
	require.NoError(t, src.Open())

	h, err := ParseHeader(src)
	require.NoError(t, err)
	assert.Equal(t, 256, h.DictCount)
}

func TestParseHeaderDictCountNonzeroIsLiteral(t *testing.T) {
	buf := buildGEPHeader(FlagPSG, 40, 0, 1000, 0xFFFF, 0xFFFF)
	src := source.NewMemSource(buf)
	require.NoError(t, src.Open())

	h, err := ParseHeader(src)
	require.NoError(t, err)
	assert.Equal(t, 40, h.DictCount)
}

func TestHeaderFlagAccessors(t *testing.T) {
	h := &Header{Flags: FlagPSG | FlagDAC | FlagDPCM}
	assert.True(t, h.HasPSG())
	assert.False(t, h.HasYM2612())
	assert.True(t, h.HasDAC())
	assert.False(t, h.MultiChunk())
	assert.True(t, h.HasDPCM())
	assert.False(t, h.HasSamples())
}

func TestHeaderHasLoopRequiresBothFieldsAtSentinel(t *testing.T) {
	assert.False(t, (&Header{LoopChunk: 0xFFFF, LoopOffset: 0xFFFF}).HasLoop())
	assert.True(t, (&Header{LoopChunk: 0xFFFF, LoopOffset: 0x0010}).HasLoop())
	assert.True(t, (&Header{LoopChunk: 0x0001, LoopOffset: 0xFFFF}).HasLoop())
	assert.True(t, (&Header{LoopChunk: 0, LoopOffset: 0}).HasLoop())
}

func TestParseDictionaryReadsPackedEntries(t *testing.T) {
	buf := []byte{0, 0x28, 0xF0, 1, 0xA4, 0x23}
	src := source.NewMemSource(buf)
	require.NoError(t, src.Open())

	entries, err := ParseDictionary(src, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, DictEntry{Port: 0, Reg: 0x28, Value: 0xF0}, entries[0])
	assert.Equal(t, DictEntry{Port: 1, Reg: 0xA4, Value: 0x23}, entries[1])
}

func TestParseDictionaryFailsOnTruncation(t *testing.T) {
	src := source.NewMemSource([]byte{0, 1})
	require.NoError(t, src.Open())

	_, err := ParseDictionary(src, 1)
	assert.Error(t, err)
}

func TestParseSampleTableReadsEntries(t *testing.T) {
	buf := make([]byte, 5)
	binary.LittleEndian.PutUint16(buf[0:2], 10)
	binary.LittleEndian.PutUint16(buf[2:4], 200)
	buf[4] = 3
	src := source.NewMemSource(buf)
	require.NoError(t, src.Open())

	entries, err := ParseSampleTable(src, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, SampleEntry{Start: 10, Length: 200, Rate: 3}, entries[0])
}
