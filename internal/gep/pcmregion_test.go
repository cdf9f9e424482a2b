package gep

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPCMRegionPlainReadAndSeek(t *testing.T) {
	r := NewPCMRegion([]byte{1, 2, 3, 4}, false)
	assert.Equal(t, 4, r.Len())

	assert.Equal(t, byte(1), r.ReadSample())
	assert.Equal(t, byte(2), r.ReadSample())

	r.Seek(0)
	assert.Equal(t, byte(1), r.ReadSample())

	r.Seek(10)
	assert.Equal(t, silenceByte, r.ReadSample())
}

func TestPCMRegionPastEndReturnsSilence(t *testing.T) {
	r := NewPCMRegion([]byte{1, 2}, false)
	r.ReadSample()
	r.ReadSample()
	assert.Equal(t, silenceByte, r.ReadSample())
}

func TestPCMRegionDPCMDecodesThroughDecoder(t *testing.T) {
	r := NewPCMRegion([]byte{100, 0x96}, true)
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, byte(100), r.ReadSample())
	assert.Equal(t, byte(103), r.ReadSample())
	assert.Equal(t, byte(102), r.ReadSample())
}

func TestPCMRegionSeekClampsNegative(t *testing.T) {
	r := NewPCMRegion([]byte{9, 8, 7}, false)
	r.Seek(-5)
	assert.Equal(t, 0, r.Position())
	assert.Equal(t, byte(9), r.ReadSample())
}
