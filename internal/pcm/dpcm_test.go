package pcm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDPCMDecoderEmptyRegion(t *testing.T) {
	d := NewDPCMDecoder(nil)
	assert.Equal(t, 0, d.Len())
	assert.Equal(t, byte(0x80), d.DecodeAt(0))
}

func TestDPCMDecoderLenCountsInitialPlusTwoPerByte(t *testing.T) {
	d := NewDPCMDecoder([]byte{0x80, 0x00, 0x00})
	assert.Equal(t, 5, d.Len())
}

func TestDPCMDecoderFirstSampleIsVerbatim(t *testing.T) {
	d := NewDPCMDecoder([]byte{0x7F, 0x00})
	assert.Equal(t, byte(0x7F), d.DecodeAt(0))
}

func TestDPCMDecoderAppliesStepsInNibbleOrder(t *testing.T) {
	// Step index 9 maps to +3, step index 6 maps to -1, per dpcmSteps.
	// Byte 0x96 packs high nibble 9 then low nibble 6.
	d := NewDPCMDecoder([]byte{100, 0x96})

	assert.Equal(t, byte(100), d.DecodeAt(0))
	assert.Equal(t, byte(103), d.DecodeAt(1))
	assert.Equal(t, byte(102), d.DecodeAt(2))
}

func TestDPCMDecoderClampsAtZeroAndMax(t *testing.T) {
	// Step index 0 maps to -34: repeated applications from a low start
	// must clamp at 0, not wrap.
	low := NewDPCMDecoder([]byte{10, 0x00, 0x00})
	assert.Equal(t, byte(0), low.DecodeAt(1))
	assert.Equal(t, byte(0), low.DecodeAt(2))

	// Step index 15 maps to +55: repeated applications from a high start
	// must clamp at 255.
	high := NewDPCMDecoder([]byte{250, 0xFF, 0xFF})
	assert.Equal(t, byte(255), high.DecodeAt(1))
	assert.Equal(t, byte(255), high.DecodeAt(2))
}

func TestDPCMDecoderIsStatelessAcrossOutOfOrderCalls(t *testing.T) {
	d := NewDPCMDecoder([]byte{100, 0x96, 0x19})

	forward := []byte{
		d.DecodeAt(0),
		d.DecodeAt(1),
		d.DecodeAt(2),
		d.DecodeAt(3),
		d.DecodeAt(4),
	}

	assert.Equal(t, d.DecodeAt(2), forward[2])
	assert.Equal(t, d.DecodeAt(0), forward[0])
	assert.Equal(t, d.DecodeAt(4), forward[4])
}
