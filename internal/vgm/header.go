// Package vgm implements the VGM header parser and command interpreter
// (components C8 in SPEC_FULL.md): the industry-standard, sample-accurate
// register-write log format for the YM2612/SN76489 pair.
package vgm

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dewi-tim/genesisplay/internal/source"
)

// ErrBadFormat is returned by ParseHeader when the stream does not carry
// a valid VGM header.
var ErrBadFormat = errors.New("vgm: bad format")

const (
	magicOffset       = 0x00
	versionOffset     = 0x08
	sn76489ClkOffset  = 0x0C
	gd3Offset         = 0x14
	totalSampOffset   = 0x18
	loopOffsetOffset  = 0x1C
	loopSampOffset    = 0x20
	ym2612ClkOffset   = 0x2C
	dataOffsetOffset  = 0x34
	minHeaderReadSize = 0x40
	defaultDataOffset = 0x40
)

var vgmMagic = []byte{0x56, 0x67, 0x6D, 0x20} // "Vgm "

// Header holds the subset of the VGM header the engine needs to drive
// playback, plus the GD3 offset used by ParseGD3 for track metadata.
type Header struct {
	Version       uint32
	HasPSG        bool
	HasYM2612     bool
	TotalSamples  uint32
	LoopOffset    uint32 // absolute; 0 means no loop
	LoopSamples   uint32
	DataOffset    uint32 // absolute
	GD3Offset     uint32 // absolute; 0 means no GD3 tag
	SourceSize    uint32
}

// HasLoop reports whether the header declares a loop point.
func (h *Header) HasLoop() bool { return h.LoopOffset != 0 }

// ParseHeader reads and validates a VGM header from src, which must be
// freshly opened and positioned at byte 0. On success, src's data-start
// offset is set to Header.DataOffset and its cursor repositioned there,
// ready for the interpreter to read opcodes.
func ParseHeader(src source.Source) (*Header, error) {
	buf := make([]byte, minHeaderReadSize)
	n := src.ReadInto(buf)
	if n < 4 {
		return nil, fmt.Errorf("vgm: %w: truncated header", ErrBadFormat)
	}
	if !bytesEqual(buf[magicOffset:magicOffset+4], vgmMagic) {
		return nil, fmt.Errorf("vgm: %w: bad magic", ErrBadFormat)
	}

	h := &Header{SourceSize: src.Size()}
	h.Version = le32(buf, versionOffset)
	snClock := le32(buf, sn76489ClkOffset)
	h.HasPSG = snClock != 0

	if h.Version >= 0x110 {
		ymClock := le32(buf, ym2612ClkOffset)
		h.HasYM2612 = ymClock != 0
	}
	if !h.HasPSG && !h.HasYM2612 {
		return nil, fmt.Errorf("vgm: %w: no supported chip enabled", ErrBadFormat)
	}

	h.TotalSamples = le32(buf, totalSampOffset)
	h.LoopSamples = le32(buf, loopSampOffset)

	if loopRel := le32(buf, loopOffsetOffset); loopRel != 0 {
		h.LoopOffset = loopOffsetOffset + loopRel
	}

	if gd3Rel := le32(buf, gd3Offset); gd3Rel != 0 {
		h.GD3Offset = gd3Offset + gd3Rel
	}

	if h.Version >= 0x150 {
		rel := le32(buf, dataOffsetOffset)
		if rel == 0 {
			h.DataOffset = defaultDataOffset
		} else {
			h.DataOffset = dataOffsetOffset + rel
		}
	} else {
		h.DataOffset = defaultDataOffset
	}
	if h.DataOffset < defaultDataOffset {
		h.DataOffset = defaultDataOffset
	}

	if h.LoopOffset != 0 {
		if h.LoopOffset < h.DataOffset {
			return nil, fmt.Errorf("vgm: %w: loop offset %d precedes data offset %d", ErrBadFormat, h.LoopOffset, h.DataOffset)
		}
		if h.SourceSize != source.SizeUnknown && h.LoopOffset >= h.SourceSize {
			return nil, fmt.Errorf("vgm: %w: loop offset %d at or past source size %d", ErrBadFormat, h.LoopOffset, h.SourceSize)
		}
	}

	src.SetDataStart(h.DataOffset)
	if !src.Seek(0) {
		return nil, fmt.Errorf("vgm: %w: cannot seek to data offset %d", ErrBadFormat, h.DataOffset)
	}

	return h, nil
}

func le32(buf []byte, off int) uint32 {
	if off+4 > len(buf) {
		return 0
	}
	return binary.LittleEndian.Uint32(buf[off : off+4])
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
