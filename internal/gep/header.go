// Package gep implements the compact GEP ("Genesis Engine Packed") header
// parser and command interpreter (component C9 in SPEC_FULL.md): a
// dictionary-indexed, packed-DAC-run re-encoding of VGM, roughly 2-4x
// smaller for the same audible result.
package gep

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dewi-tim/genesisplay/internal/source"
)

// ErrBadFormat is returned by ParseHeader when the stream does not carry
// a valid GEP header.
var ErrBadFormat = errors.New("gep: bad format")

// Header flag bits, matching GEPPlayer.h's GEP_FLAG_* constants.
const (
	FlagPSG        uint16 = 0x01
	FlagYM2612     uint16 = 0x02
	FlagDAC        uint16 = 0x04
	FlagMultiChunk uint16 = 0x08
	FlagDPCM       uint16 = 0x10
	FlagSamples    uint16 = 0x20
)

const headerSize = 16

var gepMagic = []byte{'G', 'E', 'P', 0x01}

// Header is the 16-byte GEP stream header of §3.
type Header struct {
	Flags         uint16
	DictCount     int // resolved: a header byte of 0 means 256
	PCMBlockCount byte
	TotalSamples  uint32
	LoopChunk     uint16
	LoopOffset    uint16
}

func (h *Header) HasPSG() bool    { return h.Flags&FlagPSG != 0 }
func (h *Header) HasYM2612() bool { return h.Flags&FlagYM2612 != 0 }
func (h *Header) HasDAC() bool    { return h.Flags&FlagDAC != 0 }
func (h *Header) MultiChunk() bool { return h.Flags&FlagMultiChunk != 0 }
func (h *Header) HasDPCM() bool   { return h.Flags&FlagDPCM != 0 }
func (h *Header) HasSamples() bool { return h.Flags&FlagSamples != 0 }

// HasLoop reports whether the header declares a loop point: both
// LoopChunk and LoopOffset being 0xFFFF means no loop, per §3.
func (h *Header) HasLoop() bool {
	return !(h.LoopChunk == 0xFFFF && h.LoopOffset == 0xFFFF)
}

// ParseHeader reads a 16-byte GEP header from src, starting at its
// current position.
func ParseHeader(src source.Source) (*Header, error) {
	buf := make([]byte, headerSize)
	n := src.ReadInto(buf)
	if n < headerSize {
		return nil, fmt.Errorf("gep: %w: truncated header", ErrBadFormat)
	}
	if !bytesEqual(buf[0:4], gepMagic) {
		return nil, fmt.Errorf("gep: %w: bad magic", ErrBadFormat)
	}
	h := &Header{}
	h.Flags = binary.LittleEndian.Uint16(buf[4:6])
	dictByte := buf[6]
	if dictByte == 0 {
		h.DictCount = 256
	} else {
		h.DictCount = int(dictByte)
	}
	h.PCMBlockCount = buf[7]
	h.TotalSamples = binary.LittleEndian.Uint32(buf[8:12])
	h.LoopChunk = binary.LittleEndian.Uint16(buf[12:14])
	h.LoopOffset = binary.LittleEndian.Uint16(buf[14:16])
	return h, nil
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

// DictEntry is one immutable (port, reg, value) write dictionary slot.
type DictEntry struct {
	Port  byte
	Reg   byte
	Value byte
}

// ParseDictionary reads count 3-byte entries from src.
func ParseDictionary(src source.Source, count int) ([]DictEntry, error) {
	entries := make([]DictEntry, 0, count)
	for i := 0; i < count; i++ {
		var buf [3]byte
		if src.ReadInto(buf[:]) != 3 {
			return nil, fmt.Errorf("gep: truncated dictionary at entry %d", i)
		}
		entries = append(entries, DictEntry{Port: buf[0], Reg: buf[1], Value: buf[2]})
	}
	return entries, nil
}

// SampleEntry is one entry of the sample table referenced by the
// GEP_CMD_SAMPLE_PLAY / GEP_CMD_SAMPLE_BASE opcodes.
type SampleEntry struct {
	Start  uint16
	Length uint16
	Rate   byte
}

// ParseSampleTable reads count 5-byte entries from src.
func ParseSampleTable(src source.Source, count int) ([]SampleEntry, error) {
	entries := make([]SampleEntry, 0, count)
	for i := 0; i < count; i++ {
		var buf [5]byte
		if src.ReadInto(buf[:]) != 5 {
			return nil, fmt.Errorf("gep: truncated sample table at entry %d", i)
		}
		entries = append(entries, SampleEntry{
			Start:  binary.LittleEndian.Uint16(buf[0:2]),
			Length: binary.LittleEndian.Uint16(buf[2:4]),
			Rate:   buf[4],
		})
	}
	return entries, nil
}
