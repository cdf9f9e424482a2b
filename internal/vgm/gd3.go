package vgm

import (
	"encoding/binary"
	"errors"
	"unicode/utf16"

	"github.com/dewi-tim/genesisplay/internal/source"
)

// ErrNoGD3 is returned by ParseGD3 when the header carries no GD3 tag.
var ErrNoGD3 = errors.New("vgm: no gd3 tag")

var gd3Magic = []byte{0x47, 0x64, 0x33, 0x20} // "Gd3 "

// Metadata mirrors the teacher's Track surface (title/game/system/
// composer/date/encoder/notes), restoring the GD3-tag detail the
// distilled spec omits, per SPEC_FULL.md §4.
type Metadata struct {
	TitleEn, TitleJp       string
	GameEn, GameJp         string
	SystemEn, SystemJp     string
	ComposerEn, ComposerJp string
	Date                   string
	VGMBy                  string
	Notes                  string
}

// ParseGD3 reads the GD3 tag at h.GD3Offset from src. src must support
// seeking (all four Source variants do); absolute positions here are
// relative to src's DataStart, so callers pass the position relative to
// that base the same way the header offsets were computed.
func ParseGD3(src source.Source, h *Header) (*Metadata, error) {
	if h.GD3Offset == 0 {
		return nil, ErrNoGD3
	}
	if !src.Seek(h.GD3Offset - src.DataStart()) {
		return nil, ErrNoGD3
	}
	var tag [12]byte
	if src.ReadInto(tag[:]) != 12 {
		return nil, ErrNoGD3
	}
	if !bytesEqual(tag[0:4], gd3Magic) {
		return nil, ErrNoGD3
	}
	length := binary.LittleEndian.Uint32(tag[8:12])
	body := make([]byte, length)
	src.ReadInto(body)

	fields := splitUTF16NulTerminated(body)
	m := &Metadata{}
	assign := []*string{
		&m.TitleEn, &m.TitleJp,
		&m.GameEn, &m.GameJp,
		&m.SystemEn, &m.SystemJp,
		&m.ComposerEn, &m.ComposerJp,
		&m.Date, &m.VGMBy, &m.Notes,
	}
	for i, s := range assign {
		if i < len(fields) {
			*s = fields[i]
		}
	}
	return m, nil
}

// splitUTF16NulTerminated decodes a GD3 body (UTF-16LE, NUL-separated
// fields) into strings.
func splitUTF16NulTerminated(body []byte) []string {
	var fields []string
	var cur []uint16
	for i := 0; i+1 < len(body); i += 2 {
		u := binary.LittleEndian.Uint16(body[i : i+2])
		if u == 0 {
			fields = append(fields, string(utf16.Decode(cur)))
			cur = nil
			continue
		}
		cur = append(cur, u)
	}
	if len(cur) > 0 {
		fields = append(fields, string(utf16.Decode(cur)))
	}
	return fields
}
