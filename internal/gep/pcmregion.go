package gep

import "github.com/dewi-tim/genesisplay/internal/pcm"

const silenceByte byte = 0x80

// PCMRegion is GEP's own PCM store: unlike VgmInterpreter's pcm.Bank, GEP
// never needs the allocation/downsample fallback (spec's Non-goals keep
// the file format itself small), so this is a plain byte region with an
// optional DPCM decode layer, matching §4.5's "software DPCM samples".
type PCMRegion struct {
	raw    []byte
	dpcm   *pcm.DPCMDecoder
	useDPCM bool
	pos    int
}

// NewPCMRegion wraps raw PCM bytes. If useDPCM is set, raw is treated as a
// 4-bit differential PCM region (first byte = initial sample) per the
// decoder in internal/pcm.
func NewPCMRegion(raw []byte, useDPCM bool) *PCMRegion {
	r := &PCMRegion{raw: raw, useDPCM: useDPCM}
	if useDPCM {
		r.dpcm = pcm.NewDPCMDecoder(raw)
	}
	return r
}

// Len reports the number of addressable output samples in the region.
func (r *PCMRegion) Len() int {
	if r.useDPCM {
		return r.dpcm.Len()
	}
	return len(r.raw)
}

// ReadSample returns the sample at the current position and advances it,
// returning silenceByte past the end of the region.
func (r *PCMRegion) ReadSample() byte {
	if r.pos >= r.Len() {
		return silenceByte
	}
	var v byte
	if r.useDPCM {
		v = r.dpcm.DecodeAt(r.pos)
	} else {
		v = r.raw[r.pos]
	}
	r.pos++
	return v
}

// Seek moves the read cursor to output-sample index n.
func (r *PCMRegion) Seek(n int) {
	if n < 0 {
		n = 0
	}
	r.pos = n
}

// Position returns the current output-sample index.
func (r *PCMRegion) Position() int { return r.pos }
