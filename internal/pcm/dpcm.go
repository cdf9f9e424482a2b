package pcm

// dpcmSteps is the fixed 16-entry signed delta table used to decode 4-bit
// differential PCM, exactly as specified in §4.5.
var dpcmSteps = [16]int8{-34, -21, -13, -8, -5, -3, -1, 0, 1, 3, 5, 8, 13, 21, 34, 55}

// DPCMDecoder decodes a 4-bit differential PCM region: the first byte of
// the region is the initial 8-bit sample, and every subsequent byte packs
// two 4-bit step-table indices (high nibble first). It supports "seek to
// output sample n" by re-decoding from the start, matching the original's
// stateless re-initialization strategy (cheap relative to keeping a
// reverse index, and exactly reproducible).
type DPCMDecoder struct {
	region []byte // raw compressed region: region[0] is the initial sample
}

// NewDPCMDecoder wraps a raw compressed DPCM region. An empty region
// decodes to no samples at all.
func NewDPCMDecoder(region []byte) *DPCMDecoder {
	return &DPCMDecoder{region: region}
}

// Len reports the number of decodable output samples in the region:
// the initial sample plus two per subsequent byte.
func (d *DPCMDecoder) Len() int {
	if len(d.region) == 0 {
		return 0
	}
	return 1 + 2*(len(d.region)-1)
}

// DecodeAt returns the n-th output sample (0-indexed), decoding forward
// from the start each time, per §4.5's seek semantics: "re-initializing
// to the first byte and decoding n outputs forward".
func (d *DPCMDecoder) DecodeAt(n int) byte {
	if len(d.region) == 0 {
		return silenceByte
	}
	if n < 0 {
		n = 0
	}
	sample := int(d.region[0])
	if n == 0 {
		return clamp(sample)
	}
	remaining := n
	byteIdx := 1
	for remaining > 0 && byteIdx < len(d.region) {
		b := d.region[byteIdx]
		hi := int(b >> 4)
		sample = clampedStep(sample, hi)
		remaining--
		if remaining == 0 {
			break
		}
		lo := int(b & 0x0F)
		sample = clampedStep(sample, lo)
		remaining--
		byteIdx++
	}
	return clamp(sample)
}

func clampedStep(prev, idx int) int {
	return clampInt(prev + int(dpcmSteps[idx]))
}

func clampInt(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

func clamp(v int) byte { return byte(clampInt(v)) }
