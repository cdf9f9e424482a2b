package gep

import (
	"log/slog"

	"github.com/dewi-tim/genesisplay/internal/bus"
	"github.com/dewi-tim/genesisplay/internal/source"
)

const samplesPerFrame = 735

// ChunkOffsetter is implemented by sources that can report the absolute
// offset of a given chunk index (currently *source.ChunkedSource). It is
// used only to resolve a multi-chunk loop point (header LoopChunk +
// LoopOffset) into one absolute seek target.
type ChunkOffsetter interface {
	ChunkOffset(idx int) (uint32, bool)
}

// Interpreter drives a GEP opcode stream against a dictionary, a sample
// table, and a PCM region, forwarding register writes to a ChipBus.
type Interpreter[S source.Source] struct {
	src     S
	bus     bus.ChipBus
	dict    []DictEntry
	samples []SampleEntry
	pcm     *PCMRegion
	header  *Header

	finished bool
	loopHits uint32

	samplePlaying   bool
	sampleEnd       int
	sampleRate      uint32
	sampleWaitAccum uint32

	log *slog.Logger
}

// New builds an Interpreter. dict and samples are the out-of-band tables
// described in §3 (not part of the opcode Source); pcmRegion may be nil
// if the header declares neither DAC nor SAMPLES support. log may be nil.
func New[S source.Source](src S, chipBus bus.ChipBus, header *Header, dict []DictEntry, samples []SampleEntry, pcmRegion *PCMRegion, log *slog.Logger) *Interpreter[S] {
	if log == nil {
		log = slog.Default()
	}
	if pcmRegion == nil {
		pcmRegion = NewPCMRegion(nil, false)
	}
	return &Interpreter[S]{src: src, bus: chipBus, header: header, dict: dict, samples: samples, pcm: pcmRegion, log: log}
}

func (in *Interpreter[S]) Finished() bool  { return in.finished }
func (in *Interpreter[S]) Header() *Header { return in.header }
func (in *Interpreter[S]) LoopCount() uint32 { return in.loopHits }

// TotalSamples, HasPSG, HasYM, and HasLoopDeclared mirror the same
// accessors on vgm.Interpreter, so engine.Player can depend on a single
// PlaybackInterpreter interface regardless of format.
func (in *Interpreter[S]) TotalSamples() uint32  { return in.header.TotalSamples }
func (in *Interpreter[S]) HasPSG() bool          { return in.header.HasPSG() }
func (in *Interpreter[S]) HasYM() bool           { return in.header.HasYM2612() }
func (in *Interpreter[S]) HasLoopDeclared() bool { return in.header.HasLoop() }

// SeekToLoop resolves the header's loop point (chunk + offset, or a
// plain offset in single-chunk mode) to an absolute position and seeks
// there, clearing the finished flag on success.
func (in *Interpreter[S]) SeekToLoop() bool {
	if !in.header.HasLoop() {
		return false
	}
	var target uint32
	if in.header.MultiChunk() {
		co, ok := any(in.src).(ChunkOffsetter)
		if !ok {
			return false
		}
		base, ok2 := co.ChunkOffset(int(in.header.LoopChunk))
		if !ok2 {
			return false
		}
		target = base + uint32(in.header.LoopOffset)
	} else {
		target = uint32(in.header.LoopOffset)
	}
	if !in.src.Seek(target - in.src.DataStart()) {
		return false
	}
	in.finished = false
	in.loopHits++
	return true
}

// ProcessUntilWait reads and dispatches opcodes until one produces a
// nonzero wait, or the stream ends.
func (in *Interpreter[S]) ProcessUntilWait() uint32 {
	for {
		wait, ok := in.processCommand()
		if !ok {
			in.finished = true
			return 0
		}
		if wait > 0 {
			return wait
		}
	}
}

// AdvanceSampleStream is called by the player while consuming wait
// credit, in steps of `advance` samples, to service an active
// triggerSample/DAC-stream per §4.5: accumulate advance into
// sampleWaitAccum and emit exactly one DAC byte (resetting the
// accumulator, never carrying debt) once it reaches sampleRate.
func (in *Interpreter[S]) AdvanceSampleStream(advance uint32) {
	if !in.samplePlaying {
		return
	}
	in.sampleWaitAccum += advance
	if in.sampleWaitAccum >= in.sampleRate {
		in.bus.WriteDAC(in.pcm.ReadSample())
		in.sampleWaitAccum = 0
	}
	if in.pcm.Position() >= in.sampleEnd {
		in.samplePlaying = false
	}
}

func (in *Interpreter[S]) read() (byte, bool) { return in.src.Read() }

func (in *Interpreter[S]) readWord() (uint16, bool) {
	lo, ok1 := in.read()
	hi, ok2 := in.read()
	if !ok1 || !ok2 {
		return 0, false
	}
	return uint16(lo) | uint16(hi)<<8, true
}

func (in *Interpreter[S]) processCommand() (uint32, bool) {
	cmd, ok := in.read()
	if !ok {
		return 0, false
	}

	switch {
	case cmd <= 0x3F:
		return uint32(cmd&0x3F) + 1, true

	case cmd >= 0x40 && cmd <= 0x7F:
		in.writeDictEntry(int(cmd & 0x3F))
		return 0, true

	case cmd >= 0x80 && cmd <= 0x8F:
		count := int(cmd&0x0F) + 1
		for i := 0; i < count; i++ {
			v, ok := in.read()
			if !ok {
				return 0, false
			}
			in.bus.WritePSG(v)
		}
		return 0, true

	case cmd >= 0x90 && cmd <= 0x9F:
		return (uint32(cmd&0x0F) + 1) * samplesPerFrame, true

	case cmd >= 0xA0 && cmd <= 0xAB:
		in.writeKeyOnOff(cmd & 0x0F)
		return 0, true

	case cmd == 0xB0:
		idx, ok := in.read()
		if !ok {
			return 0, false
		}
		in.writeDictEntry(int(idx))
		return 0, true

	case cmd == 0xB1 || cmd == 0xB2:
		r, ok1 := in.read()
		v, ok2 := in.read()
		if !ok1 || !ok2 {
			return 0, false
		}
		port := 0
		if cmd == 0xB2 {
			port = 1
		}
		in.bus.WriteYM(port, r, v)
		return 0, true

	case cmd == 0xB3:
		v, ok := in.read()
		if !ok {
			return 0, false
		}
		in.bus.WritePSG(v)
		return 0, true

	case cmd == 0xB4:
		w, ok := in.readWord()
		if !ok {
			return 0, false
		}
		return uint32(w), true

	case cmd == 0xB5:
		return 0, true

	case cmd == 0xB6:
		in.bus.WriteDAC(in.pcm.ReadSample())
		return 0, true

	case cmd == 0xB7:
		w, ok := in.readWord()
		if !ok {
			return 0, false
		}
		in.pcm.Seek(int(w))
		return 0, true

	case cmd == 0xB8:
		count, ok1 := in.read()
		wait, ok2 := in.read()
		if !ok1 || !ok2 {
			return 0, false
		}
		for i := 0; i < int(count); i++ {
			in.bus.WriteDAC(in.pcm.ReadSample())
		}
		return uint32(count) * uint32(wait), true

	case cmd == 0xB9:
		count, ok := in.read()
		if !ok {
			return 0, false
		}
		var totalWait uint32
		for i := 0; i < int(count); i += 2 {
			packed, ok := in.read()
			if !ok {
				return 0, false
			}
			hiNibble := uint32(packed>>4) & 0x0F
			loNibble := uint32(packed) & 0x0F
			in.bus.WriteDAC(in.pcm.ReadSample())
			totalWait += hiNibble
			if i+1 < int(count) {
				in.bus.WriteDAC(in.pcm.ReadSample())
				totalWait += loNibble
			}
		}
		return totalWait, true

	case cmd == 0xBB:
		id, ok1 := in.read()
		rate, ok2 := in.read()
		if !ok1 || !ok2 {
			return 0, false
		}
		in.triggerSample(int(id), rate)
		return 0, true

	case cmd == 0xBC:
		w, ok1 := in.readWord()
		rate, ok2 := in.read()
		if !ok1 || !ok2 {
			return 0, false
		}
		in.pcm.Seek(int(w))
		in.startDACStream(rate)
		return 0, true

	case cmd >= 0xC0 && cmd <= 0xCF:
		in.bus.WriteDAC(in.pcm.ReadSample())
		return uint32(cmd & 0x0F), true

	case cmd >= 0xD0 && cmd <= 0xDF:
		rate, ok := in.read()
		if !ok {
			return 0, false
		}
		in.triggerSample(int(cmd&0x0F), rate)
		return 0, true

	case cmd == 0xFE:
		if in.src.HasMore() {
			return 0, true
		}
		return 0, false

	case cmd == 0xFF:
		return 0, false

	default:
		// Includes the undefined opcode 0xBA: treated as unknown and
		// skipped with zero data bytes, matching the reference
		// implementation's default branch.
		return 0, true
	}
}

func (in *Interpreter[S]) writeDictEntry(index int) {
	if index < 0 || index >= len(in.dict) {
		return
	}
	e := in.dict[index]
	in.bus.WriteYM(int(e.Port), e.Reg, e.Value)
}

func (in *Interpreter[S]) writeKeyOnOff(code byte) {
	channel := code % 6
	keyOn := code >= 6
	var chBits byte
	if channel < 3 {
		chBits = channel
	} else {
		chBits = channel + 1
	}
	val := chBits
	if keyOn {
		val |= 0xF0
	}
	in.bus.WriteYM(0, 0x28, val)
}

func (in *Interpreter[S]) triggerSample(id int, rate byte) {
	if id < 0 || id >= len(in.samples) {
		return
	}
	e := in.samples[id]
	in.pcm.Seek(int(e.Start))
	in.sampleEnd = int(e.Start) + int(e.Length)
	in.sampleRate = clampRate(rate)
	in.sampleWaitAccum = 0
	in.samplePlaying = true
}

func (in *Interpreter[S]) startDACStream(rate byte) {
	in.sampleEnd = in.pcm.Len()
	in.sampleRate = clampRate(rate)
	in.sampleWaitAccum = 0
	in.samplePlaying = true
}

// clampRate preserves the original's literal sampleRate_==0 clamp to 1,
// documented as a deliberate div-by-zero guard in §9.
func clampRate(rate byte) uint32 {
	if rate == 0 {
		return 1
	}
	return uint32(rate)
}
