package vgm

import (
	"log/slog"

	"github.com/dewi-tim/genesisplay/internal/bus"
	"github.com/dewi-tim/genesisplay/internal/pcm"
	"github.com/dewi-tim/genesisplay/internal/source"
)

// skipTable holds, for every opcode not given an explicit case in
// dispatch, the number of data bytes following it that must be
// skipped to stay synchronized with the stream. This is the Go analog of
// the reference implementation's skipCommand length table (§9 DESIGN
// NOTES: "a const [u8; 256] of data bytes following").
var skipTable = buildSkipTable()

func buildSkipTable() [256]byte {
	var t [256]byte
	setRange := func(lo, hi int, n byte) {
		for i := lo; i <= hi; i++ {
			t[i] = n
		}
	}
	setRange(0x30, 0x3F, 1)
	setRange(0x40, 0x4E, 2)
	t[0x4F] = 1
	setRange(0x51, 0x5F, 2)
	t[0x90] = 4
	t[0x91] = 4
	t[0x92] = 5
	t[0x93] = 10
	t[0x94] = 1
	t[0x95] = 4
	setRange(0xA0, 0xBF, 2)
	setRange(0xC0, 0xDF, 3)
	setRange(0xE1, 0xFF, 4)
	return t
}

// waitNTSC and waitPAL are the fixed frame-wait shorthand opcodes.
const (
	waitNTSC = 735
	waitPAL  = 882
)

// UnsupportedChipFunc is invoked synchronously whenever an opcode for a
// non-Genesis chip is encountered, per §6's callback surface.
type UnsupportedChipFunc func(cmd, reg, val byte)

// Interpreter drives a VGM opcode stream: it owns a PCM bank and forwards
// register writes to a ChipBus, parameterized over the concrete Source
// type per §9's generics-over-the-hot-loop guidance.
type Interpreter[S source.Source] struct {
	src    S
	bus    bus.ChipBus
	bank   *pcm.Bank
	header *Header

	finished bool
	loopHits uint32

	onUnsupported UnsupportedChipFunc
	log           *slog.Logger
}

// New builds an Interpreter bound to an already-header-parsed src (its
// data-start must already be set, e.g. via ParseHeader), a ChipBus, and a
// freshly constructed PCM bank. log may be nil.
func New[S source.Source](src S, chipBus bus.ChipBus, bank *pcm.Bank, header *Header, log *slog.Logger) *Interpreter[S] {
	if log == nil {
		log = slog.Default()
	}
	return &Interpreter[S]{src: src, bus: chipBus, bank: bank, header: header, log: log}
}

// SetUnsupportedChipFunc registers the callback for opcodes that target a
// chip other than YM2612/SN76489.
func (in *Interpreter[S]) SetUnsupportedChipFunc(fn UnsupportedChipFunc) {
	in.onUnsupported = fn
}

// Finished reports whether the stream has reached 0x66 (end of data) or
// run out of bytes.
func (in *Interpreter[S]) Finished() bool { return in.finished }

// Header returns the parsed VGM header.
func (in *Interpreter[S]) Header() *Header { return in.header }

// SeekToLoop repositions the source at the header's loop offset and
// clears the finished flag. Returns false if the header has no loop or
// the underlying source cannot service the seek.
func (in *Interpreter[S]) SeekToLoop() bool {
	if !in.header.HasLoop() {
		return false
	}
	if !in.src.Seek(in.header.LoopOffset - in.src.DataStart()) {
		return false
	}
	in.finished = false
	in.loopHits++
	return true
}

// LoopCount reports how many times SeekToLoop has succeeded.
func (in *Interpreter[S]) LoopCount() uint32 { return in.loopHits }

// TotalSamples, HasPSG, HasYM, and HasLoopDeclared expose the header
// fields the player's status surface needs, uniformly with the GEP
// interpreter, so engine.Player can treat either as a PlaybackInterpreter
// without caring which concrete header type backs it.
func (in *Interpreter[S]) TotalSamples() uint32   { return in.header.TotalSamples }
func (in *Interpreter[S]) HasPSG() bool           { return in.header.HasPSG }
func (in *Interpreter[S]) HasYM() bool            { return in.header.HasYM2612 }
func (in *Interpreter[S]) HasLoopDeclared() bool  { return in.header.HasLoop() }

// ProcessUntilWait reads and dispatches opcodes until one produces a
// nonzero wait-sample count, or the stream ends (returning 0, with
// Finished() becoming true).
func (in *Interpreter[S]) ProcessUntilWait() uint32 {
	for {
		cmd, ok := in.src.Read()
		if !ok {
			in.finished = true
			return 0
		}
		wait, consumed := in.dispatch(cmd)
		if !consumed {
			in.finished = true
			return 0
		}
		if wait > 0 {
			return wait
		}
	}
}

func (in *Interpreter[S]) dispatch(cmd byte) (wait uint32, ok bool) {
	switch {
	case cmd == 0x4F:
		in.skipData(1)
		return 0, true
	case cmd == 0x50:
		v, ok := in.src.Read()
		if !ok {
			return 0, false
		}
		in.bus.WritePSG(v)
		return 0, true
	case cmd == 0x51 || cmd == 0x54 || cmd == 0x55:
		reg, ok1 := in.src.Read()
		val, ok2 := in.src.Read()
		if !ok1 || !ok2 {
			return 0, false
		}
		if in.onUnsupported != nil {
			in.onUnsupported(cmd, reg, val)
		}
		return 0, true
	case cmd == 0x52 || cmd == 0x53:
		reg, ok1 := in.src.Read()
		val, ok2 := in.src.Read()
		if !ok1 || !ok2 {
			return 0, false
		}
		port := 0
		if cmd == 0x53 {
			port = 1
		}
		in.bus.WriteYM(port, reg, val)
		return 0, true
	case cmd == 0x61:
		lo, ok1 := in.src.Read()
		hi, ok2 := in.src.Read()
		if !ok1 || !ok2 {
			return 0, false
		}
		return uint32(lo) | uint32(hi)<<8, true
	case cmd == 0x62:
		return waitNTSC, true
	case cmd == 0x63:
		return waitPAL, true
	case cmd == 0x66:
		in.finished = true
		return 0, false
	case cmd == 0x67:
		return in.handleDataBlock()
	case cmd >= 0x70 && cmd <= 0x7F:
		return uint32(cmd&0x0F) + 1, true
	case cmd >= 0x80 && cmd <= 0x8F:
		in.bus.WriteDAC(in.bank.ReadByte())
		return uint32(cmd & 0x0F), true
	case cmd == 0xE0:
		pos, ok := source.ReadUint32LE(in.src)
		if !ok {
			return 0, false
		}
		in.bank.Seek(int(pos))
		return 0, true
	default:
		n := int(skipTable[cmd])
		in.skipData(n)
		return 0, true
	}
}

func (in *Interpreter[S]) skipData(n int) bool {
	for i := 0; i < n; i++ {
		if _, ok := in.src.Read(); !ok {
			return false
		}
	}
	return true
}

// handleDataBlock implements the 0x67 0x66 tt NNNNLE data-block path of
// §4.4: only a type-0x00 (YM2612 PCM) block reaches the PCM bank, every
// other type is drained.
func (in *Interpreter[S]) handleDataBlock() (uint32, bool) {
	marker, ok := in.src.Read()
	if !ok || marker != 0x66 {
		return 0, false
	}
	dataType, ok := in.src.Read()
	if !ok {
		return 0, false
	}
	size, ok := source.ReadUint32LE(in.src)
	if !ok {
		return 0, false
	}
	if dataType == 0x00 {
		in.bank.LoadDataBlock(in.src, int(size))
	} else {
		in.skipData(int(size))
	}
	return 0, true
}
