// Package engine implements TimedPlayer (component C10): the wall-clock
// driven scheduler that owns a ChipBus handle and exactly one
// interpreter (VGM or GEP), which in turn reads from its Source, pulling
// commands until the stream's virtual time has caught up with wall-clock
// time.
package engine

// PlaybackInterpreter is the shared surface TimedPlayer drives, satisfied
// by both vgm.Interpreter[S] and gep.Interpreter[S] regardless of their
// concrete Source type parameter. Per the interpreter-dispatch design
// notes, each opcode stream's hot loop stays fully generic inside its own
// package; only this player-boundary seam uses dynamic dispatch, because
// the VGM/GEP choice is made at runtime (e.g. by file extension).
type PlaybackInterpreter interface {
	// ProcessUntilWait reads and dispatches opcodes until one produces a
	// nonzero wait-sample count, or the stream ends.
	ProcessUntilWait() uint32
	// Finished reports whether the interpreter has reached end-of-stream.
	Finished() bool
	// SeekToLoop repositions at the declared loop point, clearing
	// Finished on success. Returns false if there is no loop or the
	// underlying source could not service the seek.
	SeekToLoop() bool
	// LoopCount reports how many times SeekToLoop has succeeded.
	LoopCount() uint32

	TotalSamples() uint32
	HasPSG() bool
	HasYM() bool
	HasLoopDeclared() bool
}

// SampleStreamer is optionally implemented by a PlaybackInterpreter that
// services a sample/DAC stream during wait-credit consumption (GEP's
// triggerSample / DAC_START opcodes, §4.5). VGM has no equivalent: its
// 0x80-0x8F opcodes emit a DAC byte synchronously, not across a wait, so
// vgm.Interpreter intentionally does not implement this interface.
type SampleStreamer interface {
	AdvanceSampleStream(samples uint32)
}
