package engine

import (
	"log/slog"

	"github.com/dewi-tim/genesisplay/internal/bus"
)

// State mirrors the player's state machine from §3.
type State int

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	case StateFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// rolloverThreshold matches the original's 0x80000000 micros() overflow
// guard (spec §4.6 step 2), scaled up but kept as the literal 2^31 value
// the spec calls out, since the conversion formula below is only proven
// exact near that magnitude.
const rolloverThreshold = uint64(1) << 31

// samplesPerTenMs and tenMs are the constants of the integer-only
// microsecond-to-44100Hz-sample conversion in §4.6 and §9. Preserve this
// formula exactly; alternatives drift at minute scale.
const (
	samplesPerTenMs = 441
	tenMs           = 10000
)

// Player is TimedPlayer: a wall-clock-driven scheduler holding exactly
// one interpreter and a ChipBus handle for the lifetime of playback.
// Per §5, the scheduling model is single-threaded cooperative: Tick is
// the sole suspension point and callers must serialize Play/Pause/Stop/
// Tick calls themselves (or use Controller, which adds the teacher's
// atomic-flag-and-channel pattern around exactly that discipline).
type Player struct {
	interp PlaybackInterpreter
	bus    bus.ChipBus
	clock  Clock
	opts   Options
	log    *slog.Logger

	state         State
	startTimeUs   uint64
	samplesPlayed uint64
	waitCredit    uint32
}

// NewPlayer builds a Player bound to interp and chipBus. clock defaults
// to a WallClock if nil; log defaults to slog.Default() if nil.
func NewPlayer(interp PlaybackInterpreter, chipBus bus.ChipBus, clock Clock, opts Options, log *slog.Logger) *Player {
	if clock == nil {
		clock = NewWallClock()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Player{interp: interp, bus: chipBus, clock: clock, opts: opts, log: log, state: StateStopped}
}

// Play transitions Stopped or Finished into Playing and anchors the
// wall clock to the current sample position. Restarting a Finished
// stream from the beginning is the caller's responsibility (re-seek the
// Source and rebuild the interpreter) before calling Play again; Play
// itself never rewinds, matching the fact that nothing in §4.6 describes
// an implicit rewind-on-replay.
func (p *Player) Play() {
	if p.state != StateStopped && p.state != StateFinished {
		return
	}
	p.state = StatePlaying
	p.startTimeUs = p.clock.NowMicros()
	p.samplesPlayed = 0
	p.waitCredit = 0
}

// Pause transitions Playing into Paused and mutes the bus.
func (p *Player) Pause() {
	if p.state != StatePlaying {
		return
	}
	p.state = StatePaused
	p.bus.MuteAll()
}

// Resume transitions Paused back into Playing, recomputing the wall-clock
// anchor from samplesPlayed so position is preserved to sample accuracy.
func (p *Player) Resume() {
	if p.state != StatePaused {
		return
	}
	elapsedUs := p.samplesPlayed * tenMs / samplesPerTenMs
	p.state = StatePlaying
	p.startTimeUs = p.clock.NowMicros() - elapsedUs
}

// Stop performs a full chip reset via ChipBus and clears all counters.
func (p *Player) Stop() {
	p.bus.Reset()
	p.state = StateStopped
	p.samplesPlayed = 0
	p.waitCredit = 0
}

// Tick is the scheduler's sole suspension point, run as frequently as
// the caller likes (typically thousands of times per second). It
// advances virtual time up to the wall clock, consuming wait credit and
// invoking the interpreter as needed, per §4.6.
func (p *Player) Tick() {
	if p.state != StatePlaying {
		return
	}

	now := p.clock.NowMicros()
	elapsedUs := now - p.startTimeUs
	if elapsedUs > rolloverThreshold {
		p.startTimeUs = now
		elapsedUs = 0
	}

	targetSamples := (elapsedUs/tenMs)*samplesPerTenMs + ((elapsedUs%tenMs)*samplesPerTenMs)/tenMs

	for uint64(p.samplesPlayed) < targetSamples {
		if p.waitCredit > 0 {
			remaining := targetSamples - p.samplesPlayed
			toAdvance := uint64(p.waitCredit)
			if toAdvance > remaining {
				toAdvance = remaining
			}
			if streamer, ok := p.interp.(SampleStreamer); ok {
				streamer.AdvanceSampleStream(uint32(toAdvance))
			}
			p.waitCredit -= uint32(toAdvance)
			p.samplesPlayed += toAdvance
			if p.waitCredit > 0 {
				return
			}
		}

		wait := p.interp.ProcessUntilWait()
		if p.interp.Finished() {
			if p.opts.Looping && p.interp.SeekToLoop() {
				p.log.Debug("loop", slog.Uint64("loop_count", uint64(p.interp.LoopCount())))
				continue
			}
			p.bus.MuteAll()
			p.state = StateFinished
			p.log.Info("playback finished")
			return
		}
		p.waitCredit = wait
	}
}

// Status is the read-only snapshot surface of §6, safe to call at any
// time.
type Status struct {
	State        State
	TotalSamples uint32
	CurrentSample uint32
	LoopCount    uint16
	HasYM        bool
	HasPSG       bool
	HasLoop      bool
}

func (p *Player) StatusSnapshot() Status {
	return Status{
		State:         p.state,
		TotalSamples:  p.interp.TotalSamples(),
		CurrentSample: uint32(p.samplesPlayed),
		LoopCount:     uint16(p.interp.LoopCount()),
		HasYM:         p.interp.HasYM(),
		HasPSG:        p.interp.HasPSG(),
		HasLoop:       p.interp.HasLoopDeclared(),
	}
}

func (p *Player) State() State { return p.state }
