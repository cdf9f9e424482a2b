package bus

import "log/slog"

// LoggingBus wraps a ChipBus and emits a structured trace event for the
// state-changing calls that matter operationally (mute/reset transitions),
// while forwarding every write untouched. Per-byte tracing of WriteYM/
// WritePSG/WriteDAC is intentionally omitted: at 44100 writes/sec that
// would drown any real log sink, matching the restrained density the
// teacher's status surfaces use elsewhere.
type LoggingBus struct {
	Bus ChipBus
	Log *slog.Logger
}

// NewLoggingBus wraps bus with logging. A nil logger defaults to slog.Default().
func NewLoggingBus(b ChipBus, log *slog.Logger) *LoggingBus {
	if log == nil {
		log = slog.Default()
	}
	return &LoggingBus{Bus: b, Log: log}
}

func (l *LoggingBus) WriteYM(port int, reg, val byte) { l.Bus.WriteYM(port, reg, val) }
func (l *LoggingBus) WritePSG(val byte)               { l.Bus.WritePSG(val) }
func (l *LoggingBus) WriteDAC(sample byte)            { l.Bus.WriteDAC(sample) }

func (l *LoggingBus) MuteAll() {
	l.Log.Debug("chipbus mute_all")
	l.Bus.MuteAll()
}

func (l *LoggingBus) Reset() {
	l.Log.Debug("chipbus reset")
	l.Bus.Reset()
}

var _ ChipBus = (*LoggingBus)(nil)
