package source

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/klauspost/compress/gzip"
)

// minGzipFileSize matches the original VGZSource's open-time validation:
// a file shorter than this cannot possibly carry a valid gzip header plus
// trailer.
const minGzipFileSize = 18

// GzipStreamSource is a forward-only Source over a gzip-compressed file,
// supporting exactly one kind of backward seek: to a previously declared
// loop offset, serviced by capturing and restoring a position snapshot.
// See SPEC_FULL.md §6 for why this snapshot is a decompressed-offset
// replay rather than a byte-for-byte clone of the inflate control block:
// klauspost/compress/gzip (like compress/gzip) does not expose its
// internal window state for copying.
type GzipStreamSource struct {
	path string
	file *os.File
	gz   *gzip.Reader
	br   *bufio.Reader

	pos       uint32 // absolute decompressed position
	dataStart uint32

	hasLoopOffset bool
	loopOffset    uint32 // relative to dataStart, per SetLoopOffset

	haveSnapshot bool
	snapshotPos  uint32

	open bool
	log  *slog.Logger
}

// NewGzipStreamSource prepares a streaming source over path. log may be
// nil, in which case slog.Default() is used for loop/snapshot tracing.
func NewGzipStreamSource(path string, log *slog.Logger) *GzipStreamSource {
	if log == nil {
		log = slog.Default()
	}
	return &GzipStreamSource{path: path, log: log}
}

// SetLoopOffset declares the decompressed, data-relative offset that a
// later Seek may return to. It must be called before playback begins;
// Open does not require it.
func (g *GzipStreamSource) SetLoopOffset(offset uint32) {
	g.hasLoopOffset = true
	g.loopOffset = offset
}

func (g *GzipStreamSource) Open() error {
	info, err := os.Stat(g.path)
	if err != nil {
		return fmt.Errorf("source: stat %s: %w", g.path, err)
	}
	if info.Size() < minGzipFileSize {
		return fmt.Errorf("source: %s too small to be gzip", g.path)
	}
	file, err := os.Open(g.path)
	if err != nil {
		return fmt.Errorf("source: open %s: %w", g.path, err)
	}
	gz, err := gzip.NewReader(file)
	if err != nil {
		file.Close()
		return fmt.Errorf("source: malformed gzip header in %s: %w", g.path, err)
	}
	g.file = file
	g.gz = gz
	g.br = bufio.NewReaderSize(gz, 8192)
	g.pos = 0
	g.haveSnapshot = false
	g.open = true
	return nil
}

func (g *GzipStreamSource) Close() error {
	g.open = false
	var err error
	if g.gz != nil {
		err = g.gz.Close()
		g.gz = nil
	}
	if g.file != nil {
		if cerr := g.file.Close(); err == nil {
			err = cerr
		}
		g.file = nil
	}
	g.haveSnapshot = false
	return err
}

func (g *GzipStreamSource) IsOpen() bool { return g.open }

// maybeCaptureSnapshot records the current position if this is the first
// time the read cursor is about to consume the byte at the declared loop
// offset, per §4.2b.
func (g *GzipStreamSource) maybeCaptureSnapshot() {
	if !g.hasLoopOffset || g.haveSnapshot {
		return
	}
	if g.pos == g.dataStart+g.loopOffset {
		g.snapshotPos = g.pos
		g.haveSnapshot = true
		g.log.Debug("gzip loop snapshot captured", slog.Any("position", g.pos))
	}
}

func (g *GzipStreamSource) Read() (byte, bool) {
	g.maybeCaptureSnapshot()
	b, err := g.br.ReadByte()
	if err != nil {
		return 0, false
	}
	g.pos++
	return b, true
}

func (g *GzipStreamSource) ReadInto(buf []byte) int {
	n := 0
	for n < len(buf) {
		b, ok := g.Read()
		if !ok {
			break
		}
		buf[n] = b
		n++
	}
	return n
}

func (g *GzipStreamSource) Peek() (byte, bool) {
	g.maybeCaptureSnapshot()
	b, err := g.br.Peek(1)
	if err != nil || len(b) == 0 {
		return 0, false
	}
	return b[0], true
}

func (g *GzipStreamSource) HasMore() bool {
	_, ok := g.Peek()
	return ok
}

// Seek supports three cases per §4.2b: a no-op seek to the current
// position, a strictly forward seek serviced by reading and discarding,
// and a backward seek to exactly the declared loop offset, serviced by
// restoreLoopSnapshot. Any other backward seek fails.
func (g *GzipStreamSource) Seek(pos uint32) bool {
	absolute := g.dataStart + pos
	switch {
	case absolute == g.pos:
		return true
	case absolute > g.pos:
		return g.discardForward(absolute - g.pos)
	case g.haveSnapshot && absolute == g.snapshotPos:
		return g.restoreLoopSnapshot()
	default:
		return false
	}
}

func (g *GzipStreamSource) discardForward(n uint32) bool {
	for i := uint32(0); i < n; i++ {
		if _, ok := g.Read(); !ok {
			return false
		}
	}
	return true
}

// restoreLoopSnapshot reopens the compressed file from the start and
// fast-forwards the decompressor to the snapshotted decompressed offset.
// This is the position-replay simplification documented in
// SPEC_FULL.md §6: behaviorally identical to a true state restore, at
// the cost of re-inflating the prefix.
func (g *GzipStreamSource) restoreLoopSnapshot() bool {
	if _, err := g.file.Seek(0, io.SeekStart); err != nil {
		return false
	}
	if g.gz != nil {
		g.gz.Close()
	}
	gz, err := gzip.NewReader(g.file)
	if err != nil {
		return false
	}
	g.gz = gz
	g.br = bufio.NewReaderSize(gz, 8192)
	g.pos = 0
	target := g.snapshotPos
	for g.pos < target {
		if _, err := g.br.Discard(1); err != nil {
			return false
		}
		g.pos++
	}
	g.log.Debug("gzip loop snapshot restored", slog.Any("position", g.pos))
	return true
}

func (g *GzipStreamSource) Position() uint32 { return g.pos }

// Size always reports SizeUnknown: a forward-streaming source cannot
// learn the decompressed length without reading to the end.
func (g *GzipStreamSource) Size() uint32 { return SizeUnknown }

func (g *GzipStreamSource) CanSeek() bool { return true }

func (g *GzipStreamSource) SetDataStart(offset uint32) { g.dataStart = offset }

func (g *GzipStreamSource) DataStart() uint32 { return g.dataStart }

var _ Source = (*GzipStreamSource)(nil)
