package source

// MaxChunks bounds the chunk count, grounded on ChunkedProgmemSource.h's
// uint8_t chunk index: the seek implementation below linear-scans chunks,
// which is only acceptable while the chunk count stays small.
const MaxChunks = 255

// ChunkedSource stitches an ordered sequence of bounded byte chunks into
// one logical, randomly seekable stream. It is the Go analog of
// ChunkedProgmemSource, used when a command stream is split across
// several independently-addressable memory regions (e.g. GEP multi-chunk
// mode).
type ChunkedSource struct {
	chunks    [][]byte
	offsets   []uint32 // absolute start offset of each chunk
	total     uint32
	pos       uint32
	dataStart uint32
	open      bool
}

// NewChunkedSource builds a ChunkedSource from chunks in order. It panics
// if more than MaxChunks chunks are supplied, matching the original's
// uint8_t-indexed chunk table: exceeding it is a programmer error, not a
// runtime condition to recover from.
func NewChunkedSource(chunks [][]byte) *ChunkedSource {
	if len(chunks) > MaxChunks {
		panic("source: too many chunks")
	}
	offsets := make([]uint32, len(chunks))
	var total uint32
	for i, c := range chunks {
		offsets[i] = total
		total += uint32(len(c))
	}
	return &ChunkedSource{chunks: chunks, offsets: offsets, total: total}
}

func (c *ChunkedSource) Open() error {
	c.open = true
	c.pos = 0
	return nil
}

func (c *ChunkedSource) Close() error {
	c.open = false
	return nil
}

func (c *ChunkedSource) IsOpen() bool { return c.open }

// locate returns the chunk index and offset within it for an absolute
// position. ok is false if pos is at or past the end of the stream.
func (c *ChunkedSource) locate(pos uint32) (chunkIdx int, inChunk uint32, ok bool) {
	if pos >= c.total {
		return 0, 0, false
	}
	for i := len(c.offsets) - 1; i >= 0; i-- {
		if pos >= c.offsets[i] {
			return i, pos - c.offsets[i], true
		}
	}
	return 0, 0, false
}

func (c *ChunkedSource) Read() (byte, bool) {
	idx, off, ok := c.locate(c.pos)
	if !ok {
		return 0, false
	}
	b := c.chunks[idx][off]
	c.pos++
	return b, true
}

func (c *ChunkedSource) ReadInto(buf []byte) int {
	n := 0
	for n < len(buf) {
		b, ok := c.Read()
		if !ok {
			break
		}
		buf[n] = b
		n++
	}
	return n
}

func (c *ChunkedSource) Peek() (byte, bool) {
	idx, off, ok := c.locate(c.pos)
	if !ok {
		return 0, false
	}
	return c.chunks[idx][off], true
}

func (c *ChunkedSource) HasMore() bool { return c.pos < c.total }

// Seek moves the cursor to the absolute target position; the chunk
// containing it is found by linear scan (locate) on the next read,
// matching the original's documented approach (chunk count is small).
// pos == total length is a valid "seek to end" position.
func (c *ChunkedSource) Seek(pos uint32) bool {
	absolute := c.dataStart + pos
	if absolute > c.total {
		return false
	}
	c.pos = absolute
	return true
}

func (c *ChunkedSource) Position() uint32 { return c.pos }

func (c *ChunkedSource) Size() uint32 { return c.total }

func (c *ChunkedSource) CanSeek() bool { return true }

func (c *ChunkedSource) SetDataStart(offset uint32) { c.dataStart = offset }

func (c *ChunkedSource) DataStart() uint32 { return c.dataStart }

// ChunkOffset reports the absolute start offset of chunk idx, letting a
// caller combine a chunk index with an in-chunk offset (as GEP's
// multi-chunk loop point does) into one absolute seek target.
func (c *ChunkedSource) ChunkOffset(idx int) (uint32, bool) {
	if idx < 0 || idx >= len(c.offsets) {
		return 0, false
	}
	return c.offsets[idx], true
}

var _ Source = (*ChunkedSource)(nil)
