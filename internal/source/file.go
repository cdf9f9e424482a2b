package source

import (
	"fmt"
	"io"
	"os"
)

// FileSource is a random-access Source backed by an OS file handle,
// grounded on SDSource: block-addressable storage with the same
// DataStart-relative seek convention as MemSource/ChunkedSource.
type FileSource struct {
	path      string
	file      *os.File
	size      uint32
	pos       uint32
	dataStart uint32
	open      bool
}

// NewFileSource prepares a FileSource for path without opening it.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) Open() error {
	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("source: open %s: %w", f.path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("source: stat %s: %w", f.path, err)
	}
	f.file = file
	f.size = uint32(info.Size())
	f.pos = 0
	f.open = true
	return nil
}

func (f *FileSource) Close() error {
	f.open = false
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}

func (f *FileSource) IsOpen() bool { return f.open }

func (f *FileSource) Read() (byte, bool) {
	var buf [1]byte
	n, err := f.file.ReadAt(buf[:], int64(f.pos))
	if n == 0 || err != nil {
		return 0, false
	}
	f.pos++
	return buf[0], true
}

func (f *FileSource) ReadInto(buf []byte) int {
	n, _ := f.file.ReadAt(buf, int64(f.pos))
	f.pos += uint32(n)
	return n
}

func (f *FileSource) Peek() (byte, bool) {
	var buf [1]byte
	n, err := f.file.ReadAt(buf[:], int64(f.pos))
	if n == 0 || err != nil {
		return 0, false
	}
	return buf[0], true
}

func (f *FileSource) HasMore() bool { return f.pos < f.size }

func (f *FileSource) Seek(pos uint32) bool {
	absolute := f.dataStart + pos
	if absolute > f.size {
		return false
	}
	if _, err := f.file.Seek(int64(absolute), io.SeekStart); err != nil {
		return false
	}
	f.pos = absolute
	return true
}

func (f *FileSource) Position() uint32 { return f.pos }

func (f *FileSource) Size() uint32 { return f.size }

func (f *FileSource) CanSeek() bool { return true }

func (f *FileSource) SetDataStart(offset uint32) { f.dataStart = offset }

func (f *FileSource) DataStart() uint32 { return f.dataStart }

// Filename returns the path of the underlying file as passed to
// NewFileSource, for display.
func (f *FileSource) Filename() string { return f.path }

var _ Source = (*FileSource)(nil)
