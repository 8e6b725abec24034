package sas7bdat

import (
	"fmt"
	"os"
)

// ByteSource is a random-access view over the bytes of a SAS7BDAT file. It
// is satisfied by an open file, a memory-mapped region, or an in-memory
// blob. Implementations need not be safe for concurrent use; a Reader owns
// exactly one ByteSource and never shares it across goroutines.
type ByteSource interface {
	// ReadAt reads len(p) bytes starting at byte offset off. It returns
	// an error if fewer than len(p) bytes could be read.
	ReadAt(p []byte, off int64) error

	// Len returns the total size of the underlying byte range.
	Len() int64

	// Close releases any resources held by the source (an open file
	// handle, for example). Closing a MemorySource is a no-op.
	Close() error
}

// FileSource is a ByteSource backed by an *os.File.
type FileSource struct {
	f    *os.File
	size int64
}

// NewFileSource opens path and returns a ByteSource over its contents.
func NewFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return WrapFileSource(f)
}

// WrapFileSource adapts an already-open file into a ByteSource. The Reader
// takes ownership and will Close it.
func WrapFileSource(f *os.File) (*FileSource, error) {
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &FileSource{f: f, size: st.Size()}, nil
}

func (s *FileSource) ReadAt(p []byte, off int64) error {
	n, err := s.f.ReadAt(p, off)
	if n < len(p) {
		if err == nil {
			err = ErrShortRead
		}
		return fmt.Errorf("sas7bdat: read %d of %d bytes at offset %d: %w", n, len(p), off, err)
	}
	return nil
}

func (s *FileSource) Len() int64 { return s.size }

func (s *FileSource) Close() error { return s.f.Close() }

// MemorySource is a ByteSource backed by an in-memory byte slice. Closing
// it has no effect; the caller retains ownership of the underlying slice.
type MemorySource struct {
	buf []byte
}

// NewMemorySource wraps buf (not copied) as a ByteSource.
func NewMemorySource(buf []byte) *MemorySource {
	return &MemorySource{buf: buf}
}

func (s *MemorySource) ReadAt(p []byte, off int64) error {
	if off < 0 || off+int64(len(p)) > int64(len(s.buf)) {
		return fmt.Errorf("sas7bdat: read %d bytes at offset %d: %w", len(p), off, ErrShortRead)
	}
	copy(p, s.buf[off:off+int64(len(p))])
	return nil
}

func (s *MemorySource) Len() int64 { return int64(len(s.buf)) }

func (s *MemorySource) Close() error { return nil }
