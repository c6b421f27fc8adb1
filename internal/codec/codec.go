// Package codec drives the lsb embedders over a carrier stream.
//
// A Stream pairs a carrier source with a destination and advances both strictly
// sequentially, one window at a time, so only a single window is ever held in memory.
package codec

import (
	"errors"
	"fmt"
	"io"

	"github.com/zedseven/bmpsteg/internal/lsb"
)

const (
	// TailChunkSize is the buffer size used when copying the untouched remainder of the carrier.
	TailChunkSize = 1024
	// MaxExtractPrealloc caps how much ExtractBytes allocates up front. Anything larger grows as it is read,
	// so a damaged length can't demand memory the carrier never backs.
	MaxExtractPrealloc = 4096
)

// Error types

// ExhaustedCarrierError is returned when the carrier ends before a window could be filled.
type ExhaustedCarrierError struct {
	Offset int64 // The carrier offset the short read started at.
	Want   int   // The number of bytes requested.
	Got    int   // The number of bytes actually available.
}

func (e *ExhaustedCarrierError) Error() string {
	return fmt.Sprintf("The carrier ended at offset %d: wanted %d bytes but only %d were left.",
		e.Offset, e.Want, e.Got)
}

// ErrNoDestination is returned by the writing operations of a Stream created with NewReader.
var ErrNoDestination = errors.New("the stream has no destination to write to")

// Stream

// Stream is a pair of cursors over a carrier source and a destination.
// The read position at the end of one section is the start of the next.
type Stream struct {
	src io.Reader
	dst io.Writer

	Read    int64 // Bytes consumed from the carrier so far.
	Written int64 // Bytes produced to the destination so far.
}

// NewStream returns a Stream that reads carrier bytes from src and writes them, modified or not, to dst.
func NewStream(src io.Reader, dst io.Writer) *Stream {
	return &Stream{src: src, dst: dst}
}

// NewReader returns a read-only Stream, used when extracting.
func NewReader(src io.Reader) *Stream {
	return &Stream{src: src}
}

// ReadWindow fills buf from the carrier.
func (s *Stream) ReadWindow(buf []byte) error {
	n, err := io.ReadFull(s.src, buf)
	s.Read += int64(n)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return &ExhaustedCarrierError{Offset: s.Read - int64(n), Want: len(buf), Got: n}
	}
	return err
}

// WriteWindow writes buf to the destination.
func (s *Stream) WriteWindow(buf []byte) error {
	if s.dst == nil {
		return ErrNoDestination
	}
	n, err := s.dst.Write(buf)
	s.Written += int64(n)
	return err
}

// EmbedBytes hides data in the next len(data)*lsb.ByteWindow carrier bytes.
func (s *Stream) EmbedBytes(data []byte) error {
	var w [lsb.ByteWindow]byte
	for _, b := range data {
		if err := s.ReadWindow(w[:]); err != nil {
			return err
		}
		w = lsb.EmbedByte(b, w)
		if err := s.WriteWindow(w[:]); err != nil {
			return err
		}
	}
	return nil
}

// EmbedSize hides n in the next lsb.SizeWindow carrier bytes.
func (s *Stream) EmbedSize(n uint32) error {
	var w [lsb.SizeWindow]byte
	if err := s.ReadWindow(w[:]); err != nil {
		return err
	}
	w = lsb.EmbedSize(n, w)
	return s.WriteWindow(w[:])
}

// ExtractBytes reads n hidden bytes from the next n*lsb.ByteWindow carrier bytes.
func (s *Stream) ExtractBytes(n int) ([]byte, error) {
	data := make([]byte, 0, min(n, MaxExtractPrealloc))
	var w [lsb.ByteWindow]byte
	for len(data) < n {
		if err := s.ReadWindow(w[:]); err != nil {
			return nil, err
		}
		data = append(data, lsb.ExtractByte(w))
	}
	return data, nil
}

// ExtractSize reads a hidden size field from the next lsb.SizeWindow carrier bytes.
func (s *Stream) ExtractSize() (uint32, error) {
	var w [lsb.SizeWindow]byte
	if err := s.ReadWindow(w[:]); err != nil {
		return 0, err
	}
	return lsb.ExtractSize(w), nil
}

// CopyRest copies whatever is left of the carrier to the destination unmodified.
func (s *Stream) CopyRest() error {
	if s.dst == nil {
		return ErrNoDestination
	}
	buf := make([]byte, TailChunkSize)
	for {
		n, err := s.src.Read(buf)
		if n > 0 {
			s.Read += int64(n)
			if werr := s.WriteWindow(buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil {
			if err != io.EOF {
				return err
			}
			return nil
		}
	}
}
