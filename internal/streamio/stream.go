// Package streamio implements the layered duplex-stream abstraction every
// protocol state machine in this module is built on: a push-back buffer so
// bytes "peeked" or "pushed back" by one layer are seen by the next read,
// length-capped framing reads, and a single-owner inner-layer chain so
// closing the outermost layer closes everything beneath it exactly once.
package streamio

import (
	"context"
	"log"

	"relaymux/internal/perr"
)

// StreamBufSize is the cap on any single accumulated read (ReadUntil,
// ReadAtLeast) and on WebSocket message reassembly. Spec.md §3/§5.
const StreamBufSize = 4 * 1024 * 1024

// Primitive is the leaf or delegating implementation a Stream layers on
// top of: the raw bytes-in/bytes-out contract, with explicit close/drain
// lifecycle. TCPStream implements it directly against net.Conn; layered
// streams (WS, Vmess, TLS) implement it in terms of an inner Stream.
type Primitive interface {
	// WriteRaw makes buf durable only after a following Drain. buf is
	// never empty (Stream.Write no-ops on empty input).
	WriteRaw(ctx context.Context, buf []byte) error
	// ReadRaw returns the next chunk of bytes, or an empty slice (never
	// nil-vs-empty ambiguity matters) to signal clean end-of-stream. It
	// never returns a spurious empty read while the stream is open.
	ReadRaw(ctx context.Context) ([]byte, error)
	// Drain blocks until prior WriteRaw calls are durable.
	Drain(ctx context.Context) error
	// Close is non-blocking and idempotent.
	Close() error
	// WaitClosed blocks until Close's effect is fully observed.
	WaitClosed(ctx context.Context) error
}

// Stream is a duplex byte channel: a push-back buffer in front of a
// Primitive, optionally owning one inner Stream that it alone is
// responsible for closing (spec.md §3 "Stream" invariants).
type Stream struct {
	buf   []byte
	prim  Primitive
	inner *Stream
	tag   string
}

// New wraps prim as a leaf Stream (no inner layer), tagged for logging.
func New(tag string, prim Primitive) *Stream {
	return &Stream{prim: prim, tag: tag}
}

// NewLayered wraps prim as a Stream that owns inner: closing the returned
// Stream recursively closes inner too.
func NewLayered(tag string, prim Primitive, inner *Stream) *Stream {
	return &Stream{prim: prim, inner: inner, tag: tag}
}

// Inner returns the owned inner layer, or nil for a leaf stream.
func (s *Stream) Inner() *Stream { return s.inner }

// Tag returns the layer's log tag, e.g. "tcp", "ws", "vmess".
func (s *Stream) Tag() string { return s.tag }

// Push prepends buf to the pending push-back buffer: a following Read
// returns exactly buf (then continues into fresh bytes), per spec.md's
// Stream invariant.
func (s *Stream) Push(buf []byte) {
	if len(buf) == 0 {
		return
	}
	merged := make([]byte, 0, len(buf)+len(s.buf))
	merged = append(merged, buf...)
	merged = append(merged, s.buf...)
	s.buf = merged
}

// Pop drains and returns the entire push-back buffer, leaving it empty.
func (s *Stream) Pop() []byte {
	buf := s.buf
	s.buf = nil
	return buf
}

// Peek returns the pending buffered bytes without consuming them, filling
// the buffer with one ReadRaw call if it is currently empty.
func (s *Stream) Peek(ctx context.Context) ([]byte, error) {
	if len(s.buf) == 0 {
		buf, err := s.prim.ReadRaw(ctx)
		if err != nil {
			return nil, err
		}
		s.buf = buf
	}
	return s.buf, nil
}

// Read returns buffered bytes if any are pending, else reads fresh bytes
// from the primitive. An empty return means clean EOF.
func (s *Stream) Read(ctx context.Context) ([]byte, error) {
	if buf := s.Pop(); len(buf) != 0 {
		return buf, nil
	}
	return s.prim.ReadRaw(ctx)
}

// ReadAtMost reads up to n bytes, pushing back any overshoot.
func (s *Stream) ReadAtMost(ctx context.Context, n int) ([]byte, error) {
	buf, err := s.Read(ctx)
	if err != nil {
		return nil, err
	}
	if len(buf) > n {
		s.Push(buf[n:])
		buf = buf[:n]
	}
	return buf, nil
}

// ReadAtLeast accumulates reads until at least n bytes are available,
// possibly overshooting. Fails with IncompleteRead on clean EOF before n
// bytes arrive, and with BufferOverflow if n itself exceeds StreamBufSize.
func (s *Stream) ReadAtLeast(ctx context.Context, n int) ([]byte, error) {
	if n > StreamBufSize {
		return nil, perr.BufferOverflow("stream.read_at_least", n, StreamBufSize)
	}
	var buf []byte
	for len(buf) < n {
		next, err := s.Read(ctx)
		if err != nil {
			return nil, err
		}
		if len(next) == 0 {
			return nil, perr.IncompleteRead("stream.read_at_least", n, len(buf))
		}
		buf = append(buf, next...)
	}
	return buf, nil
}

// ReadExactly reads exactly n bytes, pushing back any overshoot.
func (s *Stream) ReadExactly(ctx context.Context, n int) ([]byte, error) {
	buf, err := s.ReadAtLeast(ctx, n)
	if err != nil {
		return nil, err
	}
	if len(buf) > n {
		s.Push(buf[n:])
		buf = buf[:n]
	}
	return buf, nil
}

// ReadUntil accumulates bytes until sep is found, returning the prefix
// before sep (with sep appended unless strip is set) and pushing back
// whatever followed sep. Fails with BufferOverflow past StreamBufSize and
// with IncompleteRead on clean EOF before sep appears.
func (s *Stream) ReadUntil(ctx context.Context, sep []byte, strip bool) ([]byte, error) {
	var buf []byte
	for {
		next, err := s.Read(ctx)
		if err != nil {
			return nil, err
		}
		if len(next) == 0 {
			return nil, perr.IncompleteRead("stream.read_until", len(buf)+1, len(buf))
		}
		buf = append(buf, next...)
		if len(buf) > StreamBufSize {
			return nil, perr.BufferOverflow("stream.read_until", len(buf), StreamBufSize)
		}
		if idx := indexOf(buf, sep); idx >= 0 {
			rest := buf[idx+len(sep):]
			s.Push(rest)
			prefix := buf[:idx]
			if !strip {
				prefix = append(append([]byte{}, prefix...), sep...)
			}
			return prefix, nil
		}
	}
}

func indexOf(haystack, needle []byte) int {
	n, m := len(haystack), len(needle)
	if m == 0 || m > n {
		return -1
	}
	for i := 0; i+m <= n; i++ {
		if string(haystack[i:i+m]) == string(needle) {
			return i
		}
	}
	return -1
}

// Write makes buf durable only after a following Drain; writing an empty
// buffer is a logged no-op (spec.md §4.B).
func (s *Stream) Write(ctx context.Context, buf []byte) error {
	if len(buf) == 0 {
		log.Printf("streamio[%s]: write empty bytes", s.tag)
		return nil
	}
	return s.prim.WriteRaw(ctx, buf)
}

// Drain blocks until prior writes are durable.
func (s *Stream) Drain(ctx context.Context) error { return s.prim.Drain(ctx) }

// WriteDrain is Write immediately followed by Drain, the common case.
func (s *Stream) WriteDrain(ctx context.Context, buf []byte) error {
	if err := s.Write(ctx, buf); err != nil {
		return err
	}
	return s.Drain(ctx)
}

// Close is non-blocking.
func (s *Stream) Close() error { return s.prim.Close() }

// WaitClosed blocks until Close's effect is observed.
func (s *Stream) WaitClosed(ctx context.Context) error { return s.prim.WaitClosed(ctx) }

// EnsureClosed runs Close+WaitClosed, swallowing any error, then
// recursively closes the owned inner layer. It is idempotent and never
// returns an error, matching spec.md §4.B / §8's testable property.
func (s *Stream) EnsureClosed(ctx context.Context) {
	_ = s.Close()
	_ = s.WaitClosed(ctx)
	if s.inner != nil {
		s.inner.EnsureClosed(ctx)
	}
}

// WriteStream copies from reader to s until reader hits clean EOF,
// draining after every write so backpressure is respected. This is the
// single-direction half of Splice.
func (s *Stream) WriteStream(ctx context.Context, reader *Stream) error {
	for {
		buf, err := reader.Read(ctx)
		if err != nil {
			return err
		}
		if len(buf) == 0 {
			return nil
		}
		if err := s.WriteDrain(ctx, buf); err != nil {
			return err
		}
	}
}
