// Package connector implements the client-side half of each outbound
// transport: dialing (or wrapping) a Stream and emitting whatever
// handshake bytes that transport's protocol requires before handing
// back a connected Stream ready for the caller's residual payload.
// Grounded on original_source/proxy/connector/*.py.
package connector

import (
	"context"

	"relaymux/internal/streamio"
)

// TCP dials network/addr and, on success, writes rest (if non-empty)
// before returning the connected Stream — the leaf connector every
// transport chain in this package builds on top of.
func TCP(ctx context.Context, network, addr string, rest []byte) (*streamio.Stream, error) {
	s, err := streamio.DialTCP(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		if err := s.WriteDrain(ctx, rest); err != nil {
			s.EnsureClosed(ctx)
			return nil, err
		}
	}
	return s, nil
}

// Null returns an already-"connected" Stream that reads as immediate EOF
// and discards writes — the outbound side of a Block-routed request,
// grounded on original_source/proxy/stream/null.py's NULLStream.
func Null() *streamio.Stream {
	return streamio.New("null", nullPrimitive{})
}

type nullPrimitive struct{}

func (nullPrimitive) WriteRaw(ctx context.Context, buf []byte) error    { return nil }
func (nullPrimitive) ReadRaw(ctx context.Context) ([]byte, error)       { return nil, nil }
func (nullPrimitive) Drain(ctx context.Context) error                  { return nil }
func (nullPrimitive) Close() error                                     { return nil }
func (nullPrimitive) WaitClosed(ctx context.Context) error             { return nil }
