package acceptor

import (
	"context"

	"relaymux/internal/perr"
	"relaymux/internal/proxyreq"
	"relaymux/internal/streamio"
)

// Auto peeks the first byte of s without consuming it and dispatches to
// Socks5 when it equals 5, else to HTTP, per spec.md §4.I. An empty peek
// (immediate EOF) is a protocol error rather than a silent no-op.
func Auto(ctx context.Context, s *streamio.Stream) (*proxyreq.Request, error) {
	buf, err := s.Peek(ctx)
	if err != nil {
		return nil, err
	}
	if len(buf) == 0 {
		return nil, perr.Protocol("auto.accept", "empty stream")
	}
	if buf[0] == 5 {
		return Socks5(ctx, s)
	}
	return HTTP(ctx, s)
}
