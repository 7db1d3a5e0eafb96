package acceptor

import (
	"context"

	"relaymux/internal/streamio"
	"relaymux/internal/wsstream"
)

// WS completes a server-side WebSocket upgrade on raw (typically a fresh
// TCP or TLS Stream) and returns the resulting message-framed Stream, on
// top of which any of HTTP/Socks5/Trojan/Auto can then run — the
// "WebSocket-wrapped variant" path in spec.md's overview.
func WS(ctx context.Context, raw *streamio.Stream) (*streamio.Stream, error) {
	return streamio.Guard2(ctx, raw, func() (*streamio.Stream, error) {
		return wsstream.AcceptHandshake(ctx, raw)
	})
}
