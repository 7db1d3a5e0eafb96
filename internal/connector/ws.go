package connector

import (
	"context"

	"relaymux/internal/streamio"
	"relaymux/internal/wsstream"
)

// WS performs a client-side WebSocket handshake over next and, once
// upgraded, writes rest (if any) before returning the message-framed
// Stream, grounded on original_source/proxy/connector/ws.py's
// WSConnector.
func WS(ctx context.Context, next *streamio.Stream, path, host string, rest []byte) (*streamio.Stream, error) {
	return streamio.Guard2(ctx, next, func() (*streamio.Stream, error) {
		wsStream, err := wsstream.Dial(ctx, next, path, host)
		if err != nil {
			return nil, err
		}
		if len(rest) != 0 {
			if err := wsStream.WriteDrain(ctx, rest); err != nil {
				return nil, err
			}
		}
		return wsStream, nil
	})
}
