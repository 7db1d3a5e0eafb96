package connector

import (
	"context"
	"fmt"
	"strings"

	"relaymux/internal/perr"
	"relaymux/internal/proxyreq"
	"relaymux/internal/streamio"
)

// HTTP performs a CONNECT handshake to dest over next: send the CONNECT
// request, require a 200 response, then (only once tunneled) write rest
// — the caller's actual first payload bytes — per spec.md §4.E and the
// original HTTPConnector.connect ordering.
func HTTP(ctx context.Context, next *streamio.Stream, dest proxyreq.Addr, rest []byte) (*streamio.Stream, error) {
	return streamio.Guard2(ctx, next, func() (*streamio.Stream, error) {
		host := hostPort(dest)
		req := fmt.Sprintf("CONNECT %s HTTP/1.1\r\nHost: %s\r\n\r\n", host, host)
		if err := next.WriteDrain(ctx, []byte(req)); err != nil {
			return nil, err
		}
		status, err := next.ReadUntil(ctx, []byte("\r\n\r\n"), true)
		if err != nil {
			return nil, err
		}
		if !strings.HasPrefix(string(status), "HTTP/1.1 200") {
			return nil, perr.Protocol("http.connect", "unexpected response: "+string(status))
		}
		if len(rest) != 0 {
			if err := next.WriteDrain(ctx, rest); err != nil {
				return nil, err
			}
		}
		return next, nil
	})
}

// hostPort renders dest as "host:port", bracketing IPv6 literals.
func hostPort(dest proxyreq.Addr) string {
	host := dest.Host
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return fmt.Sprintf("%s:%d", host, dest.Port)
}
