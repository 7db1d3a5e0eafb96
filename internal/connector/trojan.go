package connector

import (
	"context"
	"encoding/binary"

	"relaymux/internal/proxyreq"
	"relaymux/internal/streamio"
)

// Trojan emits the password-auth + SOCKS5-style CONNECT header and rest
// in a single write, so the remote server sees header and payload
// contiguously, per spec.md §4.G. pwd must already be the 56-byte
// lowercase-hex SHA-224 auth digest.
func Trojan(ctx context.Context, next *streamio.Stream, pwd []byte, dest proxyreq.Addr, rest []byte) (*streamio.Stream, error) {
	return streamio.Guard2(ctx, next, func() (*streamio.Stream, error) {
		hostBytes := []byte(dest.Host)
		body := make([]byte, 0, 2+1+len(hostBytes)+2)
		body = append(body, 1, atypDomain, byte(len(hostBytes)))
		body = append(body, hostBytes...)
		body = binary.BigEndian.AppendUint16(body, dest.Port)

		frame := make([]byte, 0, len(pwd)+2+len(body)+2+len(rest))
		frame = append(frame, pwd...)
		frame = append(frame, '\r', '\n')
		frame = append(frame, body...)
		frame = append(frame, '\r', '\n')
		frame = append(frame, rest...)

		if err := next.WriteDrain(ctx, frame); err != nil {
			return nil, err
		}
		return next, nil
	})
}
