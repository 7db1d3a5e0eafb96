package connector

import (
	"context"
	"encoding/binary"

	"relaymux/internal/perr"
	"relaymux/internal/proxyreq"
	"relaymux/internal/streamio"
)

const (
	atypIPv4   = 1
	atypDomain = 3
	atypIPv6   = 4
)

// Socks5 performs a no-auth CONNECT handshake to dest over next,
// per spec.md §4.F: negotiate method 0, send a domain-encoded request,
// and require REP=0. Destination is always sent as ATYP=3 (domain),
// matching the original Socks5Connector (even when dest.Host is a
// literal IP — the upstream SOCKS5 server resolves it the same way).
func Socks5(ctx context.Context, next *streamio.Stream, dest proxyreq.Addr, rest []byte) (*streamio.Stream, error) {
	return streamio.Guard2(ctx, next, func() (*streamio.Stream, error) {
		if err := next.WriteDrain(ctx, []byte{5, 1, 0}); err != nil {
			return nil, err
		}
		methodResp, err := next.ReadExactly(ctx, 2)
		if err != nil {
			return nil, err
		}
		if methodResp[0] != 5 || methodResp[1] != 0 {
			return nil, perr.Protocol("socks5.connect", "auth negotiation failed")
		}

		hostBytes := []byte(dest.Host)
		req := make([]byte, 0, 5+len(hostBytes)+2)
		req = append(req, 5, 1, 0, atypDomain, byte(len(hostBytes)))
		req = append(req, hostBytes...)
		req = binary.BigEndian.AppendUint16(req, dest.Port)
		if err := next.WriteDrain(ctx, req); err != nil {
			return nil, err
		}

		reply, err := next.ReadExactly(ctx, 4)
		if err != nil {
			return nil, err
		}
		ver, rep, rsv, atype := reply[0], reply[1], reply[2], reply[3]
		if ver != 5 || rep != 0 || rsv != 0 {
			return nil, perr.Protocol("socks5.connect", "connect failed")
		}
		if err := discardBoundAddr(ctx, next, atype); err != nil {
			return nil, err
		}
		if len(rest) != 0 {
			if err := next.WriteDrain(ctx, rest); err != nil {
				return nil, err
			}
		}
		return next, nil
	})
}

// discardBoundAddr reads and discards the BND.ADDR/BND.PORT fields that
// follow a SOCKS5 reply header, sized by atype.
func discardBoundAddr(ctx context.Context, s *streamio.Stream, atype byte) error {
	switch atype {
	case atypIPv4:
		_, err := s.ReadExactly(ctx, 4+2)
		return err
	case atypIPv6:
		_, err := s.ReadExactly(ctx, 16+2)
		return err
	case atypDomain:
		lenBuf, err := s.ReadExactly(ctx, 1)
		if err != nil {
			return err
		}
		_, err = s.ReadExactly(ctx, int(lenBuf[0])+2)
		return err
	default:
		return perr.Protocol("socks5.connect", "unsupported bound address type")
	}
}
