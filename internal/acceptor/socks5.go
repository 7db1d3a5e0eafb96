package acceptor

import (
	"context"
	"encoding/binary"
	"net/netip"

	"relaymux/internal/perr"
	"relaymux/internal/proxyreq"
	"relaymux/internal/streamio"
)

// SOCKS5 atype values, shared with the Trojan acceptor; internal/connector
// declares its own copies (spec.md §4.F/§4.G both reuse SOCKS5-style
// address encoding).
const (
	atypIPv4   = 1
	atypDomain = 3
	atypIPv6   = 4
)

// Socks5 implements the no-auth SOCKS5 CONNECT handshake: negotiate
// method 0 (no-auth), read a CONNECT request, and reply with a fixed
// 0.0.0.0:0 bound-address success, per spec.md §4.F.
func Socks5(ctx context.Context, s *streamio.Stream) (*proxyreq.Request, error) {
	return streamio.Guard2(ctx, s, func() (*proxyreq.Request, error) {
		greeting, err := s.ReadExactly(ctx, 2)
		if err != nil {
			return nil, err
		}
		if greeting[0] != 5 {
			return nil, perr.Protocol("socks5.accept", "unsupported version")
		}
		nmeths := int(greeting[1])
		rest, err := s.ReadExactly(ctx, nmeths)
		if err != nil {
			return nil, err
		}
		if !containsByte(rest, 0) {
			return nil, perr.Protocol("socks5.accept", "no-auth not offered")
		}
		if err := s.WriteDrain(ctx, []byte{5, 0}); err != nil {
			return nil, err
		}

		addr, err := readSocks5Request(ctx, s)
		if err != nil {
			return nil, err
		}
		if err := s.WriteDrain(ctx, []byte{5, 0, 0, 1, 0, 0, 0, 0, 0, 0}); err != nil {
			return nil, err
		}
		return &proxyreq.Request{Stream: s, Dest: addr}, nil
	})
}

func containsByte(buf []byte, b byte) bool {
	for _, c := range buf {
		if c == b {
			return true
		}
	}
	return false
}

// readSocks5Request reads a "VER CMD RSV ATYP addr PORT" request,
// requiring CMD=1 (CONNECT), and returns the destination address.
func readSocks5Request(ctx context.Context, s *streamio.Stream) (proxyreq.Addr, error) {
	hdr, err := s.ReadExactly(ctx, 4)
	if err != nil {
		return proxyreq.Addr{}, err
	}
	ver, cmd, rsv, atype := hdr[0], hdr[1], hdr[2], hdr[3]
	if ver != 5 || rsv != 0 {
		return proxyreq.Addr{}, perr.Protocol("socks5.accept", "malformed header")
	}
	if cmd != 1 {
		return proxyreq.Addr{}, perr.Protocol("socks5.accept", "unsupported command")
	}

	var host string
	switch atype {
	case atypDomain:
		lenBuf, err := s.ReadExactly(ctx, 1)
		if err != nil {
			return proxyreq.Addr{}, err
		}
		domain, err := s.ReadExactly(ctx, int(lenBuf[0]))
		if err != nil {
			return proxyreq.Addr{}, err
		}
		host = string(domain)
	case atypIPv4:
		raw, err := s.ReadExactly(ctx, 4)
		if err != nil {
			return proxyreq.Addr{}, err
		}
		ip, ok := netip.AddrFromSlice(raw)
		if !ok {
			return proxyreq.Addr{}, perr.Protocol("socks5.accept", "invalid ipv4")
		}
		host = ip.String()
	case atypIPv6:
		raw, err := s.ReadExactly(ctx, 16)
		if err != nil {
			return proxyreq.Addr{}, err
		}
		ip, ok := netip.AddrFromSlice(raw)
		if !ok {
			return proxyreq.Addr{}, perr.Protocol("socks5.accept", "invalid ipv6")
		}
		host = ip.String()
	default:
		return proxyreq.Addr{}, perr.Protocol("socks5.accept", "unsupported address type")
	}

	portBuf, err := s.ReadExactly(ctx, 2)
	if err != nil {
		return proxyreq.Addr{}, err
	}
	return proxyreq.Addr{Host: host, Port: binary.BigEndian.Uint16(portBuf)}, nil
}
