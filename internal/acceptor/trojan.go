package acceptor

import (
	"bytes"
	"context"

	"relaymux/internal/perr"
	"relaymux/internal/proxyreq"
	"relaymux/internal/streamio"
)

// Trojan expects, on a freshly established TLS Stream: 56 bytes of
// lowercase-hex SHA-224(password) auth, CRLF, a SOCKS5-style CONNECT
// request, CRLF, then payload — spec.md §4.G.
func Trojan(ctx context.Context, s *streamio.Stream, auth []byte) (*proxyreq.Request, error) {
	return streamio.Guard2(ctx, s, func() (*proxyreq.Request, error) {
		got, err := s.ReadUntil(ctx, []byte("\r\n"), true)
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(got, auth) {
			return nil, perr.Protocol("trojan.accept", "auth mismatch")
		}

		line, err := s.ReadUntil(ctx, []byte("\r\n"), true)
		if err != nil {
			return nil, err
		}
		addr, err := parseTrojanRequest(line)
		if err != nil {
			return nil, err
		}
		return &proxyreq.Request{Stream: s, Dest: addr}, nil
	})
}

// parseTrojanRequest parses a CMD ATYP addr PORT buffer (the same shape
// as a SOCKS5 connect request, minus VER/RSV), requiring CMD=1.
func parseTrojanRequest(buf []byte) (proxyreq.Addr, error) {
	if len(buf) < 2 {
		return proxyreq.Addr{}, perr.Protocol("trojan.accept", "short request")
	}
	cmd, atype := buf[0], buf[1]
	if cmd != 1 {
		return proxyreq.Addr{}, perr.Protocol("trojan.accept", "unsupported command")
	}
	body := buf[2:]
	var host string
	var portOffset int
	switch atype {
	case atypDomain:
		if len(body) < 1 {
			return proxyreq.Addr{}, perr.Protocol("trojan.accept", "short domain length")
		}
		alen := int(body[0])
		if len(body) < 1+alen+2 {
			return proxyreq.Addr{}, perr.Protocol("trojan.accept", "short domain request")
		}
		host = string(body[1 : 1+alen])
		portOffset = 1 + alen
	case atypIPv4:
		if len(body) < 4+2 {
			return proxyreq.Addr{}, perr.Protocol("trojan.accept", "short ipv4 request")
		}
		host = ipString(body[:4])
		portOffset = 4
	case atypIPv6:
		if len(body) < 16+2 {
			return proxyreq.Addr{}, perr.Protocol("trojan.accept", "short ipv6 request")
		}
		host = ipString(body[:16])
		portOffset = 16
	default:
		return proxyreq.Addr{}, perr.Protocol("trojan.accept", "unsupported address type")
	}
	port := uint16(body[portOffset])<<8 | uint16(body[portOffset+1])
	return proxyreq.Addr{Host: host, Port: port}, nil
}
