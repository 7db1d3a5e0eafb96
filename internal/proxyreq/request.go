// Package proxyreq defines the ⟨destination, residual bytes⟩ tuple every
// acceptor produces and every connector consumes, plus the EnsureRest
// helper that blocks for a first payload byte when a protocol's wire
// format demands one. Grounded on original_source/p3/iobox/inbox.py's
// Inbox.accept and p3/stream/proxy.py's ProxyRequest.ensure_rest.
package proxyreq

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/net/idna"

	"relaymux/internal/streamio"
)

// Addr is a destination host/port pair. Host may be a domain name, an
// IPv4 literal, or an IPv6 literal (without brackets).
type Addr struct {
	Host string
	Port uint16
}

func (a Addr) String() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// ParseAddr splits a "host:port" string, accepting bracketed IPv6
// literals, per spec.md §4.E's Host parser (h, h:p, [h6], [h6]:p).
func ParseAddr(s string) (Addr, error) {
	host, portStr, err := splitHostPort(s)
	if err != nil {
		return Addr{}, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Addr{}, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	return Addr{Host: normalizeHost(host), Port: uint16(port)}, nil
}

// normalizeHost ASCII-folds a domain via IDNA so the same destination
// parsed from unicode or punycode form compares and dials identically.
// IP literals and already-ASCII garbage pass through unchanged on error.
func normalizeHost(host string) string {
	ascii, err := idna.ToASCII(host)
	if err != nil {
		return host
	}
	return ascii
}

func splitHostPort(s string) (host, port string, err error) {
	if len(s) > 0 && s[0] == '[' {
		end := -1
		for i, c := range s {
			if c == ']' {
				end = i
				break
			}
		}
		if end < 0 {
			return "", "", fmt.Errorf("unterminated IPv6 literal in %q", s)
		}
		host = s[1:end]
		rest := s[end+1:]
		if rest == "" {
			return host, "0", nil
		}
		if rest[0] != ':' {
			return "", "", fmt.Errorf("expected ':' after IPv6 literal in %q", s)
		}
		return host, rest[1:], nil
	}
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ':' {
			return s[:i], s[i+1:], nil
		}
	}
	return s, "0", nil
}

// Request is what an acceptor hands off to the dispatcher: the
// client-facing Stream (already past its protocol handshake), the
// resolved destination, and any bytes the client sent past its header
// that the acceptor has not yet delivered downstream.
type Request struct {
	Stream   *streamio.Stream
	Dest     Addr
	Residual []byte
}

// EnsureRest blocks for at least one byte of payload when the acceptor
// produced a destination but no residual bytes, per spec.md §4.M: Trojan
// requires the client to send payload immediately after its header, and
// HTTP non-CONNECT / Vmess need a non-empty first chunk to frame their
// outbound request around.
func (r *Request) EnsureRest(ctx context.Context) error {
	if len(r.Residual) != 0 {
		return nil
	}
	buf, err := r.Stream.ReadAtLeast(ctx, 1)
	if err != nil {
		return err
	}
	r.Residual = buf
	return nil
}
