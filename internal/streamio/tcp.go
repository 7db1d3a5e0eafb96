package streamio

import (
	"context"
	"errors"
	"io"
	"net"

	"relaymux/internal/perr"
)

// TCPBufSize caps a single raw TCP read, spec.md §4.C / §5.
const TCPBufSize = 4 * 1024

// tcpPrimitive adapts a net.Conn (plain TCP or an already-established TLS
// conn — TLS is "a configuration of how the conn was opened", not a
// distinct Stream type, per spec.md §4.C) to Primitive.
type tcpPrimitive struct {
	conn net.Conn
}

func (p *tcpPrimitive) WriteRaw(ctx context.Context, buf []byte) error {
	if dl, ok := ctx.Deadline(); ok {
		_ = p.conn.SetWriteDeadline(dl)
	}
	_, err := p.conn.Write(buf)
	if err != nil {
		return perr.IO("tcp.write", err)
	}
	return nil
}

func (p *tcpPrimitive) ReadRaw(ctx context.Context) ([]byte, error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = p.conn.SetReadDeadline(dl)
	}
	buf := make([]byte, TCPBufSize)
	n, err := p.conn.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, perr.IO("tcp.read", err)
	}
	return nil, nil
}

func (p *tcpPrimitive) Drain(ctx context.Context) error { return nil }

func (p *tcpPrimitive) Close() error { return p.conn.Close() }

func (p *tcpPrimitive) WaitClosed(ctx context.Context) error { return nil }

// NewTCP wraps an already-dialed/accepted net.Conn as a leaf Stream. The
// same constructor serves both plain TCP and TLS-upgraded connections,
// since from this layer up they are indistinguishable net.Conns.
func NewTCP(conn net.Conn) *Stream {
	return New("tcp", &tcpPrimitive{conn: conn})
}

// DialTCP opens a new TCP connection and wraps it as a leaf Stream.
func DialTCP(ctx context.Context, network, addr string) (*Stream, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, perr.IO("tcp.dial", err)
	}
	return NewTCP(conn), nil
}

// TLSWrapFunc upgrades an established net.Conn to TLS for the given SNI
// server name. Core accepts this as an injected collaborator (spec.md §6)
// rather than constructing tls.Config itself.
type TLSWrapFunc func(conn net.Conn, serverName string) (net.Conn, error)

// DialTLS dials network/addr and, when wrap is non-nil, upgrades the raw
// conn to TLS before wrapping it as a leaf Stream — the outbound half of
// the same "TLS is a configuration of how the conn was opened" model
// §4.C describes for the accept side.
func DialTLS(ctx context.Context, network, addr, serverName string, wrap TLSWrapFunc) (*Stream, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, perr.IO("tcp.dial", err)
	}
	if wrap == nil {
		return NewTCP(conn), nil
	}
	tlsConn, err := wrap(conn, serverName)
	if err != nil {
		conn.Close()
		return nil, perr.IO("tls.wrap", err)
	}
	return NewTCP(tlsConn), nil
}
