package outbound

import (
	"context"
	"net"
	"strconv"

	"relaymux/internal/connector"
	"relaymux/internal/perr"
	"relaymux/internal/proxyreq"
	"relaymux/internal/streamio"
	"relaymux/internal/vmess"
)

// Scheme is the outbound transport an Outbox speaks, per spec.md §6's
// outbox scheme enumeration.
type Scheme int

const (
	SchemeTCP Scheme = iota
	SchemeDirect
	SchemeHTTP
	SchemeSocks5
	SchemeTrojan
	SchemeVmess
	SchemeNull
	SchemeBlock
)

// Transport is an outbox's connection-level modifier layered between the
// raw TCP dial and the scheme's own protocol framing: none, TLS, plain
// WebSocket, or WebSocket-over-TLS.
type Transport int

const (
	TransportRaw Transport = iota
	TransportTLS
	TransportWS
	TransportWSS
)

// Outbox is a configured outbound path: scheme, target, optional auth
// material, optional transport modifiers, and a mutable weight/delay
// pair the dispatcher and health prober update. Grounded on
// p3/iobox/outbox.py's Outbox plus p3/common/tcp.py's TCPOutbox/
// DirectOutbox split.
type Outbox struct {
	Name   string
	Scheme Scheme
	Host   string
	Port   uint16

	// TrojanAuth is the 56-byte lowercase-hex SHA-224(password) digest.
	TrojanAuth []byte
	// VmessUser is the account UUID for a vmess outbox.
	VmessUser vmess.UserID

	Transport Transport
	TLSWrap   streamio.TLSWrapFunc
	TLSHost   string
	WSHost    string
	WSPath    string

	Weight *Weight
	Delay  float64 // seconds; -1 means unknown, per spec.md §3 Outbox invariants
}

// New builds a forward Outbox with WeightInitial and an unknown delay.
func New(name string, scheme Scheme, host string, port uint16) *Outbox {
	return &Outbox{
		Name:   name,
		Scheme: scheme,
		Host:   host,
		Port:   port,
		Weight: NewWeight(),
		Delay:  -1,
	}
}

func (o *Outbox) addr() string {
	return hostPort(o.Host, o.Port)
}

// Connect builds this outbox's connector chain and returns a connected
// Stream addressing req.Dest, carrying req.Residual. Grounded on the
// per-scheme connect methods of p3/common/tcp.py (TCPOutbox/DirectOutbox
// dial req.addr directly) and proxy/outbox/{http,socks5,trojan,vmess}.py
// (dial self.url.addr, then speak the protocol to req.addr).
func (o *Outbox) Connect(ctx context.Context, req *proxyreq.Request) (*streamio.Stream, error) {
	switch o.Scheme {
	case SchemeNull, SchemeBlock:
		s := connector.Null()
		if len(req.Residual) != 0 {
			_ = s.WriteDrain(ctx, req.Residual)
		}
		return s, nil
	case SchemeTCP, SchemeDirect:
		return connector.TCP(ctx, "tcp", hostPort(req.Dest.Host, req.Dest.Port), req.Residual)
	}

	next, err := o.dialNext(ctx)
	if err != nil {
		return nil, err
	}

	if o.Transport == TransportWS || o.Transport == TransportWSS {
		next, err = connector.WS(ctx, next, o.WSPath, o.WSHost, nil)
		if err != nil {
			return nil, err
		}
	}

	switch o.Scheme {
	case SchemeHTTP:
		return connector.HTTP(ctx, next, req.Dest, req.Residual)
	case SchemeSocks5:
		return connector.Socks5(ctx, next, req.Dest, req.Residual)
	case SchemeTrojan:
		return connector.Trojan(ctx, next, o.TrojanAuth, req.Dest, req.Residual)
	case SchemeVmess:
		return vmess.Connect(ctx, next, o.VmessUser, req.Dest, req.Residual)
	default:
		next.EnsureClosed(ctx)
		return nil, perr.Config("outbox.connect", "unsupported scheme")
	}
}

// dialNext opens the first hop: a plain or TLS-upgraded TCP connection
// to this outbox's own host:port (the upstream server for every
// protocol-speaking scheme; WS/WSS layer on top of it below).
func (o *Outbox) dialNext(ctx context.Context) (*streamio.Stream, error) {
	if o.Transport == TransportTLS || o.Transport == TransportWSS {
		return streamio.DialTLS(ctx, "tcp", o.addr(), o.TLSHost, o.TLSWrap)
	}
	return streamio.DialTCP(ctx, "tcp", o.addr())
}

func hostPort(host string, port uint16) string {
	return net.JoinHostPort(host, strconv.Itoa(int(port)))
}
