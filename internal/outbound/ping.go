package outbound

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"relaymux/internal/perr"
	"relaymux/internal/proxyreq"
)

const (
	// PingTimeout is the default wall-clock budget for a single probe,
	// matching PING_TIMEOUT.
	PingTimeout = 5 * time.Second
	// PingHost/PingPath are the default HTTP-level probe target,
	// matching PING_URL.
	PingHost = "www.gstatic.com"
	PingPath = "/generate_204"
)

// Ping is a health probe that measures (or fails to measure) an
// Outbox's reachability. Grounded on p3/server/ping.py's Ping/TcpPing/
// ProxyPing trio.
type Ping interface {
	Ping(ctx context.Context, ob *Outbox) (time.Duration, error)
}

// TCPPing times a bare connect+close to the outbox's own host:port,
// bypassing any protocol handshake — grounded on TcpPing.ping's
// socket.create_connection probe.
type TCPPing struct {
	Timeout time.Duration
}

func (p TCPPing) Ping(ctx context.Context, ob *Outbox) (time.Duration, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = PingTimeout
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", ob.addr())
	if err != nil {
		return 0, perr.IO("ping.tcp", err)
	}
	delay := time.Since(start)
	conn.Close()
	return delay, nil
}

// ProxyPing drives a full HTTP GET through the outbox's own connector
// chain and requires a 200 response — grounded on ProxyPing.ping's
// HTTPRequest/HTTPResponse round trip over outbox.connect.
type ProxyPing struct {
	Timeout time.Duration
	Host    string
	Path    string
}

func (p ProxyPing) Ping(ctx context.Context, ob *Outbox) (time.Duration, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = PingTimeout
	}
	host := p.Host
	if host == "" {
		host = PingHost
	}
	path := p.Path
	if path == "" {
		path = PingPath
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	get := fmt.Sprintf("GET %s HTTP/1.1\r\nHost: %s\r\nConnection: close\r\n\r\n", path, host)
	req := &proxyreq.Request{
		Dest:     proxyreq.Addr{Host: host, Port: 80},
		Residual: []byte(get),
	}

	start := time.Now()
	stream, err := ob.Connect(pingCtx, req)
	if err != nil {
		return 0, err
	}
	defer stream.EnsureClosed(pingCtx)

	status, err := stream.ReadUntil(pingCtx, []byte("\r\n"), true)
	if err != nil {
		return 0, err
	}
	delay := time.Since(start)
	if !strings.Contains(string(status), " 200") {
		return 0, perr.Protocol("ping.proxy", "unexpected status: "+string(status))
	}
	return delay, nil
}
