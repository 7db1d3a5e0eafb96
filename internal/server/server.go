// Package server wires a raw accepted TCP connection through TLS (when
// configured), the inbox's acceptor, the outbound dispatcher, and the
// splice engine. Grounded on original_source/p3/server/server.py's
// serve/connected_cb and the teacher's internal/proxy.Proxy.
// HandleH3WebSocket: accept, handshake, dial, pump, join, clean up.
package server

import (
	"context"
	"log"
	"net"
	"sync/atomic"

	"relaymux/internal/config"
	"relaymux/internal/metrics"
	"relaymux/internal/outbound"
	"relaymux/internal/perr"
	"relaymux/internal/proxyreq"
	"relaymux/internal/streamio"
)

// Accept is the inbox-scheme-specific handshake: turn a fresh client
// Stream into a resolved Request. Every scheme in config.InboxScheme
// maps to exactly one of these.
type Accept func(ctx context.Context, s *streamio.Stream) (*proxyreq.Request, error)

// Server accepts inbound connections on Listener, runs them through
// Accept, and hands the resolved request to Dispatcher. Limits.MaxConns
// caps concurrent sessions, matching the teacher Proxy's atomic counter.
type Server struct {
	Listener   net.Listener
	Accept     Accept
	Dispatcher *outbound.Dispatcher
	Limits     config.Limits

	active int64
}

// Serve accepts connections until Listener.Accept fails, spawning one
// goroutine per connection. It returns nil if ctx is done when Accept
// fails and the accept error otherwise; canceling ctx alone does not
// unblock a pending Accept. It never returns an
// error for a single session's failure — per spec.md §7, "across the
// server, errors never terminate the listener."
func (srv *Server) Serve(ctx context.Context) error {
	for {
		conn, err := srv.Listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return perr.IO("server.accept", err)
		}
		go srv.handle(ctx, conn)
	}
}

func (srv *Server) handle(ctx context.Context, conn net.Conn) {
	if srv.overLimit() {
		metrics.Rejected.WithLabelValues("max_conns").Inc()
		conn.Close()
		return
	}
	metrics.Accepted.Inc()
	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()
	defer srv.release()

	client := streamio.NewTCP(conn)
	defer client.EnsureClosed(ctx)

	req, err := srv.Accept(ctx, client)
	if err != nil {
		metrics.Errors.WithLabelValues("inbox.accept").Inc()
		log.Printf("server: accept: %v", err)
		return
	}

	upstream, err := srv.Dispatcher.Connect(ctx, req)
	if err != nil {
		metrics.Errors.WithLabelValues("outbound.connect").Inc()
		log.Printf("server: connect %s: %v", req.Dest, err)
		return
	}
	defer upstream.EnsureClosed(ctx)

	if err := streamio.Splice(ctx, req.Stream, upstream); err != nil {
		metrics.Errors.WithLabelValues("splice").Inc()
		log.Printf("server: splice %s: %v", req.Dest, err)
	}
}

// overLimit reserves a session slot, matching the teacher Proxy's
// atomic.AddInt64-then-check-then-undo pattern. A false result leaves
// the slot reserved; the caller must eventually call release.
func (srv *Server) overLimit() bool {
	if srv.Limits.MaxConns <= 0 {
		return false
	}
	if atomic.AddInt64(&srv.active, 1) > srv.Limits.MaxConns {
		atomic.AddInt64(&srv.active, -1)
		return true
	}
	return false
}

func (srv *Server) release() {
	if srv.Limits.MaxConns > 0 {
		atomic.AddInt64(&srv.active, -1)
	}
}
