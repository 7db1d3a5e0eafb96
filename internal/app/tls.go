package app

import (
	"crypto/tls"
	"fmt"
	"net"

	"relaymux/internal/config"
	"relaymux/internal/streamio"
)

// serverTLSConfig builds the *tls.Config an inbound https/socks5s/autos
// listener is wrapped in. internal/app is the only layer that
// constructs a TLS context — the core only ever sees the already-TLS
// net.Listener, per spec.md §6's "Core -> TLS" boundary.
func serverTLSConfig(t *config.TLSConfig) (*tls.Config, error) {
	if t == nil {
		return nil, fmt.Errorf("tls listener requested but no tls config given")
	}
	if t.KeyPassword != "" {
		return nil, fmt.Errorf("encrypted private keys are not supported")
	}
	cert, err := tls.LoadX509KeyPair(t.CertFile, t.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("loading tls keypair: %w", err)
	}
	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
	}, nil
}

// dialTLSWrap returns the streamio.TLSWrapFunc handed to every outbox
// that dials over TLS or WSS: a thin tls.Client wrapper parameterized
// by the outbox's configured ALPN protocols. The core never builds a
// *tls.Config itself (spec.md §6), only calls this collaborator.
func dialTLSWrap(alpn []string) streamio.TLSWrapFunc {
	return func(conn net.Conn, serverName string) (net.Conn, error) {
		tlsConn := tls.Client(conn, &tls.Config{
			ServerName: serverName,
			NextProtos: alpn,
			MinVersion: tls.VersionTLS12,
		})
		if err := tlsConn.Handshake(); err != nil {
			return nil, err
		}
		return tlsConn, nil
	}
}
