// Package app is the process-wiring layer: flag parsing, config
// loading, TLS context construction, and listener bring-up — the
// "external collaborators" spec.md §1 deliberately keeps out of core,
// assembled here the way the teacher's internal/run.go assembles
// Config/Limits/backend URL into a running proxy.Proxy.
package app

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"

	"relaymux/internal/config"
	"relaymux/internal/server"
)

// Run parses flags, loads the config document, builds the dispatcher
// and listener it names, and serves until the listener closes or the
// process is interrupted.
func Run() error {
	f := parseFlags()

	cfg, err := loadConfig(f.ConfigFile)
	if err != nil {
		return err
	}
	cfg.Limits = config.Limits{
		MaxConns:     f.MaxConns,
		ReadTimeout:  f.ReadTimeout,
		WriteTimeout: f.WriteTimeout,
	}

	if f.MetricsAddr != "" {
		startMetricsServer(f.MetricsAddr)
	}

	dispatcher, err := buildDispatcher(cfg)
	if err != nil {
		return fmt.Errorf("building dispatcher: %w", err)
	}

	accept, err := buildAccept(cfg.Inbox)
	if err != nil {
		return fmt.Errorf("building inbox acceptor: %w", err)
	}

	listener, err := buildListener(cfg.Inbox)
	if err != nil {
		return fmt.Errorf("building listener: %w", err)
	}

	srv := &server.Server{
		Listener:   listener,
		Accept:     accept,
		Dispatcher: dispatcher,
		Limits:     cfg.Limits,
	}

	return srv.Serve(context.Background())
}

func buildListener(in config.Inbox) (net.Listener, error) {
	addr := net.JoinHostPort(in.Host, fmt.Sprint(in.Port))
	raw, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if !needsTLS(in) {
		return raw, nil
	}
	tlsCfg, err := serverTLSConfig(in.TLS)
	if err != nil {
		raw.Close()
		return nil, err
	}
	return tls.NewListener(raw, tlsCfg), nil
}
