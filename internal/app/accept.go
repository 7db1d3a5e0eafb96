package app

import (
	"context"
	"fmt"

	"relaymux/internal/acceptor"
	"relaymux/internal/config"
	"relaymux/internal/proxyreq"
	"relaymux/internal/server"
	"relaymux/internal/streamio"
)

// buildAccept maps an inbox scheme to the acceptor that runs on every
// freshly accepted (and, for the *s schemes, already TLS-terminated)
// connection. The "s"-suffixed schemes only change the listener's
// transport, never the acceptor itself.
func buildAccept(in config.Inbox) (server.Accept, error) {
	switch in.Scheme {
	case config.InboxHTTP, config.InboxHTTPS:
		return acceptor.HTTP, nil
	case config.InboxSocks5, config.InboxSocks5S:
		return acceptor.Socks5, nil
	case config.InboxAuto, config.InboxAutoS:
		return acceptor.Auto, nil
	case config.InboxTrojan:
		auth := config.TrojanAuthHex(in.Password)
		return func(ctx context.Context, s *streamio.Stream) (*proxyreq.Request, error) {
			return acceptor.Trojan(ctx, s, auth)
		}, nil
	default:
		return nil, fmt.Errorf("unknown inbox scheme %q", in.Scheme)
	}
}

// needsTLS reports whether in's scheme terminates TLS before handing
// the connection to its acceptor. Trojan is always TLS-wrapped per
// spec.md §4.G, independent of the "s"-suffix convention the other
// schemes use.
func needsTLS(in config.Inbox) bool {
	switch in.Scheme {
	case config.InboxHTTPS, config.InboxSocks5S, config.InboxAutoS, config.InboxTrojan:
		return true
	default:
		return false
	}
}
