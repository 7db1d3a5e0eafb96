package streamio

import "context"

// Guard runs body and, unless body succeeds, ensures s is fully closed
// before the error propagates — the scoped-close wrapper spec.md §4.B
// requires around every acceptor/connector body so a partial handshake
// never leaks a socket. On success s is left open for the caller.
func Guard(ctx context.Context, s *Stream, body func() error) error {
	err := body()
	if err != nil {
		s.EnsureClosed(ctx)
	}
	return err
}

// GuardAlways is like Guard but closes s unconditionally, success or not
// — used around the full lifetime of a connection (splice included)
// rather than just its handshake.
func GuardAlways(ctx context.Context, s *Stream, body func() error) error {
	err := body()
	s.EnsureClosed(ctx)
	return err
}

// Guard2 is Guard for a body that also produces a value, the common shape
// for accept/connect handshakes that return a *proxyreq.Request or a
// *Stream alongside their error.
func Guard2[T any](ctx context.Context, s *Stream, body func() (T, error)) (T, error) {
	v, err := body()
	if err != nil {
		s.EnsureClosed(ctx)
	}
	return v, err
}
