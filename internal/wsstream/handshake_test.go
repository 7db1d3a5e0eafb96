package wsstream

import (
	"context"
	"testing"
	"time"

	"relaymux/internal/streamio"
)

func TestAcceptDialHandshakeRoundTrip(t *testing.T) {
	ctx := context.Background()
	clientRaw, serverRaw := tcpStreams(t)

	serverDone := make(chan error, 1)
	go func() {
		req, err := readHandshakeRequestLine(ctx, serverRaw)
		if err != nil {
			serverDone <- err
			return
		}
		_, err = Accept(ctx, serverRaw, req)
		serverDone <- err
	}()

	clientStream, err := Dial(ctx, clientRaw, "/proxy", "example.invalid")
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	if err := <-serverDone; err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- clientStream.WriteDrain(ctx, []byte("ping over ws")) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("post-handshake write failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("post-handshake write timed out")
	}
}

// readHandshakeRequestLine parses just enough of the client's opening
// HTTP request to build a HandshakeRequest, mirroring what an HTTP
// acceptor would hand off to Accept after recognizing an Upgrade request.
func readHandshakeRequestLine(ctx context.Context, s *streamio.Stream) (HandshakeRequest, error) {
	if _, err := s.ReadUntil(ctx, []byte("\r\n"), true); err != nil {
		return HandshakeRequest{}, err
	}
	h, err := readHeaders(ctx, s)
	if err != nil {
		return HandshakeRequest{}, err
	}
	return HandshakeRequest{Key: h.Get("Sec-WebSocket-Key")}, nil
}

func TestAcceptHandshakeFullRequestRoundTrip(t *testing.T) {
	ctx := context.Background()
	clientRaw, serverRaw := tcpStreams(t)

	serverDone := make(chan error, 1)
	go func() {
		_, err := AcceptHandshake(ctx, serverRaw)
		serverDone <- err
	}()

	serverStream, err := Dial(ctx, clientRaw, "/proxy", "example.invalid")
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	if err := <-serverDone; err != nil {
		t.Fatalf("AcceptHandshake failed: %v", err)
	}
	_ = serverStream
}

func TestAcceptHandshakeRejectsBadVersion(t *testing.T) {
	ctx := context.Background()
	clientRaw, serverRaw := tcpStreams(t)

	req := "GET /x HTTP/1.1\r\nHost: h\r\nUpgrade: websocket\r\nConnection: Upgrade\r\n" +
		"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\nSec-WebSocket-Version: 8\r\n\r\n"
	go func() { _ = clientRaw.WriteDrain(ctx, []byte(req)) }()

	_, err := AcceptHandshake(ctx, serverRaw)
	if err == nil {
		t.Fatal("expected rejection of unsupported Sec-WebSocket-Version")
	}
}

func TestComputeAcceptMatchesKnownVector(t *testing.T) {
	// RFC 6455 §1.3 worked example.
	got := ComputeAccept("dGhlIHNhbXBsZSBub25jZQ==")
	want := "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
	if got != want {
		t.Fatalf("ComputeAccept mismatch: got %q want %q", got, want)
	}
}
