package connector

import (
	"context"
	"net"
	"testing"

	"relaymux/internal/streamio"
	"relaymux/internal/wsstream"
)

func TestWSConnectHandshakeAndPayload(t *testing.T) {
	ctx := context.Background()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer ln.Close()

	acceptCh := make(chan *streamio.Stream, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			acceptCh <- nil
			return
		}
		s := streamio.NewTCP(conn)
		ws, err := wsstream.AcceptHandshake(ctx, s)
		if err != nil {
			t.Errorf("AcceptHandshake failed: %v", err)
			acceptCh <- nil
			return
		}
		acceptCh <- ws
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	clientStream, err := WS(ctx, streamio.NewTCP(conn), "/proxy", ln.Addr().String(), []byte("first-bytes"))
	if err != nil {
		t.Fatalf("WS connect failed: %v", err)
	}

	serverWS := <-acceptCh
	if serverWS == nil {
		t.Fatal("server-side handshake failed")
	}
	msg, err := serverWS.Read(ctx)
	if err != nil {
		t.Fatalf("server read failed: %v", err)
	}
	if string(msg) != "first-bytes" {
		t.Fatalf("unexpected message: %q", msg)
	}
	_ = clientStream
}
