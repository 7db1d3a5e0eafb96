package acceptor

import (
	"context"
	"testing"

	"relaymux/internal/proxyreq"
)

func TestSocks5ConnectDomain(t *testing.T) {
	ctx := context.Background()
	client, s := pipe(t)
	defer client.Close()

	reqCh := make(chan *httpResult, 1)
	go func() {
		r, err := Socks5(ctx, s)
		reqCh <- &httpResult{req: r, err: err}
	}()

	// greeting: ver=5, 1 method, no-auth
	if _, err := client.Write([]byte{5, 1, 0}); err != nil {
		t.Fatalf("write greeting failed: %v", err)
	}
	buf := make([]byte, 2)
	if _, err := client.Read(buf); err != nil {
		t.Fatalf("read method selection failed: %v", err)
	}
	if buf[0] != 5 || buf[1] != 0 {
		t.Fatalf("unexpected method selection: %v", buf)
	}

	domain := []byte("example.com")
	req := []byte{5, 1, 0, 3, byte(len(domain))}
	req = append(req, domain...)
	req = append(req, 0x01, 0xBB) // port 443
	if _, err := client.Write(req); err != nil {
		t.Fatalf("write request failed: %v", err)
	}
	reply := make([]byte, 10)
	if _, err := client.Read(reply); err != nil {
		t.Fatalf("read reply failed: %v", err)
	}
	if reply[0] != 5 || reply[1] != 0 {
		t.Fatalf("unexpected reply: %v", reply)
	}

	res := <-reqCh
	if res.err != nil {
		t.Fatalf("Socks5 accept failed: %v", res.err)
	}
	if res.req.Dest.String() != "example.com:443" {
		t.Fatalf("unexpected destination: %q", res.req.Dest.String())
	}
}

func TestSocks5ConnectIPv4(t *testing.T) {
	ctx := context.Background()
	client, s := pipe(t)
	defer client.Close()

	reqCh := make(chan *httpResult, 1)
	go func() {
		r, err := Socks5(ctx, s)
		reqCh <- &httpResult{req: r, err: err}
	}()

	if _, err := client.Write([]byte{5, 1, 0}); err != nil {
		t.Fatalf("write greeting failed: %v", err)
	}
	buf := make([]byte, 2)
	if _, err := client.Read(buf); err != nil {
		t.Fatalf("read method selection failed: %v", err)
	}

	req := []byte{5, 1, 0, 1, 93, 184, 216, 34, 0, 80}
	if _, err := client.Write(req); err != nil {
		t.Fatalf("write request failed: %v", err)
	}
	reply := make([]byte, 10)
	if _, err := client.Read(reply); err != nil {
		t.Fatalf("read reply failed: %v", err)
	}

	res := <-reqCh
	if res.err != nil {
		t.Fatalf("Socks5 accept failed: %v", res.err)
	}
	want := proxyreq.Addr{Host: "93.184.216.34", Port: 80}
	if res.req.Dest != want {
		t.Fatalf("unexpected destination: %+v", res.req.Dest)
	}
}

func TestSocks5RejectsAuthRequired(t *testing.T) {
	ctx := context.Background()
	client, s := pipe(t)
	defer client.Close()

	reqCh := make(chan *httpResult, 1)
	go func() {
		r, err := Socks5(ctx, s)
		reqCh <- &httpResult{req: r, err: err}
	}()

	// Offers only method 2 (username/password), no method 0.
	if _, err := client.Write([]byte{5, 1, 2}); err != nil {
		t.Fatalf("write greeting failed: %v", err)
	}

	res := <-reqCh
	if res.err == nil {
		t.Fatal("expected rejection when no-auth is not offered")
	}
}
