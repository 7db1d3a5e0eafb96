package wsstream

import (
	"context"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/net/http/httpguts"

	"relaymux/internal/perr"
	"relaymux/internal/streamio"
)

// magicGUID is the fixed RFC 6455 §1.3 handshake constant.
const magicGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// ComputeAccept derives the Sec-WebSocket-Accept value for a given
// Sec-WebSocket-Key, grounded on the teacher's internal/ws/utils.go.
func ComputeAccept(key string) string {
	h := sha1.New()
	h.Write([]byte(key))
	h.Write([]byte(magicGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func newClientKey() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", perr.IO("ws.client_key", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// HandshakeRequest is the minimal set of request-line/header fields an
// Accept/Dial round trip needs; everything else in the original HTTP
// request belongs to the caller (acceptor.HTTP or similar) to validate.
type HandshakeRequest struct {
	Path string
	Host string
	Key  string
}

// Dial performs the client-side opening handshake over inner (already
// connected to host:port), and on success returns a masked-client
// Stream ready for message-level Read/Write. Grounded on the Python
// WSConnector and the teacher's client dial path.
func Dial(ctx context.Context, inner *streamio.Stream, path, host string) (*streamio.Stream, error) {
	key, err := newClientKey()
	if err != nil {
		return nil, err
	}
	req := fmt.Sprintf(
		"GET %s HTTP/1.1\r\n"+
			"Host: %s\r\n"+
			"Upgrade: websocket\r\n"+
			"Connection: Upgrade\r\n"+
			"Sec-WebSocket-Key: %s\r\n"+
			"Sec-WebSocket-Version: 13\r\n"+
			"\r\n",
		path, host, key,
	)
	if err := inner.WriteDrain(ctx, []byte(req)); err != nil {
		return nil, err
	}
	statusLine, err := inner.ReadUntil(ctx, []byte("\r\n"), true)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(string(statusLine), " 101 ") {
		return nil, perr.Protocol("ws.dial", "expected 101 status, got "+string(statusLine))
	}
	headers, err := readHeaders(ctx, inner)
	if err != nil {
		return nil, err
	}
	accept := headers.Get("Sec-WebSocket-Accept")
	if accept != ComputeAccept(key) {
		return nil, perr.Protocol("ws.dial", "Sec-WebSocket-Accept mismatch")
	}
	return New(inner, Client), nil
}

// Accept performs the server-side handshake given an already-parsed
// HandshakeRequest (the request line and headers have been consumed by
// the caller's HTTP acceptor), writing the 101 response over inner and
// returning a server-role (unmasked-outgoing) message Stream.
func Accept(ctx context.Context, inner *streamio.Stream, req HandshakeRequest) (*streamio.Stream, error) {
	if req.Key == "" {
		return nil, perr.Protocol("ws.accept", "missing Sec-WebSocket-Key")
	}
	resp := fmt.Sprintf(
		"HTTP/1.1 101 Switching Protocols\r\n"+
			"Upgrade: websocket\r\n"+
			"Connection: Upgrade\r\n"+
			"Sec-WebSocket-Accept: %s\r\n"+
			"\r\n",
		ComputeAccept(req.Key),
	)
	if err := inner.WriteDrain(ctx, []byte(resp)); err != nil {
		return nil, err
	}
	return New(inner, Server), nil
}

// AcceptHandshake reads a full GET /path HTTP/1.1 upgrade request off
// inner, validates method, version, Connection/Upgrade tokens and
// Sec-WebSocket-Version per spec.md §4.D, then completes the handshake
// via Accept. Any push-back a caller performed on inner before this call
// (e.g. a peeked first byte) is preserved.
func AcceptHandshake(ctx context.Context, inner *streamio.Stream) (*streamio.Stream, error) {
	requestLine, err := inner.ReadUntil(ctx, []byte("\r\n"), true)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(string(requestLine))
	if len(fields) != 3 || fields[0] != "GET" || !strings.HasPrefix(fields[2], "HTTP/1.1") {
		return nil, perr.Protocol("ws.accept", "malformed request line")
	}
	headers, err := readHeaders(ctx, inner)
	if err != nil {
		return nil, err
	}
	if !httpguts.HeaderValuesContainsToken(headers["connection"], "Upgrade") {
		return nil, perr.Protocol("ws.accept", "missing Connection: Upgrade")
	}
	if !strings.EqualFold(headers.Get("Upgrade"), "websocket") {
		return nil, perr.Protocol("ws.accept", "missing Upgrade: websocket")
	}
	if headers.Get("Sec-WebSocket-Version") != "13" {
		return nil, perr.Protocol("ws.accept", "unsupported Sec-WebSocket-Version")
	}
	return Accept(ctx, inner, HandshakeRequest{
		Path: fields[1],
		Host: headers.Get("Host"),
		Key:  headers.Get("Sec-WebSocket-Key"),
	})
}

// header is a minimal ordered header bag; httpguts validates token/field
// shape so malformed handshake headers are rejected the same way the
// rest of the pack's proxies do (martian, ski-ext's fetch patch).
type header map[string][]string

func (h header) Get(key string) string {
	if vs := h[strings.ToLower(key)]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func readHeaders(ctx context.Context, s *streamio.Stream) (header, error) {
	h := make(header)
	for {
		line, err := s.ReadUntil(ctx, []byte("\r\n"), true)
		if err != nil {
			return nil, err
		}
		if len(line) == 0 {
			return h, nil
		}
		name, value, ok := strings.Cut(string(line), ":")
		if !ok || !httpguts.ValidHeaderFieldName(name) {
			return nil, perr.Protocol("ws.headers", "malformed header line")
		}
		value = strings.TrimSpace(value)
		if !httpguts.ValidHeaderFieldValue(value) {
			return nil, perr.Protocol("ws.headers", "invalid header value")
		}
		key := strings.ToLower(strings.TrimSpace(name))
		h[key] = append(h[key], value)
	}
}
