// Package acceptor implements the server-side half of each inbound
// protocol: parsing a client's handshake off a freshly accepted Stream
// and producing a proxyreq.Request (destination + residual bytes) ready
// for dispatch. Grounded on original_source/proxy/acceptor/*.py, with
// the Python mixin-based layering flattened into plain functions over
// *streamio.Stream, Go's usual alternative to a class hierarchy.
package acceptor

import (
	"context"
	"strconv"
	"strings"

	"relaymux/internal/perr"
	"relaymux/internal/proxyreq"
	"relaymux/internal/streamio"
)

const httpConnectResponse = "HTTP/1.1 200 Connection Established\r\nConnection: close\r\n\r\n"

// HTTP parses an HTTP/1.1 request line and headers off s. A CONNECT
// request is replied to with 200 and its Host becomes the destination;
// any other method has its Proxy-* headers stripped and the re-serialized
// request pushed back as residual bytes so the request reaches the
// origin unmodified otherwise, per spec.md §4.E.
func HTTP(ctx context.Context, s *streamio.Stream) (req *proxyreq.Request, err error) {
	return streamio.Guard2(ctx, s, func() (*proxyreq.Request, error) {
		raw, err := s.ReadUntil(ctx, []byte("\r\n\r\n"), true)
		if err != nil {
			return nil, err
		}
		headerBlock := string(raw)
		lines := strings.Split(headerBlock, "\r\n")
		if len(lines) == 0 {
			return nil, perr.Protocol("http.accept", "empty request")
		}
		method, ok := parseRequestLine(lines[0])
		if !ok {
			return nil, perr.Protocol("http.accept", "malformed or non-HTTP/1.1 request line")
		}
		host, port, ok := findHost(lines[1:])
		if !ok {
			return nil, perr.Protocol("http.accept", "missing Host header")
		}

		r := &proxyreq.Request{Stream: s, Dest: proxyreq.Addr{Host: host, Port: port}}
		if method == "CONNECT" {
			if err := s.WriteDrain(ctx, []byte(httpConnectResponse)); err != nil {
				return nil, err
			}
			return r, nil
		}

		kept := make([]string, 0, len(lines))
		kept = append(kept, lines[0])
		for _, line := range lines[1:] {
			if strings.HasPrefix(line, "Proxy-") {
				continue
			}
			kept = append(kept, line)
		}
		s.Push([]byte(strings.Join(kept, "\r\n") + "\r\n\r\n"))
		return r, nil
	})
}

// parseRequestLine splits "METHOD path HTTP/1.1" into method, rejecting
// any other version per spec.md §9's explicit Open-Question resolution:
// this acceptor requires HTTP/1.1 exactly, not merely an "HTTP/" prefix.
func parseRequestLine(line string) (method string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) != 3 || fields[2] != "HTTP/1.1" {
		return "", false
	}
	return fields[0], true
}

// findHost locates the Host header among header lines and splits it into
// host/port, defaulting to port 80, accepting bracketed IPv6 literals.
func findHost(headerLines []string) (host string, port uint16, ok bool) {
	for _, line := range headerLines {
		name, value, found := strings.Cut(line, ":")
		if !found || !strings.EqualFold(strings.TrimSpace(name), "Host") {
			continue
		}
		value = strings.TrimSpace(value)
		h, p, err := splitHostPortDefault80(value)
		if err != nil {
			return "", 0, false
		}
		return h, p, true
	}
	return "", 0, false
}

func splitHostPortDefault80(s string) (string, uint16, error) {
	if strings.HasPrefix(s, "[") {
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return "", 0, perr.Protocol("http.accept", "unterminated IPv6 literal")
		}
		host := s[1:end]
		rest := s[end+1:]
		if rest == "" {
			return host, 80, nil
		}
		port, err := strconv.ParseUint(strings.TrimPrefix(rest, ":"), 10, 16)
		if err != nil {
			return "", 0, perr.Protocol("http.accept", "invalid port")
		}
		return host, uint16(port), nil
	}
	idx := strings.LastIndexByte(s, ':')
	if idx < 0 {
		return s, 80, nil
	}
	port, err := strconv.ParseUint(s[idx+1:], 10, 16)
	if err != nil {
		return "", 0, perr.Protocol("http.accept", "invalid port")
	}
	return s[:idx], uint16(port), nil
}
