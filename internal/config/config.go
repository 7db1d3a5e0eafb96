// Package config defines the plain Go records the core is handed at
// startup: it never reads files or parses JSON itself (spec.md §6's
// Core -> Config interface). internal/app builds these from flags and
// an on-disk outbox/rules file; the struct tags exist only so that file
// can round-trip through encoding/json.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// TrojanAuthHex returns the 56-byte lowercase-hex SHA-224 digest of
// password, the form every Trojan acceptor/connector expects as its
// auth tag, per spec.md §6's wire-format note.
func TrojanAuthHex(password string) []byte {
	sum := sha256.Sum224([]byte(password))
	dst := make([]byte, hex.EncodedLen(len(sum)))
	hex.Encode(dst, sum[:])
	return dst
}

// InboxScheme is the protocol an inbound listener speaks, per spec.md
// §6's inbox scheme enumeration.
type InboxScheme string

const (
	InboxHTTP    InboxScheme = "http"
	InboxHTTPS   InboxScheme = "https"
	InboxSocks5  InboxScheme = "socks5"
	InboxSocks5S InboxScheme = "socks5s"
	InboxAuto    InboxScheme = "auto"
	InboxAutoS   InboxScheme = "autos"
	InboxTrojan  InboxScheme = "trojan"
)

// OutboxScheme is the protocol an outbound path speaks, per spec.md §6's
// outbox scheme enumeration.
type OutboxScheme string

const (
	OutboxTCP     OutboxScheme = "tcp"
	OutboxHTTP    OutboxScheme = "http"
	OutboxHTTPS   OutboxScheme = "https"
	OutboxSocks5  OutboxScheme = "socks5"
	OutboxSocks5S OutboxScheme = "socks5s"
	OutboxTrojan  OutboxScheme = "trojan"
	OutboxVmess   OutboxScheme = "vmess"
	OutboxNull    OutboxScheme = "null"
	OutboxBlock   OutboxScheme = "block"
	OutboxDirect  OutboxScheme = "direct"
)

// OutboxTransport is the connection-level modifier layered under an
// outbox's protocol framing.
type OutboxTransport string

const (
	TransportTCP OutboxTransport = "tcp"
	TransportTLS OutboxTransport = "tls"
	TransportWS  OutboxTransport = "ws"
	TransportWSS OutboxTransport = "wss"
)

// FallbackVerb is the rules-file fallback verdict.
type FallbackVerb string

const (
	FallbackBlock   FallbackVerb = "block"
	FallbackDirect  FallbackVerb = "direct"
	FallbackForward FallbackVerb = "forward"
)

// TLSConfig names the PEM material an inbox's or outbox's TLS layer
// needs. internal/app resolves these paths into a *tls.Config; this
// package only carries the names, per spec.md §6's Core -> TLS
// interface ("it does not construct TLS contexts").
type TLSConfig struct {
	CertFile    string `json:"cert_file,omitempty"`
	KeyFile     string `json:"key_file,omitempty"`
	KeyPassword string `json:"key_password,omitempty"`
}

// Inbox is the resolved configuration of the single inbound listener.
//
// Password is a supplemented field: the distilled inbox record carries
// only scheme/host/port/tls, but a Trojan (or auto-detect-with-Trojan)
// listener has nowhere else to learn the auth password it checks
// against, and the original carries it on the inbox URL itself
// (original_source/p3/utils/url.py's password, threaded through
// proxy/inbox/base.py). Ignored by every non-Trojan scheme.
type Inbox struct {
	Scheme   InboxScheme `json:"scheme"`
	Host     string      `json:"host"`
	Port     uint16      `json:"port"`
	Password string      `json:"password,omitempty"`
	TLS      *TLSConfig  `json:"tls,omitempty"`
}

// Outbox is one configured outbound path, per spec.md §6's outbox
// record. Weight/Delay are optional: nil leaves internal/outbound.New's
// defaults in place, and a configured value overrides them at load time.
type Outbox struct {
	Scheme OutboxScheme `json:"scheme"`
	Host   string       `json:"host"`
	Port   uint16       `json:"port"`
	Name   string       `json:"name"`

	Weight *float64 `json:"weight,omitempty"`
	Delay  *float64 `json:"delay,omitempty"`

	Password string `json:"password,omitempty"`
	UUID     string `json:"uuid,omitempty"`

	Transport OutboxTransport `json:"transport,omitempty"`
	WSHost    string          `json:"ws_host,omitempty"`
	WSPath    string          `json:"ws_path,omitempty"`
	TLSHost   string          `json:"tls_host,omitempty"`
	// TLSProtocols is carried through for ALPN negotiation by whatever
	// TLSWrapFunc internal/app builds; the core treats it as opaque.
	TLSProtocols []string `json:"tls_protocols,omitempty"`
}

// Rules is the routing table's file source and fallback verdict.
type Rules struct {
	FilePath string       `json:"file_path"`
	Fallback FallbackVerb `json:"fallback"`
}

// Retry is the outbound connect-retry budget.
type Retry struct {
	Attempts int `json:"attempts"`
}

// DefaultRetryAttempts matches spec.md §6's retry.attempts default.
const DefaultRetryAttempts = 3

// Config is the fully-resolved object the core is handed at startup,
// per spec.md §6's Core -> Config interface; nothing downstream of
// internal/app re-reads a file or re-parses JSON.
type Config struct {
	Inbox  Inbox    `json:"inbox"`
	Outbox []Outbox `json:"outbox"`
	Rules  Rules    `json:"rules"`
	Retry  Retry    `json:"retry"`
	Limits Limits   `json:"-"`
}

// Limits are the process-wide knobs threaded into the hot path,
// mirroring the teacher's Config/Limits split: Config is what a human
// configures, Limits holds process-level settings. The server consults
// only MaxConns; ReadTimeout and WriteTimeout are carried but not applied
// to sessions.
type Limits struct {
	MaxConns     int64
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}
