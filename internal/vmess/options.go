package vmess

// Option is the instruction header's Opt bit flags. Only S and M are
// ever set by this client; R/P/A are reserved/unsupported, per spec.md
// §4.H and the original VmessOption docstring.
type Option byte

const (
	OptS Option = 1 << 0 // standard format data stream
	OptR Option = 1 << 1 // reuse TCP connection (deprecated, unused)
	OptM Option = 1 << 2 // metadata obfuscation (length masking)
	OptP Option = 1 << 3 // global padding
	OptA Option = 1 << 4 // experimental ciphertext length auth
)

// DefaultOption is the request option set this client always sends:
// standard framing with masked length, per spec.md §4.H.
const DefaultOption = OptS | OptM

// EncryptionMethod selects the instruction header's Sec field. Values
// are the corrected (non-sequential) ones documented in the original
// source: 1=AES-128-CFB legacy, 3=AES-128-GCM, 4=ChaCha20-Poly1305,
// 5=no encryption.
type EncryptionMethod byte

const (
	AES128CFB        EncryptionMethod = 1
	AES128GCM        EncryptionMethod = 3
	ChaCha20Poly1305 EncryptionMethod = 4
	NoEncryption     EncryptionMethod = 5
)

// Command is the instruction header's Cmd field.
type Command byte

const (
	CommandTCP Command = 1
	CommandUDP Command = 2
)

// ServerOption is the response header's Opt field; this client only
// ever accepts 0 (no reuse-TCP bit set).
type ServerOption byte

// ServerCommand is the response header's Cmd field; this client only
// ever accepts NoCommand.
type ServerCommand byte

const (
	NoCommand   ServerCommand = 0
	DynamicPort ServerCommand = 1
)

// AddressType selects how an Address encodes on the wire. Values differ
// from SOCKS5's: domain is 2 (not 3) and IPv6 is 3 (not 4).
type AddressType byte

const (
	AddressIPv4   AddressType = 1
	AddressDomain AddressType = 2
	AddressIPv6   AddressType = 3
)
