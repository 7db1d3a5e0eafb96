package vmess

import (
	"encoding/binary"
	"net/netip"

	"relaymux/internal/perr"
)

// Address is a Vmess instruction-header destination: a port plus a
// domain or IP literal, tagged by AddressType. Grounded on
// original_source/p3/contrib/v2rayn/vmess.go's VmessAddress.
type Address struct {
	Type AddressType
	Host string
	Port uint16
}

// Bytes renders the address per spec.md §4.H: port (u16 BE) and type
// byte always come first, followed by the type-specific address body —
// length-prefixed for a domain, raw 4/16 bytes for IPv4/IPv6.
func (a Address) Bytes() ([]byte, error) {
	head := make([]byte, 3)
	binary.BigEndian.PutUint16(head[:2], a.Port)
	head[2] = byte(a.Type)

	switch a.Type {
	case AddressDomain:
		host := []byte(a.Host)
		if len(host) > 255 {
			return nil, perr.Protocol("vmess.address", "domain too long")
		}
		out := make([]byte, 0, 3+1+len(host))
		out = append(out, head...)
		out = append(out, byte(len(host)))
		out = append(out, host...)
		return out, nil
	case AddressIPv4:
		ip, err := netip.ParseAddr(a.Host)
		if err != nil || !ip.Is4() {
			return nil, perr.Protocol("vmess.address", "invalid IPv4 literal")
		}
		raw := ip.As4()
		return append(append([]byte{}, head...), raw[:]...), nil
	case AddressIPv6:
		ip, err := netip.ParseAddr(a.Host)
		if err != nil || !ip.Is6() {
			return nil, perr.Protocol("vmess.address", "invalid IPv6 literal")
		}
		raw := ip.As16()
		return append(append([]byte{}, head...), raw[:]...), nil
	default:
		return nil, perr.Protocol("vmess.address", "unsupported address type")
	}
}
