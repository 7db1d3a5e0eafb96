package acceptor

import "net/netip"

// ipString renders a 4- or 16-byte big-endian IP address, shared by the
// SOCKS5 and Trojan acceptors (both use SOCKS5-style address encoding).
func ipString(raw []byte) string {
	addr, ok := netip.AddrFromSlice(raw)
	if !ok {
		return ""
	}
	return addr.String()
}
