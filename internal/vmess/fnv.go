package vmess

// fnv32a computes the standard 32-bit FNV-1a checksum, returned as 4
// big-endian bytes. Grounded on original_source/p3/common/fnv.go's
// fnv32a (the Vmess instruction header's trailing integrity check).
func fnv32a(buf []byte) [4]byte {
	const (
		offsetBasis uint32 = 0x811c9dc5
		prime       uint32 = 0x01000193
	)
	r := offsetBasis
	for _, c := range buf {
		r = (r ^ uint32(c)) * prime
	}
	var out [4]byte
	out[0] = byte(r >> 24)
	out[1] = byte(r >> 16)
	out[2] = byte(r >> 8)
	out[3] = byte(r)
	return out
}
