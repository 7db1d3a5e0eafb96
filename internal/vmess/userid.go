package vmess

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/binary"

	"github.com/google/uuid"
)

// vmessMagic is the fixed constant appended to the UUID bytes in the
// instruction-key derivation, per spec.md §4.H.
var vmessMagic = []byte("c48619fe-8f02-49e0-b9e9-edf763e17e21")

// UserID identifies a Vmess account by its UUID.
type UserID struct {
	uuid.UUID
}

// NewUserID parses a UUID string (e.g. from an outbox's config record).
func NewUserID(s string) (UserID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID{UUID: u}, nil
}

// timestampBytes renders a unix-second timestamp as 8 big-endian bytes.
func timestampBytes(unixSeconds int64) [8]byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(unixSeconds))
	return buf
}

// Certification is the 16-byte HMAC-MD5(UUID, ts) authentication tag
// prefixed to every Vmess request.
func (id UserID) Certification(ts [8]byte) [16]byte {
	mac := hmac.New(md5.New, id.UUID[:])
	mac.Write(ts[:])
	var out [16]byte
	copy(out[:], mac.Sum(nil))
	return out
}

// InstructionKey derives the AES key that encrypts the instruction
// header: MD5(UUID ∥ MAGIC).
func (id UserID) InstructionKey() [16]byte {
	h := md5.New()
	h.Write(id.UUID[:])
	h.Write(vmessMagic)
	var out [16]byte
	copy(out[:], h.Sum(nil))
	return out
}

// InstructionIV derives the AES-CFB IV that encrypts the instruction
// header: MD5(ts ∥ ts ∥ ts ∥ ts).
func InstructionIV(ts [8]byte) [16]byte {
	h := md5.New()
	for i := 0; i < 4; i++ {
		h.Write(ts[:])
	}
	var out [16]byte
	copy(out[:], h.Sum(nil))
	return out
}
