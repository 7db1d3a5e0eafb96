package vmess

import (
	"crypto/aes"
	"crypto/cipher"
	"time"

	"relaymux/internal/perr"
)

// Request is the full wire-format request sent once per connection:
// a 16-byte HMAC-MD5 certification tag followed by the AES-128-CFB
// encrypted instruction header. Grounded on
// original_source/p3/contrib/v2rayn/vmess.go's VmessRequest.__bytes__.
type Request struct {
	UserID      UserID
	Instruction Instruction
}

// Bytes renders the certification tag and encrypted instruction header
// for the current wall-clock timestamp.
func (r Request) Bytes() ([]byte, error) {
	ts := timestampBytes(time.Now().Unix())
	cert := r.UserID.Certification(ts)

	plain, err := r.Instruction.Bytes()
	if err != nil {
		return nil, err
	}

	key := r.UserID.InstructionKey()
	iv := InstructionIV(ts)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, perr.ProtocolWrap("vmess.request", err)
	}
	ciphertext := make([]byte, len(plain))
	cipher.NewCFBEncrypter(block, iv[:]).XORKeyStream(ciphertext, plain)

	out := make([]byte, 0, len(cert)+len(ciphertext))
	out = append(out, cert[:]...)
	out = append(out, ciphertext...)
	return out, nil
}
