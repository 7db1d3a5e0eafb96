package vmess

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"relaymux/internal/perr"
	"relaymux/internal/streamio"
)

// VMessBufSize caps a single decrypted packet's declared length; anything
// past it is treated as a corrupt/hostile length field rather than
// allocated. VMessPackBufSize is the chunk size this client encrypts
// writes in. Grounded on VmessCryptor's VMESS_BUFSIZE/VMESS_PACK_BUFSIZE.
const (
	VMessBufSize     = 1 << 14
	VMessPackBufSize = 1 << 13
)

// maskedGCMCryptor implements the opt(S|M), sec(AES-128-GCM) framing: each
// packet is AEAD-sealed with a nonce built from a 16-bit wrapping counter
// plus a 10-byte static IV slice, and its length prefix is XORed with a
// mask pulled from a SHAKE128 stream seeded on the full IV. Grounded on
// _VmessMaskedGCMCryptor.
type maskedGCMCryptor struct {
	shake    sha3.ShakeHash
	aead     cipher.AEAD
	staticIV [10]byte
	count    uint16
}

func newMaskedGCMCryptor(key, iv [16]byte) (*maskedGCMCryptor, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, perr.ProtocolWrap("vmess.cryptor", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, perr.ProtocolWrap("vmess.cryptor", err)
	}
	shake := sha3.NewShake128()
	shake.Write(iv[:])
	c := &maskedGCMCryptor{shake: shake, aead: aead}
	copy(c.staticIV[:], iv[2:12])
	return c, nil
}

// nextNonce returns the 12-byte GCM nonce for the next packet and
// advances the counter, which wraps naturally at 0xffff.
func (c *maskedGCMCryptor) nextNonce() [12]byte {
	var n [12]byte
	binary.BigEndian.PutUint16(n[:2], c.count)
	copy(n[2:], c.staticIV[:])
	c.count++
	return n
}

func (c *maskedGCMCryptor) nextMask() uint16 {
	var m [2]byte
	c.shake.Read(m[:])
	return binary.BigEndian.Uint16(m[:])
}

// Encrypt chunks buf into ≤VMessPackBufSize pieces and AEAD-seals each
// independently, per VmessCryptor.encrypt.
func (c *maskedGCMCryptor) Encrypt(buf []byte) ([]byte, error) {
	var out []byte
	for len(buf) > VMessPackBufSize {
		packet, err := c.packEncrypt(buf[:VMessPackBufSize])
		if err != nil {
			return nil, err
		}
		out = append(out, packet...)
		buf = buf[VMessPackBufSize:]
	}
	if len(buf) != 0 {
		packet, err := c.packEncrypt(buf)
		if err != nil {
			return nil, err
		}
		out = append(out, packet...)
	}
	return out, nil
}

func (c *maskedGCMCryptor) packEncrypt(buf []byte) ([]byte, error) {
	mask := c.nextMask()
	nonce := c.nextNonce()
	sealed := c.aead.Seal(nil, nonce[:], buf, nil)
	out := make([]byte, 2+len(sealed))
	binary.BigEndian.PutUint16(out[:2], uint16(len(sealed))^mask)
	copy(out[2:], sealed)
	return out, nil
}

// ReadDecrypt reads one length-prefixed masked packet off s and unseals
// it, enforcing VMessBufSize against a hostile or desynced length field.
func (c *maskedGCMCryptor) ReadDecrypt(ctx context.Context, s *streamio.Stream) ([]byte, error) {
	mask := c.nextMask()
	nonce := c.nextNonce()

	lenBytes, err := s.ReadExactly(ctx, 2)
	if err != nil {
		return nil, err
	}
	blen := binary.BigEndian.Uint16(lenBytes) ^ mask
	if int(blen) > VMessBufSize {
		return nil, perr.BufferOverflow("vmess.cryptor", int(blen), VMessBufSize)
	}

	sealed, err := s.ReadExactly(ctx, int(blen))
	if err != nil {
		return nil, err
	}
	plain, err := c.aead.Open(nil, nonce[:], sealed, nil)
	if err != nil {
		return nil, perr.ProtocolWrap("vmess.cryptor", err)
	}
	return plain, nil
}
