package vmess

import (
	"crypto/md5"
	"crypto/rand"

	"relaymux/internal/perr"
)

// Instruction is the per-connection request header: the plaintext that
// gets AES-128-CFB encrypted and sent as the Vmess request's "Instruction
// part". Grounded on original_source/p3/contrib/v2rayn/vmess.go's
// VmessInstruction.
type Instruction struct {
	IV   [16]byte
	Key  [16]byte
	V    byte
	Opt  Option
	Pad  byte // 4-bit padding length
	Sec  EncryptionMethod
	Cmd  Command
	Addr Address
}

// NewInstruction builds a fresh instruction for addr with randomly
// chosen IV, data key, response-verify byte and pad length, and the
// client's fixed defaults (standard+masked framing, AES-128-GCM, TCP).
func NewInstruction(addr Address) (Instruction, error) {
	var iv, key [16]byte
	if _, err := rand.Read(iv[:]); err != nil {
		return Instruction{}, perr.IO("vmess.instruction", err)
	}
	if _, err := rand.Read(key[:]); err != nil {
		return Instruction{}, perr.IO("vmess.instruction", err)
	}
	var vByte [1]byte
	if _, err := rand.Read(vByte[:]); err != nil {
		return Instruction{}, perr.IO("vmess.instruction", err)
	}
	var padByte [1]byte
	if _, err := rand.Read(padByte[:]); err != nil {
		return Instruction{}, perr.IO("vmess.instruction", err)
	}
	return Instruction{
		IV:   iv,
		Key:  key,
		V:    vByte[0],
		Opt:  DefaultOption,
		Pad:  padByte[0] & 0x0f,
		Sec:  AES128GCM,
		Cmd:  CommandTCP,
		Addr: addr,
	}, nil
}

// ResponseKey and ResponseIV are the response-direction derived keying
// material: MD5 of the request-direction key/IV respectively.
func (ins Instruction) ResponseKey() [16]byte { return md5.Sum(ins.Key[:]) }
func (ins Instruction) ResponseIV() [16]byte  { return md5.Sum(ins.IV[:]) }

// Bytes renders the full instruction-header plaintext: version, IV, key,
// the packed v/opt/(pad|sec)/reserved/cmd byte group, the address, pad
// bytes, and a trailing FNV-1a-32 checksum of everything before it — per
// spec.md §4.H.
func (ins Instruction) Bytes() ([]byte, error) {
	addrBytes, err := ins.Addr.Bytes()
	if err != nil {
		return nil, err
	}
	pad := make([]byte, ins.Pad)
	if len(pad) != 0 {
		if _, err := rand.Read(pad); err != nil {
			return nil, perr.IO("vmess.instruction", err)
		}
	}

	buf := make([]byte, 0, 1+16+16+5+len(addrBytes)+len(pad)+4)
	buf = append(buf, 1) // version
	buf = append(buf, ins.IV[:]...)
	buf = append(buf, ins.Key[:]...)
	buf = append(buf,
		ins.V,
		byte(ins.Opt),
		(ins.Pad<<4)|byte(ins.Sec),
		0, // reserved
		byte(ins.Cmd),
	)
	buf = append(buf, addrBytes...)
	buf = append(buf, pad...)

	checksum := fnv32a(buf)
	buf = append(buf, checksum[:]...)
	return buf, nil
}
