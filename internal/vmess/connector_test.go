package vmess

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"testing"
	"time"

	"relaymux/internal/proxyreq"
	"relaymux/internal/streamio"
)

// serverReadRequest mimics just enough of the server side to let
// TestConnectHandshakeRoundTrip drive a full handshake: it reads the
// certification tag, recovers the timestamp by brute force (mirroring
// findMatchingTimestamp), decrypts the instruction header off s (relying
// on the Stream's push-back buffering to leave the AEAD-framed rest bytes
// untouched for the caller), and returns the decoded Instruction. It
// assumes the destination address is the literal "example.org" to size
// the address portion of the header.
func serverReadRequest(ctx context.Context, t *testing.T, s *streamio.Stream, userID UserID, around time.Time) Instruction {
	t.Helper()
	certBuf, err := s.ReadExactly(ctx, 16)
	if err != nil {
		t.Fatalf("read certification: %v", err)
	}
	var cert [16]byte
	copy(cert[:], certBuf)

	ts := findMatchingTimestamp(t, userID, cert, around)

	key := userID.InstructionKey()
	iv := InstructionIV(ts)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		t.Fatalf("aes.NewCipher: %v", err)
	}

	// The fixed-width prefix (ver+iv+key+BBBBB) is read and decrypted
	// first so the pad-length nibble (packed into byte 35) can be learned
	// before computing how many more bytes the address+pad+checksum tail
	// needs, since Pad is chosen at random per NewInstruction call.
	const prefixLen = 1 + 16 + 16 + 5
	cipherPrefix, err := s.ReadExactly(ctx, prefixLen)
	if err != nil {
		t.Fatalf("read instruction prefix: %v", err)
	}
	decryptor := cipher.NewCFBDecrypter(block, iv[:])
	plainPrefix := make([]byte, prefixLen)
	decryptor.XORKeyStream(plainPrefix, cipherPrefix)

	var ins Instruction
	copy(ins.IV[:], plainPrefix[1:17])
	copy(ins.Key[:], plainPrefix[17:33])
	ins.V = plainPrefix[33]
	ins.Opt = Option(plainPrefix[34])
	ins.Pad = plainPrefix[35] >> 4
	ins.Sec = EncryptionMethod(plainPrefix[35] & 0x0f)
	ins.Cmd = Command(plainPrefix[37])

	addrLen := 3 + 1 + len("example.org")
	tailLen := addrLen + int(ins.Pad) + 4
	cipherTail, err := s.ReadExactly(ctx, tailLen)
	if err != nil {
		t.Fatalf("read instruction address/pad/checksum: %v", err)
	}
	plainTail := make([]byte, tailLen)
	decryptor.XORKeyStream(plainTail, cipherTail)
	_ = plainTail // address/pad/checksum aren't needed beyond having been consumed off the wire
	return ins
}

func TestConnectHandshakeRoundTrip(t *testing.T) {
	ctx := context.Background()
	userID, err := NewUserID("b831381d-6324-4d53-ad4f-8cda48b30811")
	if err != nil {
		t.Fatalf("NewUserID: %v", err)
	}

	left, right, closeFn := pipeStreams()
	defer closeFn()

	dest := proxyreq.Addr{Host: "example.org", Port: 80}
	before := time.Now()

	clientDone := make(chan error, 1)
	var clientStream any
	go func() {
		s, err := Connect(ctx, left, userID, dest, []byte("GET / HTTP/1.1\r\n\r\n"))
		clientStream = s
		clientDone <- err
	}()

	ins := serverReadRequest(ctx, t, right, userID, before)

	readCryptor, err := newMaskedGCMCryptor(ins.Key, ins.IV)
	if err != nil {
		t.Fatalf("newMaskedGCMCryptor: %v", err)
	}
	const wantRest = "GET / HTTP/1.1\r\n\r\n"
	var plainRest []byte
	for len(plainRest) < len(wantRest) {
		chunk, err := readCryptor.ReadDecrypt(ctx, right)
		if err != nil {
			t.Fatalf("server decrypt rest: %v", err)
		}
		plainRest = append(plainRest, chunk...)
	}
	if string(plainRest) != wantRest {
		t.Fatalf("unexpected rest payload: %q", plainRest)
	}

	rkey := ins.ResponseKey()
	riv := ins.ResponseIV()
	block, err := aes.NewCipher(rkey[:])
	if err != nil {
		t.Fatalf("aes.NewCipher: %v", err)
	}
	plainResp := []byte{ins.V, 0, 0, 0}
	cipherResp := make([]byte, len(plainResp))
	cipher.NewCFBEncrypter(block, riv[:]).XORKeyStream(cipherResp, plainResp)
	if err := right.WriteDrain(ctx, cipherResp); err != nil {
		t.Fatalf("server write response: %v", err)
	}

	if err := <-clientDone; err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if clientStream == nil {
		t.Fatal("expected non-nil stream")
	}
}
