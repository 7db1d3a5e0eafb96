package vmess

import (
	"bytes"
	"context"
	"net"
	"testing"

	"relaymux/internal/streamio"
)

func pipeStreams() (*streamio.Stream, *streamio.Stream, func()) {
	left, right := net.Pipe()
	return streamio.NewTCP(left), streamio.NewTCP(right), func() {
		left.Close()
		right.Close()
	}
}

func TestMaskedGCMCryptorRoundTrip(t *testing.T) {
	ctx := context.Background()
	var key, iv [16]byte
	for i := range key {
		key[i] = byte(i)
		iv[i] = byte(i * 3)
	}

	writer, err := newMaskedGCMCryptor(key, iv)
	if err != nil {
		t.Fatalf("newMaskedGCMCryptor: %v", err)
	}
	reader, err := newMaskedGCMCryptor(key, iv)
	if err != nil {
		t.Fatalf("newMaskedGCMCryptor: %v", err)
	}

	a, b, closeFn := pipeStreams()
	defer closeFn()

	msgs := [][]byte{[]byte("hello"), make([]byte, VMessPackBufSize+100), []byte("x")}
	for i := range msgs[1] {
		msgs[1][i] = byte(i)
	}

	done := make(chan error, 1)
	go func() {
		for _, m := range msgs {
			packed, err := writer.Encrypt(m)
			if err != nil {
				done <- err
				return
			}
			if err := a.WriteDrain(ctx, packed); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	for _, want := range msgs {
		var got []byte
		for len(got) < len(want) {
			chunk, err := reader.ReadDecrypt(ctx, b)
			if err != nil {
				t.Fatalf("ReadDecrypt: %v", err)
			}
			got = append(got, chunk...)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("round trip mismatch: got %d bytes, want %d bytes", len(got), len(want))
		}
	}
	if err := <-done; err != nil {
		t.Fatalf("writer goroutine: %v", err)
	}
}

func TestMaskedGCMCryptorTamperDetection(t *testing.T) {
	ctx := context.Background()
	var key, iv [16]byte
	for i := range key {
		key[i] = byte(i + 1)
		iv[i] = byte(i + 2)
	}

	writer, err := newMaskedGCMCryptor(key, iv)
	if err != nil {
		t.Fatalf("newMaskedGCMCryptor: %v", err)
	}
	reader, err := newMaskedGCMCryptor(key, iv)
	if err != nil {
		t.Fatalf("newMaskedGCMCryptor: %v", err)
	}

	packed, err := writer.Encrypt([]byte("tamper me"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	packed[len(packed)-1] ^= 0xff // flip a ciphertext/tag byte

	a, b, closeFn := pipeStreams()
	defer closeFn()

	done := make(chan error, 1)
	go func() {
		done <- a.WriteDrain(ctx, packed)
	}()

	if _, err := reader.ReadDecrypt(ctx, b); err == nil {
		t.Fatal("expected GCM auth failure on tampered ciphertext")
	}
	if err := <-done; err != nil {
		t.Fatalf("write: %v", err)
	}
}
