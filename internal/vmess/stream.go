package vmess

import (
	"context"

	"relaymux/internal/streamio"
)

// prim is the Primitive for a Vmess-encrypted Stream layered over an
// inner transport Stream, with independent encrypt/decrypt cryptors
// since each direction derives its own key/IV/counter. Grounded on
// VmessStream.
type prim struct {
	inner   *streamio.Stream
	encrypt *maskedGCMCryptor
	decrypt *maskedGCMCryptor
}

func newStream(inner *streamio.Stream, encrypt, decrypt *maskedGCMCryptor) *streamio.Stream {
	return streamio.NewLayered("vmess", &prim{inner: inner, encrypt: encrypt, decrypt: decrypt}, inner)
}

func (p *prim) WriteRaw(ctx context.Context, buf []byte) error {
	packed, err := p.encrypt.Encrypt(buf)
	if err != nil {
		return err
	}
	return p.inner.WriteDrain(ctx, packed)
}

func (p *prim) Drain(ctx context.Context) error { return p.inner.Drain(ctx) }

func (p *prim) Close() error { return p.inner.Close() }

func (p *prim) WaitClosed(ctx context.Context) error { return p.inner.WaitClosed(ctx) }

// ReadRaw peeks the inner stream first so a clean inner EOF surfaces as a
// clean empty read rather than a truncated-packet error, then decrypts
// exactly one packet per call.
func (p *prim) ReadRaw(ctx context.Context) ([]byte, error) {
	buf, err := p.inner.Peek(ctx)
	if err != nil {
		return nil, err
	}
	if len(buf) == 0 {
		return nil, nil
	}
	return p.decrypt.ReadDecrypt(ctx, p.inner)
}
