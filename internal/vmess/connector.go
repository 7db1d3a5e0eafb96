package vmess

import (
	"context"

	"relaymux/internal/perr"
	"relaymux/internal/proxyreq"
	"relaymux/internal/streamio"
)

// Connect performs the one-shot Vmess handshake over next: it always
// addresses the destination by domain name (even for IP literals, which
// the server resolves itself), sends the certification+instruction
// header followed by the AEAD-encrypted rest in a single write, then
// validates the server's response before handing back the encrypted
// Stream. Grounded on VmessConnector.connect; rest must be non-empty
// since the wire format has no bare-handshake mode.
func Connect(ctx context.Context, next *streamio.Stream, userID UserID, dest proxyreq.Addr, rest []byte) (*streamio.Stream, error) {
	return streamio.Guard2(ctx, next, func() (*streamio.Stream, error) {
		if len(rest) == 0 {
			return nil, perr.Protocol("vmess.connect", "rest")
		}

		addr := Address{Type: AddressDomain, Host: dest.Host, Port: dest.Port}
		instruction, err := NewInstruction(addr)
		if err != nil {
			return nil, err
		}

		reqBytes, err := Request{UserID: userID, Instruction: instruction}.Bytes()
		if err != nil {
			return nil, err
		}

		writeCryptor, err := newMaskedGCMCryptor(instruction.Key, instruction.IV)
		if err != nil {
			return nil, err
		}
		readCryptor, err := newMaskedGCMCryptor(instruction.ResponseKey(), instruction.ResponseIV())
		if err != nil {
			return nil, err
		}

		encryptedRest, err := writeCryptor.Encrypt(rest)
		if err != nil {
			return nil, err
		}

		payload := make([]byte, 0, len(reqBytes)+len(encryptedRest))
		payload = append(payload, reqBytes...)
		payload = append(payload, encryptedRest...)
		if err := next.WriteDrain(ctx, payload); err != nil {
			return nil, err
		}

		peeked, err := next.Peek(ctx)
		if err != nil {
			return nil, err
		}
		if len(peeked) == 0 {
			return nil, perr.Protocol("vmess.connect", "empty")
		}

		resp, err := ReadResponse(ctx, next, instruction)
		if err != nil {
			return nil, err
		}
		if resp.Opt != 0 {
			return nil, perr.Protocol("vmess.connect", "unexpected server option")
		}
		if resp.Cmd != NoCommand {
			return nil, perr.Protocol("vmess.connect", "unexpected server command")
		}
		if resp.Content != nil {
			return nil, perr.Protocol("vmess.connect", "unexpected dynamic-port content")
		}

		return newStream(next, writeCryptor, readCryptor), nil
	})
}
