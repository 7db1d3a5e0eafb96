package vmess

import (
	"context"
	"crypto/aes"
	"crypto/cipher"

	"relaymux/internal/perr"
	"relaymux/internal/streamio"
)

// Response is the server's reply to a Request: a one-byte echo of the
// instruction's V byte, option/command fields this client never expects
// to be set, and an optional dynamic-port payload this client never
// expects either. Grounded on
// original_source/p3/contrib/v2rayn/vmess.go's VmessResponse.from_stream.
type Response struct {
	V       byte
	Opt     ServerOption
	Cmd     ServerCommand
	Content []byte
}

// ReadResponse reads and AES-128-CFB decrypts the fixed 4-byte response
// header off s, keyed by instruction's response-direction key/IV, then
// reads and decrypts any trailing dynamic-port content it announces.
func ReadResponse(ctx context.Context, s *streamio.Stream, instruction Instruction) (*Response, error) {
	key := instruction.ResponseKey()
	iv := instruction.ResponseIV()
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, perr.ProtocolWrap("vmess.response", err)
	}
	stream := cipher.NewCFBDecrypter(block, iv[:])

	head, err := s.ReadExactly(ctx, 4)
	if err != nil {
		return nil, err
	}
	plainHead := make([]byte, 4)
	stream.XORKeyStream(plainHead, head)

	v, opt, cmd, m := plainHead[0], plainHead[1], plainHead[2], plainHead[3]
	if v != instruction.V {
		return nil, perr.Protocol("vmess.response", "v mismatch, response not authenticated")
	}

	resp := &Response{V: v, Opt: ServerOption(opt), Cmd: ServerCommand(cmd)}
	if m != 0 {
		cipherContent, err := s.ReadExactly(ctx, int(m))
		if err != nil {
			return nil, err
		}
		content := make([]byte, m)
		stream.XORKeyStream(content, cipherContent)
		resp.Content = content
	}
	return resp, nil
}
