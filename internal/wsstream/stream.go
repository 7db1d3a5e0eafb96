package wsstream

import (
	"context"

	"relaymux/internal/perr"
	"relaymux/internal/streamio"
)

// prim is the Primitive backing a WebSocket-framed Stream layered on top
// of an inner (usually TCP or TLS) Stream. masked selects client-role
// framing (outgoing frames masked, as connector does) versus server-role
// framing (outgoing frames unmasked). Incoming frames are unmasked when
// their mask bit is set, whichever role this side plays.
type prim struct {
	inner  *streamio.Stream
	masked bool // true: we are the client and must mask our frames
}

// New wraps inner as a message-framed Stream. role determines masking of
// outgoing frames: Client masks them, Server does not, per RFC 6455 §5.1.
// The mask bit of incoming frames is not checked against the role.
func New(inner *streamio.Stream, role Role) *streamio.Stream {
	return streamio.NewLayered("ws", &prim{inner: inner, masked: role == Client}, inner)
}

// Role distinguishes which side of the handshake this Stream plays,
// which determines frame masking direction.
type Role int

const (
	Server Role = iota
	Client
)

func (p *prim) WriteRaw(ctx context.Context, buf []byte) error {
	hdr, maskKey, err := encodeHeader(OpBinary, true, p.masked, len(buf))
	if err != nil {
		return err
	}
	if p.masked {
		masked := append([]byte{}, buf...)
		applyMask(masked, maskKey)
		buf = masked
	}
	return p.inner.WriteDrain(ctx, append(hdr, buf...))
}

func (p *prim) Drain(ctx context.Context) error { return p.inner.Drain(ctx) }

func (p *prim) Close() error { return p.inner.Close() }

func (p *prim) WaitClosed(ctx context.Context) error { return p.inner.WaitClosed(ctx) }

// ReadRaw reassembles one complete message (possibly fragmented across
// several continuation frames), transparently answering Pings with Pongs
// and ignoring Pongs, and returns an empty slice on a clean Close frame
// or inner EOF.
func (p *prim) ReadRaw(ctx context.Context) ([]byte, error) {
	var message []byte
	var messageOpcode byte
	for {
		frame, opcode, fin, err := p.readFrame(ctx)
		if err != nil {
			return nil, err
		}
		if frame == nil && opcode == 0 && !fin {
			// inner stream hit clean EOF with nothing pending
			return nil, nil
		}
		switch opcode {
		case OpPing:
			if err := p.writeControl(ctx, OpPong, frame); err != nil {
				return nil, err
			}
			continue
		case OpPong:
			continue
		case OpClose:
			_ = p.writeControl(ctx, OpClose, frame)
			return nil, nil
		case OpContinuation:
			// belongs to the in-progress message
		default:
			messageOpcode = opcode
		}
		message = append(message, frame...)
		if len(message) > streamio.StreamBufSize {
			return nil, perr.BufferOverflow("ws.message", len(message), streamio.StreamBufSize)
		}
		if fin {
			_ = messageOpcode
			return message, nil
		}
	}
}

// readFrame reads exactly one frame (control or data) off the inner
// stream, unmasking it if masked, and returns its payload/opcode/fin.
func (p *prim) readFrame(ctx context.Context) (payload []byte, opcode byte, fin bool, err error) {
	head, err := p.inner.Peek(ctx)
	if err != nil {
		return nil, 0, false, err
	}
	if len(head) == 0 {
		return nil, 0, false, nil
	}
	hdr, consumed, ok, err := decodeHeader(head)
	if err != nil {
		return nil, 0, false, err
	}
	if !ok {
		// head is already everything Peek has buffered, so asking for
		// only len(head) bytes back would be satisfied without ever
		// touching the inner source again — recursing forever on a
		// split header. Ask for one byte beyond what we already hold
		// to force at least one new ReadRaw each time around.
		more, err := p.inner.ReadAtLeast(ctx, len(head)+1)
		if err != nil {
			return nil, 0, false, err
		}
		p.inner.Push(more)
		return p.readFrame(ctx)
	}
	total := consumed + hdr.payload
	full, err := p.inner.ReadExactly(ctx, total)
	if err != nil {
		return nil, 0, false, err
	}
	payload = append([]byte{}, full[consumed:]...)
	if hdr.masked {
		applyMask(payload, maskKeyAt(full, consumed))
	}
	return payload, hdr.opcode, hdr.fin, nil
}

func (p *prim) writeControl(ctx context.Context, opcode byte, payload []byte) error {
	hdr, maskKey, err := encodeHeader(opcode, true, p.masked, len(payload))
	if err != nil {
		return err
	}
	if p.masked && len(payload) > 0 {
		masked := append([]byte{}, payload...)
		applyMask(masked, maskKey)
		payload = masked
	}
	return p.inner.WriteDrain(ctx, append(hdr, payload...))
}
