package wsstream

import "testing"

func TestEncodeDecodeHeaderRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 125, 126, 1000, 65535, 65536, 200000} {
		hdr, maskKey, err := encodeHeader(OpBinary, true, true, n)
		if err != nil {
			t.Fatalf("n=%d: encodeHeader failed: %v", n, err)
		}
		payload := make([]byte, n)
		for i := range payload {
			payload[i] = byte(i)
		}
		masked := append([]byte{}, payload...)
		applyMask(masked, maskKey)

		full := append(append([]byte{}, hdr...), masked...)
		gotHdr, consumed, ok, err := decodeHeader(full)
		if err != nil {
			t.Fatalf("n=%d: decodeHeader failed: %v", n, err)
		}
		if !ok {
			t.Fatalf("n=%d: decodeHeader reported incomplete on full buffer", n)
		}
		if gotHdr.payload != n {
			t.Fatalf("n=%d: decoded payload length %d", n, gotHdr.payload)
		}
		if !gotHdr.fin || gotHdr.opcode != OpBinary || !gotHdr.masked {
			t.Fatalf("n=%d: decoded header fields wrong: %+v", n, gotHdr)
		}
		got := append([]byte{}, full[consumed:consumed+n]...)
		applyMask(got, maskKeyAt(full, consumed))
		if len(got) != len(payload) {
			t.Fatalf("n=%d: payload length mismatch after unmask", n)
		}
		for i := range payload {
			if got[i] != payload[i] {
				t.Fatalf("n=%d: payload mismatch at byte %d", n, i)
			}
		}
	}
}

func TestDecodeHeaderIncompleteReturnsNotOk(t *testing.T) {
	hdr, _, err := encodeHeader(OpBinary, true, false, 70000)
	if err != nil {
		t.Fatalf("encodeHeader failed: %v", err)
	}
	_, _, ok, err := decodeHeader(hdr[:3])
	if err != nil {
		t.Fatalf("unexpected error on partial header: %v", err)
	}
	if ok {
		t.Fatalf("expected incomplete decode to report ok=false")
	}
}

func TestClosePayloadRoundTrip(t *testing.T) {
	p := ClosePayload(1001, "going away")
	code, reason := ParseClosePayload(p)
	if code != 1001 || reason != "going away" {
		t.Fatalf("unexpected round trip: code=%d reason=%q", code, reason)
	}
}

func TestParseClosePayloadDefaultsWhenShort(t *testing.T) {
	code, reason := ParseClosePayload(nil)
	if code != 1000 || reason != "" {
		t.Fatalf("expected default 1000/empty, got %d/%q", code, reason)
	}
}
