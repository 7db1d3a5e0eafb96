// interop_test.go exercises the frame codec against github.com/gorilla/
// websocket, the library the teacher project uses on its backend leg
// (internal/proxy/proxy.go dials gorilla/websocket), to confirm the wire
// format this package's client role produces is read correctly by a
// mainstream implementation. Used for interop verification only;
// gorilla/websocket never appears in the non-test build.
package wsstream

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"relaymux/internal/streamio"
)

// TestInteropClientFramesReadByGorillaServer starts an HTTP server that
// upgrades via gorilla/websocket, dials it with this package's Dial, and
// confirms a message written with our client-role framing decodes
// correctly on the gorilla side.
func TestInteropClientFramesReadByGorillaServer(t *testing.T) {
	upgrader := websocket.Upgrader{}
	msgCh := make(chan []byte, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("gorilla upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Errorf("gorilla ReadMessage failed: %v", err)
			return
		}
		msgCh <- data
	}))
	defer srv.Close()

	addr := srv.Listener.Addr().String()
	rawConn, err := dialRawTCP(addr)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	clientRaw := streamio.NewTCP(rawConn)

	ctx := context.Background()
	clientStream, err := Dial(ctx, clientRaw, "/", addr)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}

	if err := clientStream.WriteDrain(ctx, []byte("payload-from-our-client")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	select {
	case got := <-msgCh:
		if string(got) != "payload-from-our-client" {
			t.Fatalf("gorilla decoded unexpected payload: %q", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for gorilla server to read message")
	}
}

func dialRawTCP(addr string) (net.Conn, error) {
	return net.Dial("tcp", addr)
}
