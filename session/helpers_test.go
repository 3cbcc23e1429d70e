package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func decodeJSONBody(t *testing.T, r *http.Request, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		t.Errorf("Failed to decode request body: %v", err)
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, message string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", message)
}

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsTestServer accepts channel connections, records everything the client
// sends, and lets tests push messages back down the wire.
type wsTestServer struct {
	server *httptest.Server

	mu       sync.Mutex
	conns    []*websocket.Conn
	received []map[string]interface{}
}

func newWSTestServer(t *testing.T) *wsTestServer {
	t.Helper()
	ws := &wsTestServer{}
	ws.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ws.mu.Lock()
		ws.conns = append(ws.conns, conn)
		ws.mu.Unlock()

		for {
			var msg map[string]interface{}
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			ws.mu.Lock()
			ws.received = append(ws.received, msg)
			ws.mu.Unlock()
		}
	}))
	t.Cleanup(ws.server.Close)
	return ws
}

func (ws *wsTestServer) url() string {
	return "ws" + strings.TrimPrefix(ws.server.URL, "http")
}

func (ws *wsTestServer) send(t *testing.T, payload string) {
	t.Helper()
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if len(ws.conns) == 0 {
		t.Fatal("No channel connection to send on")
	}
	conn := ws.conns[len(ws.conns)-1]
	if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		t.Fatalf("Test server write failed: %v", err)
	}
}

func (ws *wsTestServer) messages() []map[string]interface{} {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	out := make([]map[string]interface{}, len(ws.received))
	copy(out, ws.received)
	return out
}

func (ws *wsTestServer) messageOfType(msgType string) bool {
	for _, msg := range ws.messages() {
		if msg["type"] == msgType {
			return true
		}
	}
	return false
}

func (ws *wsTestServer) connCount() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return len(ws.conns)
}
