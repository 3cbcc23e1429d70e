package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	// In production, adjust the CheckOrigin function to allow only trusted origins.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const welcomeMessage = "Connected to transcription service"

// Client tracks one connected session core.
type Client struct {
	ID           string
	ConnectedAt  time.Time
	MessagesSent int
	Active       bool
	Language     string
}

// controlMessage is what session cores send upstream: the session-start
// handshake and pause/resume advisories.
type controlMessage struct {
	Type      string `json:"type"`
	Language  string `json:"language,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type statusMessage struct {
	Type   string `json:"type"`
	Active bool   `json:"active"`
}

type transcriptMessage struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// Hub fans transcript lines out to connected session cores and tracks
// per-client pause state.
type Hub struct {
	maxClients int

	mu               sync.Mutex
	clients          map[*websocket.Conn]*Client
	totalConnections int
	totalTranscripts int
	startTime        time.Time
}

// NewHub creates a hub capped at maxClients concurrent connections.
func NewHub(maxClients int) *Hub {
	if maxClients <= 0 {
		maxClients = 10
	}
	return &Hub{
		maxClients: maxClients,
		clients:    make(map[*websocket.Conn]*Client),
		startTime:  time.Now(),
	}
}

// Handler upgrades a connection and services it until it drops.
func (h *Hub) Handler(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}

	h.mu.Lock()
	if len(h.clients) >= h.maxClients {
		h.mu.Unlock()
		log.Printf("Connection limit reached, rejecting client %s", conn.RemoteAddr())
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "Server full"),
			time.Now().Add(time.Second))
		conn.Close()
		return
	}
	client := &Client{
		ID:          conn.RemoteAddr().String(),
		ConnectedAt: time.Now(),
		Active:      true,
	}
	h.clients[conn] = client
	h.totalConnections++
	h.mu.Unlock()

	log.Printf("Client %s joined transcription hub (total clients: %d)", client.ID, h.clientCount())
	h.write(conn, websocket.TextMessage, []byte(welcomeMessage))

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			log.Printf("WebSocket read error for client %s: %v", client.ID, err)
			h.remove(conn)
			return
		}
		h.handleControl(conn, client, payload)
	}
}

func (h *Hub) handleControl(conn *websocket.Conn, client *Client, payload []byte) {
	var msg controlMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Printf("Ignoring non-JSON message from %s: %.100s", client.ID, string(payload))
		return
	}

	switch msg.Type {
	case "session_start":
		h.mu.Lock()
		client.Active = true
		client.Language = msg.Language
		h.mu.Unlock()
		log.Printf("Session started for %s (language: %s)", client.ID, msg.Language)
		h.ack(conn, true)
	case "pause_session":
		h.mu.Lock()
		client.Active = false
		h.mu.Unlock()
		log.Printf("Session paused for %s", client.ID)
		h.ack(conn, false)
	case "resume_session":
		h.mu.Lock()
		client.Active = true
		h.mu.Unlock()
		log.Printf("Session resumed for %s", client.ID)
		h.ack(conn, true)
	default:
		log.Printf("Unknown message type %q from %s", msg.Type, client.ID)
	}
}

func (h *Hub) ack(conn *websocket.Conn, active bool) {
	data, err := json.Marshal(statusMessage{Type: "transcription_status", Active: active})
	if err != nil {
		return
	}
	h.write(conn, websocket.TextMessage, data)
}

// Broadcast sends a transcript line to every active client, pruning dead
// connections. Paused clients are skipped. Returns the number of clients
// reached.
func (h *Hub) Broadcast(text string) int {
	data, err := json.Marshal(transcriptMessage{
		Type:      "transcript",
		Text:      text,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	sent := 0
	for conn, client := range h.clients {
		if !client.Active {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("WebSocket write error for client %s: %v", client.ID, err)
			conn.Close()
			delete(h.clients, conn)
			continue
		}
		client.MessagesSent++
		sent++
	}
	if sent > 0 {
		h.totalTranscripts++
	}
	return sent
}

func (h *Hub) write(conn *websocket.Conn, messageType int, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; !ok {
		return
	}
	if err := conn.WriteMessage(messageType, data); err != nil {
		log.Printf("WebSocket write error: %v", err)
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		log.Printf("Client %s removed from hub (total clients: %d)", client.ID, len(h.clients))
	}
	conn.Close()
}

func (h *Hub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Stats returns a snapshot of hub counters for the stats endpoint.
func (h *Hub) Stats() gin.H {
	h.mu.Lock()
	defer h.mu.Unlock()
	return gin.H{
		"uptime_seconds":       time.Since(h.startTime).Seconds(),
		"connected_clients":    len(h.clients),
		"total_connections":    h.totalConnections,
		"total_transcriptions": h.totalTranscripts,
	}
}

// Shutdown closes every connection with a going-away notice.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutdown"),
			time.Now().Add(time.Second))
		conn.Close()
		delete(h.clients, conn)
	}
	log.Println("Transcription hub shutdown complete")
}
