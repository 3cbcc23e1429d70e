package session

import (
	"encoding/json"
	"log"
	"sync"
	"time"
	"unicode/utf8"

	"codecoach/internal/history"
	"codecoach/internal/sanitize"
	"codecoach/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ConnectionState describes the channel's lifecycle. Only the Channel
// mutates it; everything else reads.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Reconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

const (
	defaultRetryDelay    = 5 * time.Second
	maxTranscriptLength  = 1000
	speakingDebounceTime = time.Second
)

// channelMessage covers every inbound shape the transcription service
// sends: status updates, structured transcript records, or anything with a
// text-bearing field. Unparseable payloads fall back to raw text handling.
type channelMessage struct {
	Type       string  `json:"type"`
	Active     *bool   `json:"active"`
	Text       string  `json:"text"`
	Message    string  `json:"message"`
	Transcript string  `json:"transcript"`
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
}

type outboundMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Language  string `json:"language,omitempty"`
}

// Channel owns the live transcription connection: dialing, handshake,
// message ingestion, disconnect detection, and retry scheduling. Transport
// errors never escape to callers; they only drive state transitions.
type Channel struct {
	url        string
	language   string
	retryDelay time.Duration
	transcript *history.Buffer[models.TranscriptSegment]

	mu            sync.Mutex
	writeMu       sync.Mutex
	state         ConnectionState
	conn          *websocket.Conn
	epoch         int
	retryTimer    *time.Timer
	speakingTimer *time.Timer
	speaking      bool
}

// NewChannel wires a channel to the transcript buffer it feeds. retryDelay
// zero means the default 5 seconds.
func NewChannel(url, language string, retryDelay time.Duration, transcript *history.Buffer[models.TranscriptSegment]) *Channel {
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	return &Channel{
		url:        url,
		language:   language,
		retryDelay: retryDelay,
		transcript: transcript,
	}
}

// State returns the current connection state.
func (c *Channel) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Speaking reports the transient is-actively-speaking indicator.
func (c *Channel) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

// Connect begins dialing unless a connection attempt is already underway.
func (c *Channel) Connect() {
	c.mu.Lock()
	if c.state == Connecting || c.state == Connected {
		c.mu.Unlock()
		return
	}
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	c.state = Connecting
	c.epoch++
	epoch := c.epoch
	c.mu.Unlock()

	go c.dial(epoch)
}

func (c *Channel) dial(epoch int) {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)

	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		log.Printf("Channel dial failed: %v", err)
		c.state = Disconnected
		c.scheduleReconnectLocked()
		c.mu.Unlock()
		return
	}
	c.conn = conn
	c.state = Connected
	c.mu.Unlock()

	log.Printf("Channel connected to %s", c.url)
	c.writeJSON(outboundMessage{
		Type:      "session_start",
		Timestamp: time.Now().Unix(),
		Language:  c.language,
	})

	go c.readLoop(conn, epoch)
}

func (c *Channel) readLoop(conn *websocket.Conn, epoch int) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if epoch != c.epoch {
				// Explicit disconnect or a newer epoch already took over.
				c.mu.Unlock()
				return
			}
			log.Printf("Channel read error: %v", err)
			c.conn = nil
			c.state = Disconnected
			c.scheduleReconnectLocked()
			c.mu.Unlock()
			return
		}
		c.handleMessage(epoch, payload)
	}
}

func (c *Channel) handleMessage(epoch int, payload []byte) {
	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	var msg channelMessage
	text := ""
	if err := json.Unmarshal(payload, &msg); err == nil {
		if msg.Type == "transcription_status" {
			c.setSpeaking(msg.Active != nil && *msg.Active)
			return
		}
		switch {
		case msg.Text != "":
			text = msg.Text
		case msg.Message != "":
			text = msg.Message
		case msg.Transcript != "":
			text = msg.Transcript
		case msg.Content != "":
			text = msg.Content
		}
	} else {
		// Protocol drift degrades to raw-text capture rather than a drop.
		text = string(payload)
	}

	cleaned := sanitize.Sanitize(text)
	if cleaned == "" || utf8.RuneCountInString(cleaned) > maxTranscriptLength {
		return
	}

	c.transcript.Push(models.TranscriptSegment{
		ID:         uuid.NewString(),
		Text:       cleaned,
		ReceivedAt: time.Now(),
		Confidence: msg.Confidence,
	})
	c.markSpeaking()
}

// setSpeaking applies a status update directly, without the debounce timer.
func (c *Channel) setSpeaking(active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.speakingTimer != nil {
		c.speakingTimer.Stop()
		c.speakingTimer = nil
	}
	c.speaking = active
}

// markSpeaking flips the indicator on and schedules it off one second after
// the last transcript segment.
func (c *Channel) markSpeaking() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speaking = true
	if c.speakingTimer != nil {
		c.speakingTimer.Stop()
	}
	c.speakingTimer = time.AfterFunc(speakingDebounceTime, func() {
		c.mu.Lock()
		c.speaking = false
		c.mu.Unlock()
	})
}

func (c *Channel) scheduleReconnectLocked() {
	c.state = Reconnecting
	if c.retryTimer != nil {
		c.retryTimer.Stop()
	}
	// Fixed delay, unbounded attempts: the transcription service is a
	// local peer expected to eventually recover.
	c.retryTimer = time.AfterFunc(c.retryDelay, func() {
		c.mu.Lock()
		if c.state != Reconnecting {
			c.mu.Unlock()
			return
		}
		c.state = Disconnected
		c.mu.Unlock()
		c.Connect()
	})
	log.Printf("Channel reconnect scheduled in %s", c.retryDelay)
}

// Disconnect tears the channel down from any state and cancels any pending
// reconnect. The channel can be connected again afterwards.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.epoch++
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	if c.speakingTimer != nil {
		c.speakingTimer.Stop()
		c.speakingTimer = nil
	}
	conn := c.conn
	c.conn = nil
	c.state = Disconnected
	c.speaking = false
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// SendPause notifies the transcription service that the session paused.
// Advisory only; connection state is unchanged.
func (c *Channel) SendPause() {
	c.writeJSON(outboundMessage{Type: "pause_session", Timestamp: time.Now().Unix()})
}

// SendResume notifies the transcription service that the session resumed.
func (c *Channel) SendResume() {
	c.writeJSON(outboundMessage{Type: "resume_session", Timestamp: time.Now().Unix()})
}

func (c *Channel) writeJSON(msg outboundMessage) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Channel write error for %s: %v", msg.Type, err)
	}
}
