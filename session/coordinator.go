package session

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"codecoach/internal/history"
	"codecoach/internal/sanitize"
	"codecoach/models"

	"github.com/google/uuid"
)

const (
	defaultMinRequestInterval = 2 * time.Second
	evaluationTimeout         = 15 * time.Second
	maxCodeLength             = 10000
	payloadCodeLength         = 5000
	payloadTranscriptLength   = 2000
	maxListItems              = 5
	maxListItemLength         = 200
	maxAnalysisLength         = 500

	fallbackCodeAnalysis   = "No code analysis available."
	fallbackSpeechAnalysis = "No speech analysis available."
)

// evaluationReply tolerates loosely-typed evaluation responses: score may
// arrive as a number, a quoted number, or garbage, and is coerced either way.
type evaluationReply struct {
	Score          json.RawMessage `json:"score"`
	Strengths      []string        `json:"strengths"`
	Improvements   []string        `json:"improvements"`
	Optimizations  []string        `json:"optimizations"`
	CodeAnalysis   string          `json:"code_analysis"`
	SpeechAnalysis string          `json:"speech_analysis"`
}

// Coordinator gates, assembles, and dispatches evaluation requests, folding
// successful responses into the feedback and snapshot buffers. Rejections
// from the rate and content gates are silent: they are steady-state
// conditions, not faults.
type Coordinator struct {
	baseURL  string
	language string
	question string
	problem  *models.ProblemDetails
	client   *http.Client

	code       func() string
	transcript *history.Buffer[models.TranscriptSegment]
	feedback   *history.Buffer[models.FeedbackRecord]
	snapshots  *history.Buffer[models.CodeSnapshot]
	health     *HealthPoller

	minInterval time.Duration

	mu         sync.Mutex
	lastAccept time.Time
	evaluating bool
}

// NewCoordinator builds a coordinator around the session's code source and
// buffers. minInterval zero means the default 2 seconds.
func NewCoordinator(
	baseURL, language, question string,
	problem *models.ProblemDetails,
	minInterval time.Duration,
	code func() string,
	transcript *history.Buffer[models.TranscriptSegment],
	feedback *history.Buffer[models.FeedbackRecord],
	snapshots *history.Buffer[models.CodeSnapshot],
	health *HealthPoller,
) *Coordinator {
	if minInterval <= 0 {
		minInterval = defaultMinRequestInterval
	}
	return &Coordinator{
		baseURL:     baseURL,
		language:    language,
		question:    question,
		problem:     problem,
		client:      &http.Client{Timeout: evaluationTimeout},
		code:        code,
		transcript:  transcript,
		feedback:    feedback,
		snapshots:   snapshots,
		health:      health,
		minInterval: minInterval,
	}
}

// Evaluating reports whether a dispatch is in flight.
func (co *Coordinator) Evaluating() bool {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.evaluating
}

// RequestFeedback runs one evaluation cycle asynchronously. The rate gate
// applies to every caller alike, manual or scheduled.
func (co *Coordinator) RequestFeedback() {
	code := strings.TrimSpace(co.code())

	co.mu.Lock()
	if !co.lastAccept.IsZero() && time.Since(co.lastAccept) < co.minInterval {
		co.mu.Unlock()
		return
	}
	if code == "" || len(code) > maxCodeLength {
		co.mu.Unlock()
		return
	}
	co.lastAccept = time.Now()
	co.evaluating = true
	co.mu.Unlock()

	go co.dispatch(code)
}

func (co *Coordinator) dispatch(code string) {
	defer func() {
		co.mu.Lock()
		co.evaluating = false
		co.mu.Unlock()
	}()

	cleanCode := sanitize.Sanitize(code)
	payload := models.EvaluationRequest{
		Code:           sanitize.Truncate(cleanCode, payloadCodeLength),
		Transcript:     sanitize.Truncate(sanitize.Sanitize(co.joinTranscript()), payloadTranscriptLength),
		Language:       co.language,
		Question:       co.question,
		ProblemDetails: co.problem,
		Timestamp:      time.Now().Unix(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal evaluation request: %v", err)
		co.health.SetAvailable(false)
		return
	}

	resp, err := co.client.Post(co.baseURL+"/evaluate", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("Evaluation dispatch failed: %v", err)
		co.health.SetAvailable(false)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("Evaluation service returned status %d", resp.StatusCode)
		co.health.SetAvailable(false)
		return
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("Failed to read evaluation response: %v", err)
		co.health.SetAvailable(false)
		return
	}

	var reply evaluationReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		log.Printf("Failed to parse evaluation response: %v", err)
		co.health.SetAvailable(false)
		return
	}

	now := time.Now()
	co.feedback.Push(models.FeedbackRecord{
		ID:             uuid.NewString(),
		Score:          clampScore(reply.Score),
		Strengths:      sanitizeList(reply.Strengths),
		Improvements:   sanitizeList(reply.Improvements),
		Optimizations:  sanitizeList(reply.Optimizations),
		CodeAnalysis:   sanitizeAnalysis(reply.CodeAnalysis, fallbackCodeAnalysis),
		SpeechAnalysis: sanitizeAnalysis(reply.SpeechAnalysis, fallbackSpeechAnalysis),
		ReceivedAt:     now,
	})
	co.snapshots.Push(models.CodeSnapshot{
		ID:         uuid.NewString(),
		Code:       cleanCode,
		Language:   co.language,
		CapturedAt: now,
	})
	co.health.SetAvailable(true)
}

func (co *Coordinator) joinTranscript() string {
	var sb strings.Builder
	for _, segment := range co.transcript.All() {
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(segment.Text)
	}
	return sb.String()
}

// clampScore coerces a loosely-typed score into an integer in [0, 10].
// Non-numeric or absent values default to 0.
func clampScore(raw json.RawMessage) int {
	text := strings.TrimSpace(string(raw))
	text = strings.Trim(text, `"`)
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0
	}
	score := int(value)
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}

func sanitizeList(items []string) []string {
	cleaned := make([]string, 0, maxListItems)
	for _, item := range items {
		if len(cleaned) == maxListItems {
			break
		}
		entry := sanitize.Truncate(sanitize.Sanitize(item), maxListItemLength)
		if entry != "" {
			cleaned = append(cleaned, entry)
		}
	}
	return cleaned
}

func sanitizeAnalysis(text, fallback string) string {
	cleaned := sanitize.Truncate(sanitize.Sanitize(text), maxAnalysisLength)
	if cleaned == "" {
		return fallback
	}
	return cleaned
}
