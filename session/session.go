// Package session implements the practice-session core: the live
// transcription channel, the evaluation-service health poller, the gated
// evaluation pipeline, and the scheduler that drives periodic feedback.
package session

import (
	"sync"
	"time"

	"codecoach/internal/history"
	"codecoach/models"
)

const (
	transcriptCapacity = 50
	snapshotCapacity   = 10
	feedbackCapacity   = 5

	defaultAutoInterval = 60 * time.Second
)

// Config carries the endpoints and tunable intervals for one session.
// Zero-valued intervals fall back to the production defaults.
type Config struct {
	ChannelURL    string
	EvaluationURL string
	Language      string
	Question      string
	Problem       *models.ProblemDetails

	RetryDelay         time.Duration
	PollInterval       time.Duration
	AutoInterval       time.Duration
	MinRequestInterval time.Duration
}

// Session orchestrates one practice interview from start to reset. It owns
// the three history buffers and the current code slot; each subcomponent
// owns its own state.
type Session struct {
	cfg Config

	transcript *history.Buffer[models.TranscriptSegment]
	snapshots  *history.Buffer[models.CodeSnapshot]
	feedback   *history.Buffer[models.FeedbackRecord]

	channel     *Channel
	health      *HealthPoller
	coordinator *Coordinator

	mu       sync.Mutex
	code     string
	active   bool
	paused   bool
	autoStop chan struct{}
}

// New builds a session core against the configured endpoints.
func New(cfg Config) *Session {
	if cfg.AutoInterval <= 0 {
		cfg.AutoInterval = defaultAutoInterval
	}

	s := &Session{
		cfg:        cfg,
		transcript: history.NewAppend[models.TranscriptSegment](transcriptCapacity),
		snapshots:  history.NewPrepend[models.CodeSnapshot](snapshotCapacity),
		feedback:   history.NewPrepend[models.FeedbackRecord](feedbackCapacity),
	}
	s.channel = NewChannel(cfg.ChannelURL, cfg.Language, cfg.RetryDelay, s.transcript)
	s.health = NewHealthPoller(cfg.EvaluationURL, cfg.PollInterval)
	s.coordinator = NewCoordinator(
		cfg.EvaluationURL, cfg.Language, cfg.Question, cfg.Problem,
		cfg.MinRequestInterval,
		s.Code,
		s.transcript, s.feedback, s.snapshots, s.health,
	)
	return s
}

// Start connects the channel, starts health polling, and begins the
// automatic evaluation cycle. Starting an active session is a no-op.
func (s *Session) Start() {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return
	}
	s.active = true
	s.paused = false
	s.autoStop = make(chan struct{})
	stop := s.autoStop
	s.mu.Unlock()

	s.channel.Connect()
	s.health.Start()

	go func() {
		ticker := time.NewTicker(s.cfg.AutoInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if s.autoEligible() {
					s.coordinator.RequestFeedback()
				}
			case <-stop:
				return
			}
		}
	}()
}

// autoEligible gates the scheduled cycle: active, unpaused, and something
// has actually been said.
func (s *Session) autoEligible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active && !s.paused && s.transcript.Len() > 0
}

// Pause stops future automatic evaluations without canceling an in-flight
// one, and advises the transcription service.
func (s *Session) Pause() {
	s.mu.Lock()
	if !s.active || s.paused {
		s.mu.Unlock()
		return
	}
	s.paused = true
	s.mu.Unlock()

	s.channel.SendPause()
}

// Resume re-enables automatic evaluations and advises the transcription
// service.
func (s *Session) Resume() {
	s.mu.Lock()
	if !s.active || !s.paused {
		s.mu.Unlock()
		return
	}
	s.paused = false
	s.mu.Unlock()

	s.channel.SendResume()
}

// Reset clears all history, tears down the channel, and returns the
// scheduler to inactive. An in-flight evaluation is not aborted; its result
// lands in buffers that have already been cleared.
func (s *Session) Reset() {
	s.mu.Lock()
	if s.autoStop != nil {
		close(s.autoStop)
		s.autoStop = nil
	}
	s.active = false
	s.paused = false
	s.code = ""
	s.mu.Unlock()

	s.health.Stop()
	s.channel.Disconnect()

	s.transcript.Clear()
	s.snapshots.Clear()
	s.feedback.Clear()
}

// RequestFeedback triggers an evaluation cycle on user demand. The
// coordinator's rate gate applies exactly as it does to scheduled cycles.
func (s *Session) RequestFeedback() {
	s.coordinator.RequestFeedback()
}

// SetCode updates the current code under evaluation.
func (s *Session) SetCode(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code = code
}

// Code returns the current code under evaluation.
func (s *Session) Code() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code
}

// Active reports whether the session has been started and not reset.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Paused reports whether automatic evaluation is suspended.
func (s *Session) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// ConnectionState reports the channel's current state.
func (s *Session) ConnectionState() ConnectionState {
	return s.channel.State()
}

// Speaking reports the transient speaking indicator.
func (s *Session) Speaking() bool {
	return s.channel.Speaking()
}

// EvaluationAvailable reports the advisory availability of the evaluation
// service.
func (s *Session) EvaluationAvailable() bool {
	return s.health.Available()
}

// Evaluating reports whether an evaluation dispatch is in flight.
func (s *Session) Evaluating() bool {
	return s.coordinator.Evaluating()
}

// Transcript returns a snapshot of the transcript history, oldest first.
func (s *Session) Transcript() []models.TranscriptSegment {
	return s.transcript.All()
}

// Snapshots returns a snapshot of the code history, newest first.
func (s *Session) Snapshots() []models.CodeSnapshot {
	return s.snapshots.All()
}

// Feedback returns a snapshot of the feedback history, newest first.
func (s *Session) Feedback() []models.FeedbackRecord {
	return s.feedback.All()
}
