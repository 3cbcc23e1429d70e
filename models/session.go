package models

import "time"

// TranscriptSegment is one piece of transcribed speech received over the
// live channel. Immutable once created.
type TranscriptSegment struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"receivedAt"`
	Confidence float64   `json:"confidence,omitempty"`
}

// CodeSnapshot captures the code submitted for one successful evaluation.
type CodeSnapshot struct {
	ID         string    `json:"id"`
	Code       string    `json:"code"`
	Language   string    `json:"language"`
	CapturedAt time.Time `json:"capturedAt"`
}

// FeedbackRecord is one validated AI evaluation result.
type FeedbackRecord struct {
	ID             string    `json:"id"`
	Score          int       `json:"score"`
	Strengths      []string  `json:"strengths"`
	Improvements   []string  `json:"improvements"`
	Optimizations  []string  `json:"optimizations"`
	CodeAnalysis   string    `json:"codeAnalysis"`
	SpeechAnalysis string    `json:"speechAnalysis"`
	ReceivedAt     time.Time `json:"receivedAt"`
}
