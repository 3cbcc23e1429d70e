package models

// ProblemDetails carries optional structured metadata for the practice
// problem being attempted.
type ProblemDetails struct {
	Title      string `json:"title,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	Category   string `json:"category,omitempty"`
}

// EvaluationRequest is the body sent to the evaluation service.
type EvaluationRequest struct {
	Code           string          `json:"code"`
	Transcript     string          `json:"transcript"`
	Language       string          `json:"language"`
	Question       string          `json:"question,omitempty"`
	ProblemDetails *ProblemDetails `json:"problem_details,omitempty"`
	Timestamp      int64           `json:"timestamp,omitempty"`
}

// EvaluationResponse is the body returned by the evaluation service.
type EvaluationResponse struct {
	Score            int      `json:"score"`
	Strengths        []string `json:"strengths"`
	Improvements     []string `json:"improvements"`
	Optimizations    []string `json:"optimizations"`
	CodeAnalysis     string   `json:"code_analysis,omitempty"`
	SpeechAnalysis   string   `json:"speech_analysis,omitempty"`
	FeedbackID       string   `json:"feedback_id"`
	ProcessingTimeMs float64  `json:"processing_time_ms"`
}
