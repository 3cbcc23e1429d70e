package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"codecoach/internal/history"
	"codecoach/models"
)

type coordinatorFixture struct {
	coordinator *Coordinator
	transcript  *history.Buffer[models.TranscriptSegment]
	feedback    *history.Buffer[models.FeedbackRecord]
	snapshots   *history.Buffer[models.CodeSnapshot]
	health      *HealthPoller
	dispatches  *int32
}

func newCoordinatorFixture(t *testing.T, responseBody string, status int, code func() string) *coordinatorFixture {
	t.Helper()

	var dispatches int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/evaluate" {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(&dispatches, 1)
		w.WriteHeader(status)
		w.Write([]byte(responseBody))
	}))
	t.Cleanup(server.Close)

	transcript := history.NewAppend[models.TranscriptSegment](transcriptCapacity)
	feedback := history.NewPrepend[models.FeedbackRecord](feedbackCapacity)
	snapshots := history.NewPrepend[models.CodeSnapshot](snapshotCapacity)
	health := NewHealthPoller(server.URL, time.Hour)

	coordinator := NewCoordinator(
		server.URL, "go", "Reverse a linked list", nil,
		time.Millisecond,
		code,
		transcript, feedback, snapshots, health,
	)

	return &coordinatorFixture{
		coordinator: coordinator,
		transcript:  transcript,
		feedback:    feedback,
		snapshots:   snapshots,
		health:      health,
		dispatches:  &dispatches,
	}
}

const okResponse = `{"score":7,"strengths":["clear naming"],"improvements":["handle nil"],"optimizations":["use iteration"],"code_analysis":"Reasonable approach.","speech_analysis":"Good narration."}`

func (f *coordinatorFixture) dispatchCount() int32 {
	return atomic.LoadInt32(f.dispatches)
}

func TestCoordinatorRateGateAllowsOneDispatch(t *testing.T) {
	f := newCoordinatorFixture(t, okResponse, http.StatusOK, func() string { return "code" })
	f.coordinator.minInterval = 2 * time.Second

	f.coordinator.RequestFeedback()
	f.coordinator.RequestFeedback()

	waitFor(t, time.Second, func() bool { return f.dispatchCount() == 1 }, "single dispatch")
	time.Sleep(50 * time.Millisecond)

	if got := f.dispatchCount(); got != 1 {
		t.Errorf("Expected exactly one dispatch within the rate window, got %d", got)
	}
}

func TestCoordinatorRejectsEmptyCode(t *testing.T) {
	f := newCoordinatorFixture(t, okResponse, http.StatusOK, func() string { return "   \n\t " })

	f.coordinator.RequestFeedback()
	time.Sleep(50 * time.Millisecond)

	if got := f.dispatchCount(); got != 0 {
		t.Errorf("Expected no dispatch for empty code, got %d", got)
	}
	if f.coordinator.Evaluating() {
		t.Error("Evaluating flag must stay false for rejected requests")
	}
}

func TestCoordinatorRejectsOversizedCode(t *testing.T) {
	oversized := strings.Repeat("a", maxCodeLength+1)
	f := newCoordinatorFixture(t, okResponse, http.StatusOK, func() string { return oversized })

	f.coordinator.RequestFeedback()
	if f.coordinator.Evaluating() {
		t.Error("Evaluating flag must never become true for oversized code")
	}
	time.Sleep(50 * time.Millisecond)

	if got := f.dispatchCount(); got != 0 {
		t.Errorf("Expected no dispatch for oversized code, got %d", got)
	}
}

func TestCoordinatorSuccessFillsBuffers(t *testing.T) {
	f := newCoordinatorFixture(t, okResponse, http.StatusOK, func() string { return "func reverse() {}" })
	f.transcript.Push(models.TranscriptSegment{ID: "s1", Text: "I will reverse the list"})

	f.coordinator.RequestFeedback()
	waitFor(t, time.Second, func() bool { return f.feedback.Len() == 1 }, "feedback record")

	record := f.feedback.All()[0]
	if record.Score != 7 {
		t.Errorf("Expected score 7, got %d", record.Score)
	}
	if len(record.Strengths) != 1 || record.Strengths[0] != "clear naming" {
		t.Errorf("Unexpected strengths: %v", record.Strengths)
	}
	if record.CodeAnalysis != "Reasonable approach." {
		t.Errorf("Unexpected code analysis: %q", record.CodeAnalysis)
	}

	if f.snapshots.Len() != 1 {
		t.Fatalf("Expected one code snapshot, got %d", f.snapshots.Len())
	}
	snapshot := f.snapshots.All()[0]
	if snapshot.Code != "func reverse() {}" {
		t.Errorf("Snapshot must hold the submitted code, got %q", snapshot.Code)
	}
	if snapshot.Language != "go" {
		t.Errorf("Expected snapshot language go, got %q", snapshot.Language)
	}

	if !f.health.Available() {
		t.Error("Expected availability true after successful evaluation")
	}
	waitFor(t, time.Second, func() bool { return !f.coordinator.Evaluating() }, "evaluating flag cleared")
}

func TestCoordinatorClampsScores(t *testing.T) {
	cases := []struct {
		body string
		want int
	}{
		{`{"score":15}`, 10},
		{`{"score":-3}`, 0},
		{`{"score":"8"}`, 8},
		{`{"score":"not a number"}`, 0},
		{`{}`, 0},
	}

	for _, tc := range cases {
		f := newCoordinatorFixture(t, tc.body, http.StatusOK, func() string { return "code" })
		f.coordinator.RequestFeedback()
		waitFor(t, time.Second, func() bool { return f.feedback.Len() == 1 }, "feedback record")

		if got := f.feedback.All()[0].Score; got != tc.want {
			t.Errorf("Response %s: expected score %d, got %d", tc.body, tc.want, got)
		}
	}
}

func TestCoordinatorBoundsListsAndAnalyses(t *testing.T) {
	long := strings.Repeat("x", 300)
	body := `{"score":5,"strengths":["a","b","c","d","e","f","g"],"improvements":["` + long + `"]}`
	f := newCoordinatorFixture(t, body, http.StatusOK, func() string { return "code" })

	f.coordinator.RequestFeedback()
	waitFor(t, time.Second, func() bool { return f.feedback.Len() == 1 }, "feedback record")

	record := f.feedback.All()[0]
	if len(record.Strengths) != maxListItems {
		t.Errorf("Expected at most %d strengths, got %d", maxListItems, len(record.Strengths))
	}
	if len(record.Improvements[0]) != maxListItemLength {
		t.Errorf("Expected improvement truncated to %d, got %d", maxListItemLength, len(record.Improvements[0]))
	}
	if record.CodeAnalysis != fallbackCodeAnalysis {
		t.Errorf("Expected code analysis fallback, got %q", record.CodeAnalysis)
	}
	if record.SpeechAnalysis != fallbackSpeechAnalysis {
		t.Errorf("Expected speech analysis fallback, got %q", record.SpeechAnalysis)
	}
}

func TestCoordinatorFailureLeavesBuffersUntouched(t *testing.T) {
	f := newCoordinatorFixture(t, `{"error":"overloaded"}`, http.StatusServiceUnavailable, func() string { return "code" })
	f.health.SetAvailable(true)

	f.coordinator.RequestFeedback()
	waitFor(t, time.Second, func() bool { return f.dispatchCount() == 1 }, "dispatch attempt")
	waitFor(t, time.Second, func() bool { return !f.coordinator.Evaluating() }, "evaluating flag cleared")

	if f.feedback.Len() != 0 || f.snapshots.Len() != 0 {
		t.Error("Failed evaluations must not mutate buffers")
	}
	if f.health.Available() {
		t.Error("Expected availability false after dispatch failure")
	}
}

func TestCoordinatorPayloadContents(t *testing.T) {
	var captured models.EvaluationRequest
	done := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decodeJSONBody(t, r, &captured)
		close(done)
		w.Write([]byte(okResponse))
	}))
	defer server.Close()

	transcript := history.NewAppend[models.TranscriptSegment](transcriptCapacity)
	transcript.Push(models.TranscriptSegment{Text: "first thought"})
	transcript.Push(models.TranscriptSegment{Text: "second thought"})

	coordinator := NewCoordinator(
		server.URL, "python", "Two sum",
		&models.ProblemDetails{Title: "Two Sum", Difficulty: "Easy", Category: "Arrays"},
		time.Millisecond,
		func() string { return "  def solve(): pass  " },
		transcript,
		history.NewPrepend[models.FeedbackRecord](feedbackCapacity),
		history.NewPrepend[models.CodeSnapshot](snapshotCapacity),
		NewHealthPoller(server.URL, time.Hour),
	)

	coordinator.RequestFeedback()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for dispatch")
	}

	if captured.Code != "def solve(): pass" {
		t.Errorf("Expected trimmed sanitized code, got %q", captured.Code)
	}
	if captured.Transcript != "first thought second thought" {
		t.Errorf("Expected joined transcript, got %q", captured.Transcript)
	}
	if captured.Language != "python" || captured.Question != "Two sum" {
		t.Errorf("Unexpected language/question: %q %q", captured.Language, captured.Question)
	}
	if captured.ProblemDetails == nil || captured.ProblemDetails.Title != "Two Sum" {
		t.Errorf("Expected problem details, got %+v", captured.ProblemDetails)
	}
	if captured.Timestamp == 0 {
		t.Error("Expected a request timestamp")
	}
}
