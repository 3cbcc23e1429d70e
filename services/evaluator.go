package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"codecoach/config"
	"codecoach/internal/sanitize"
	"codecoach/models"

	"google.golang.org/genai"
)

// Global Gemini client instance
var geminiClient *genai.Client
var evaluatorModel string

// InitEvaluatorService initializes the Gemini client using the API key from
// the config
func InitEvaluatorService(cfg *config.Config) error {
	client, err := initGemini(cfg.Gemini.ApiKey)
	if err != nil {
		return fmt.Errorf("failed to initialize gemini client: %w", err)
	}
	geminiClient = client
	evaluatorModel = cfg.Gemini.Model
	return nil
}

// EvaluatorModel returns the configured model name for the health endpoint.
func EvaluatorModel() string {
	return evaluatorModel
}

// EvaluatorReady reports whether the Gemini client has been initialized.
func EvaluatorReady() bool {
	return geminiClient != nil
}

// ParsedEvaluation is the structured result extracted from the model's
// free-text evaluation.
type ParsedEvaluation struct {
	Score          int
	Strengths      []string
	Improvements   []string
	Optimizations  []string
	CodeAnalysis   string
	SpeechAnalysis string
}

const maxEntriesPerSection = 5

// EvaluateSubmission asks the model to score the candidate's code and
// narration, and parses the sectioned reply into a structured result.
func EvaluateSubmission(ctx context.Context, req models.EvaluationRequest) (ParsedEvaluation, error) {
	if geminiClient == nil {
		return ParsedEvaluation{}, errors.New("evaluator service not initialized")
	}

	response, err := generateModelText(ctx, evaluatorModel, buildEvaluationPrompt(req))
	if err != nil {
		return ParsedEvaluation{}, fmt.Errorf("failed to evaluate submission: %w", err)
	}
	if response == "" {
		return ParsedEvaluation{}, errors.New("no evaluation returned")
	}

	return parseEvaluation(response), nil
}

func buildEvaluationPrompt(req models.EvaluationRequest) string {
	var sb strings.Builder

	sb.WriteString(`You are a technical interviewer analyzing code and explanations.

Provide evaluation in this exact format:
Score: [0-10] based on correctness, clarity, and approach
Strengths: List specific positive aspects
Improvements: List areas that need work
Optimizations: Suggest performance or code quality improvements
Code Analysis: One short paragraph on the code itself
Speech Analysis: One short paragraph on the spoken explanation

Be constructive, specific, and focus on teaching moments.

`)

	sb.WriteString(fmt.Sprintf("Code (%s):\n%s\n", req.Language, req.Code))

	if strings.TrimSpace(req.Transcript) != "" {
		sb.WriteString(fmt.Sprintf("\nExplanation:\n%s\n", req.Transcript))
	}
	if strings.TrimSpace(req.Question) != "" {
		sb.WriteString(fmt.Sprintf("\nQuestion Context:\n%s\n", req.Question))
	}
	if d := req.ProblemDetails; d != nil {
		sb.WriteString(fmt.Sprintf("\nProblem: %s (%s) - %s\n",
			orDefault(d.Title), orDefault(d.Difficulty), orDefault(d.Category)))
	}

	return sb.String()
}

func orDefault(value string) string {
	if strings.TrimSpace(value) == "" {
		return "N/A"
	}
	return value
}

// parseEvaluation walks the model's reply line by line, collecting bullet
// entries under each section header. It never fails; unrecognized lines are
// skipped and a malformed reply yields a zero-valued result.
func parseEvaluation(raw string) ParsedEvaluation {
	var result ParsedEvaluation

	section := ""
	var analysis strings.Builder
	flushAnalysis := func() {
		text := sanitize.Truncate(strings.TrimSpace(analysis.String()), 500)
		switch section {
		case "code_analysis":
			result.CodeAnalysis = text
		case "speech_analysis":
			result.SpeechAnalysis = text
		}
		analysis.Reset()
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)

		switch {
		case strings.HasPrefix(lower, "score:"):
			flushAnalysis()
			section = ""
			result.Score = extractScore(line[len("score:"):])
		case strings.HasPrefix(lower, "strengths:"):
			flushAnalysis()
			section = "strengths"
		case strings.HasPrefix(lower, "improvements:"):
			flushAnalysis()
			section = "improvements"
		case strings.HasPrefix(lower, "optimizations:"):
			flushAnalysis()
			section = "optimizations"
		case strings.HasPrefix(lower, "code analysis:"):
			flushAnalysis()
			section = "code_analysis"
			analysis.WriteString(strings.TrimSpace(line[len("code analysis:"):]))
		case strings.HasPrefix(lower, "speech analysis:"):
			flushAnalysis()
			section = "speech_analysis"
			analysis.WriteString(strings.TrimSpace(line[len("speech analysis:"):]))
		default:
			switch section {
			case "strengths":
				appendEntry(&result.Strengths, line)
			case "improvements":
				appendEntry(&result.Improvements, line)
			case "optimizations":
				appendEntry(&result.Optimizations, line)
			case "code_analysis", "speech_analysis":
				if analysis.Len() > 0 {
					analysis.WriteString(" ")
				}
				analysis.WriteString(line)
			}
		}
	}
	flushAnalysis()

	return result
}

// extractScore pulls the first run of digits out of the score text and
// clamps it to [0, 10].
func extractScore(text string) int {
	score := 0
	found := false
	for _, r := range strings.TrimSpace(text) {
		if unicode.IsDigit(r) {
			score = score*10 + int(r-'0')
			found = true
			if score > 10 {
				return 10
			}
			continue
		}
		if found {
			break
		}
	}
	return score
}

// appendEntry strips bullet markers and keeps entries long enough to be
// meaningful, sized for display.
func appendEntry(entries *[]string, line string) {
	if len(*entries) >= maxEntriesPerSection {
		return
	}
	content := strings.TrimLeft(line, "-•*0123456789. \t")
	content = strings.TrimSpace(content)
	if len(content) <= 5 {
		return
	}
	*entries = append(*entries, sanitize.Truncate(content, 200))
}
