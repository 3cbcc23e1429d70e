package controllers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"codecoach/config"
	"codecoach/internal/sanitize"
	"codecoach/models"
	"codecoach/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	maxRequestCodeLength       = 8000
	maxRequestTranscriptLength = 3000
	maxRequestLanguageLength   = 20
	maxRequestQuestionLength   = 500

	evaluationModelTimeout = 30 * time.Second
)

var (
	environment = "development"
	startTime   = time.Now()
)

// Init records config-derived values used by the handlers.
func Init(cfg *config.Config) {
	environment = cfg.Server.Environment
}

// Health reports service liveness for the session core's poller.
func Health(c *gin.Context) {
	now := time.Now()
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"model":          services.EvaluatorModel(),
		"environment":    environment,
		"timestamp":      now.Unix(),
		"uptime_seconds": now.Sub(startTime).Seconds(),
	})
}

// Ready reports readiness: healthy only once the evaluator client exists.
func Ready(c *gin.Context) {
	if !services.EvaluatorReady() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false, "reason": "evaluator not initialized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ready": true})
}

// EvaluateCode scores a code submission plus its spoken explanation.
func EvaluateCode(c *gin.Context) {
	start := time.Now()

	var req models.EvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	req.Code = sanitize.Truncate(sanitize.Sanitize(req.Code), maxRequestCodeLength)
	req.Transcript = sanitize.Truncate(sanitize.Sanitize(req.Transcript), maxRequestTranscriptLength)
	req.Language = sanitize.Truncate(sanitize.Sanitize(req.Language), maxRequestLanguageLength)
	req.Question = sanitize.Truncate(sanitize.Sanitize(req.Question), maxRequestQuestionLength)

	if strings.TrimSpace(req.Code) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Code cannot be empty"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), evaluationModelTimeout)
	defer cancel()

	feedbackID := uuid.NewString()
	result, err := services.EvaluateSubmission(ctx, req)
	if err != nil {
		log.Printf("Evaluation failed [%s]: %v", feedbackID, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Evaluation failed. Please try again."})
		return
	}

	c.JSON(http.StatusOK, models.EvaluationResponse{
		Score:            result.Score,
		Strengths:        result.Strengths,
		Improvements:     result.Improvements,
		Optimizations:    result.Optimizations,
		CodeAnalysis:     result.CodeAnalysis,
		SpeechAnalysis:   result.SpeechAnalysis,
		FeedbackID:       feedbackID,
		ProcessingTimeMs: float64(time.Since(start).Microseconds()) / 1000,
	})
}
