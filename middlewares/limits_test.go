package middlewares

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newLimitedRouter(maxBytes int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/submit", BodySizeLimit(maxBytes), func(c *gin.Context) {
		var payload struct {
			Text string `json:"text"`
		}
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"length": len(payload.Text)})
	})
	return router
}

func postBody(router *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestBodySizeLimitPassesSmallBodies(t *testing.T) {
	router := newLimitedRouter(1024)

	if w := postBody(router, `{"text":"short"}`); w.Code != http.StatusOK {
		t.Errorf("Expected 200 for small body, got %d", w.Code)
	}
}

func TestBodySizeLimitRejectsOversizedBodies(t *testing.T) {
	router := newLimitedRouter(64)

	body := `{"text":"` + strings.Repeat("a", 200) + `"}`
	if w := postBody(router, body); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for oversized body, got %d", w.Code)
	}
}
