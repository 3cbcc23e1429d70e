package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BodySizeLimit caps request body size so an oversized submission is rejected
// at the transport layer instead of being buffered in full. Handlers see the
// limit as a read error, which binding reports as a 400.
func BodySizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
