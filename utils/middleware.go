package utils

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"log"
	"time"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger tags each request with an id (kept if the client sent one)
// and logs it once the handler chain finishes.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)

		c.Next()

		log.Printf("[%s] %s %s %d %s %s",
			id, c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start), c.ClientIP())
		for _, e := range c.Errors {
			log.Printf("[%s] error: %v", id, e.Err)
		}
	}
}
