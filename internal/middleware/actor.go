package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stwalsh4118/sitetrack/internal/services"
)

const (
	// ActorHeader carries the email of the signed-in user. Authentication
	// happens upstream; the value is trusted as-is.
	ActorHeader = "X-User-Email"
	actorKey    = "actor"
)

// Actor copies the acting user into the request context so audit entries
// can name who made a change.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		email := strings.TrimSpace(c.GetHeader(ActorHeader))
		if email != "" {
			c.Set(actorKey, email)
			c.Request = c.Request.WithContext(services.WithActor(c.Request.Context(), email))
		}
		c.Next()
	}
}

// GetActor returns the acting user, or services.UnknownActor.
func GetActor(c *gin.Context) string {
	if email := c.GetString(actorKey); email != "" {
		return email
	}
	return services.UnknownActor
}

// BodyLimit caps request bodies at maxBytes. Reads past the limit fail and
// the handler reports 413.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			if c.Request.ContentLength > maxBytes {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
					"error": gin.H{
						"code":       "PAYLOAD_TOO_LARGE",
						"message":    "Request body is too large",
						"request_id": GetRequestID(c),
					},
				})
				return
			}
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
