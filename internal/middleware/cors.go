package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows the web client at allowedOrigins to call the API, including
// the identity header and the request ID.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
			RequestIDHeader, ActorHeader,
		},
		ExposeHeaders:    []string{RequestIDHeader, "Location"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
