package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/doodlegames/doodle-rewards/internal/errors"
	"github.com/doodlegames/doodle-rewards/pkg/logger"
)

func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err
			switch e := err.(type) {
			case *errors.DatabaseError:
				logger.Error("Database error: %v", e)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			case *errors.EthereumError:
				logger.Error("Ethereum error: %v", e)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Ethereum service unavailable"})
			case *errors.APIError:
				logger.Error("API error: %v", e)
				c.JSON(e.StatusCode, gin.H{"error": e.Message})
			default:
				logger.Error("Unexpected error: %v", e)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			}
			c.Abort()
		}
	}
}

// CORSMiddleware allows the browser game to call the API from any origin.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestIDMiddleware tags every request with an id for log correlation.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("requestID", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}
