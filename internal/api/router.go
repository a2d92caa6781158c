package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/doodlegames/doodle-rewards/internal/websocket"
)

// SetupRouter initializes the Gin router and sets up the routes
func SetupRouter(h *Handler, wsManager *websocket.RewardFeedManager) *gin.Engine {
	r := gin.Default()
	r.Use(CORSMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(ErrorMiddleware())

	api := r.Group("/api")
	{
		api.GET("/balance/:walletAddress", h.GetBalance)
		api.POST("/reward", h.IssueReward)
		api.POST("/link-referrer", h.LinkReferrer)
	}

	// Live reward feed
	r.GET("/ws", func(c *gin.Context) {
		wsManager.HandleWebSocket(c.Writer, c.Request)
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
