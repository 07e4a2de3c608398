package server

import (
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRouter creates and configures the Gin router.
func SetupRouter(api *API, corsOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware(corsOrigins))

	// Transport control endpoints
	pb := r.Group("/playback")
	{
		pb.POST("/load", api.Load)
		pb.POST("/play", api.Play)
		pb.POST("/pause", api.Pause)
		pb.POST("/seek", api.Seek)
		pb.POST("/stop", api.Stop)
		pb.GET("/state", api.State)
		pb.GET("/events", api.Events)
	}

	r.GET("/recordings", api.Recordings)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

// corsMiddleware handles CORS for browser requests.
func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type"}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
