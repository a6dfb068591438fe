package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		// Podcast clients poll constantly.
		SkipPaths: []string{"/health"},
	}))

	r.Use(gin.Recovery())

	setupRoutes(r, handler)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler) {
	r.GET("/feed.xml", handler.GetFeed)
	r.GET("/podcast.mp3", handler.GetAudio)
	r.HEAD("/podcast.mp3", handler.GetAudio)
	r.GET("/podcast_video.mp4", handler.GetVideo)
	r.GET("/script", handler.GetScript)
	r.GET(handler.coverPath(), handler.GetCover)

	r.GET("/health", handler.GetHealth)

	api := r.Group("/api")
	{
		api.POST("/runs", handler.APIRequestRun)
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service":     "TL;DL Podcast",
			"version":     handler.cfg.Version,
			"description": "Daily audio digest of YouTube news channels",
			"endpoints": map[string]string{
				"feed":   "/feed.xml",
				"audio":  "/podcast.mp3",
				"video":  "/podcast_video.mp4",
				"script": "/script",
				"cover":  handler.coverPath(),
				"health": "/health",
				"run":    "/api/runs (POST)",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}
