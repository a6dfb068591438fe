package api

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/feed"
	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/llm"
	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/tasks"
	"github.com/gin-gonic/gin"
)

const (
	podcastTitle    = "TL;DL"
	podcastLanguage = "en" // scripts are always English
)

func NewHandler(episodes EpisodeSource, runs RunRequester, cfg HandlerConfig) *Handler {
	return &Handler{
		episodes:  episodes,
		runs:      runs,
		generator: feed.NewGenerator(),
		cfg:       cfg,
	}
}

func (h *Handler) GetFeed(c *gin.Context) {
	baseURL := h.baseURL(c)

	podcast := feed.Podcast{
		Title:       podcastTitle,
		Link:        baseURL + "/",
		Description: "Too Long; Didn't Listen: a daily digest of YouTube news channels",
		SelfLink:    baseURL + "/feed.xml",
		Language:    podcastLanguage,
		Version:     h.cfg.Version,
	}
	if fileExists(h.cfg.ImagePath) {
		podcast.ImageURL = baseURL + h.coverPath()
	}

	var items []feed.EpisodeItem
	episode, ok := h.episodes.Latest()
	if ok {
		items = append(items, feed.EpisodeItem{
			GUID:         episode.ID,
			Title:        episode.Title(),
			Description:  llm.JoinSummaries(episode.Summaries),
			Link:         baseURL + "/script",
			PublishedAt:  episode.CreatedAt,
			AudioURL:     baseURL + "/podcast.mp3",
			AudioLength:  episode.AudioBytes,
			AudioType:    "audio/mpeg",
			SourceVideos: episode.Videos,
		})
	}

	rss, err := h.generator.Run(podcast, items)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(items)))
	if ok {
		c.Header("X-Last-Updated", episode.CreatedAt.Format(time.RFC3339))
	}

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetAudio(c *gin.Context) {
	h.serveArtifact(c, h.cfg.AudioPath, "audio/mpeg")
}

func (h *Handler) GetVideo(c *gin.Context) {
	h.serveArtifact(c, h.cfg.VideoPath, "video/mp4")
}

func (h *Handler) GetScript(c *gin.Context) {
	h.serveArtifact(c, h.cfg.ScriptPath, "text/plain; charset=utf-8")
}

func (h *Handler) GetCover(c *gin.Context) {
	contentType := "image/png"
	if ext := filepath.Ext(h.coverPath()); ext == ".jpg" || ext == ".jpeg" {
		contentType = "image/jpeg"
	}
	h.serveArtifact(c, h.cfg.ImagePath, contentType)
}

// coverPath keeps the image extension, which podcast directories require.
func (h *Handler) coverPath() string {
	ext := strings.ToLower(filepath.Ext(h.cfg.ImagePath))
	if ext != ".jpg" && ext != ".jpeg" {
		ext = ".png"
	}
	return "/cover" + ext
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (h *Handler) serveArtifact(c *gin.Context, path, contentType string) {
	if path == "" {
		c.Status(http.StatusNotFound)
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Error("Artifact stat error", "path", path, "error", err)
		}
		c.Status(http.StatusNotFound)
		return
	}

	c.Header("Content-Type", contentType)
	c.File(path)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if episode, ok := h.episodes.Latest(); ok {
		health["latest_episode"] = map[string]interface{}{
			"id":         episode.ID,
			"title":      episode.Title(),
			"videos":     len(episode.Videos),
			"created_at": episode.CreatedAt.Format(time.RFC3339),
			"duration":   episode.Duration.String(),
		}
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIRequestRun(c *gin.Context) {
	taskID, err := h.runs.RequestRun(tasks.TriggerAPI)
	if errors.Is(err, tasks.ErrQueueFull) {
		slog.Warn("Run request rejected", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Run queue is full, try again later"})
		return
	}
	if err != nil {
		slog.Error("Error enqueueing run", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue run",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Episode run enqueued",
		"task": gin.H{
			"id":      taskID,
			"type":    tasks.TaskTypeProduceEpisode,
			"trigger": tasks.TriggerAPI,
		},
	})
}

func (h *Handler) baseURL(c *gin.Context) string {
	if h.cfg.BaseURL != "" {
		return strings.TrimRight(h.cfg.BaseURL, "/")
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}
