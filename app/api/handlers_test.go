package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/feed"
	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/llm"
	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/tasks"
)

type fakeRuns struct {
	triggers []string
	err      error
}

func (f *fakeRuns) RequestRun(trigger string) (string, error) {
	f.triggers = append(f.triggers, trigger)
	if f.err != nil {
		return "", f.err
	}
	return "task-1", nil
}

func testEpisode() *tasks.Episode {
	return &tasks.Episode{
		ID:         "episode-1",
		Date:       time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC),
		AudioBytes: 1234,
		CreatedAt:  time.Date(2025, 5, 30, 6, 0, 0, 0, time.UTC),
		Videos: []feed.Video{
			{ID: "abc123", Title: "Market Update", ChannelName: "Market Daily"},
		},
	}
}

func newTestServer(t *testing.T, store *tasks.EpisodeStore, runs *fakeRuns) (http.Handler, HandlerConfig) {
	t.Helper()
	dir := t.TempDir()
	cfg := HandlerConfig{
		BaseURL:    "https://podcast.example.com/",
		Version:    "test",
		ImagePath:  filepath.Join(dir, "TL_DL.png"),
		AudioPath:  filepath.Join(dir, "podcast.mp3"),
		VideoPath:  filepath.Join(dir, "podcast_video.mp4"),
		ScriptPath: filepath.Join(dir, "podcast_script.txt"),
	}
	return NewServer(NewHandler(store, runs, cfg)), cfg
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	h.ServeHTTP(w, req)
	return w
}

func TestGetFeed_WithEpisode(t *testing.T) {
	store := tasks.NewEpisodeStore()
	store.Set(testEpisode())
	server, _ := newTestServer(t, store, &fakeRuns{})

	w := serve(server, http.MethodGet, "/feed.xml")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
		t.Errorf("Expected XML content type, got %s", ct)
	}
	if w.Header().Get("X-Feed-Items") != "1" {
		t.Errorf("Expected 1 item, got %s", w.Header().Get("X-Feed-Items"))
	}

	body := w.Body.String()
	expected := []string{
		`<enclosure url="https://podcast.example.com/podcast.mp3" length="1234" type="audio/mpeg" />`,
		"<title>TL;DL for May 30, 2025</title>",
		`<atom:link href="https://podcast.example.com/feed.xml"`,
		"Market Daily: Market Update",
	}
	for _, s := range expected {
		if !strings.Contains(body, s) {
			t.Errorf("Expected feed to contain %q, got:\n%s", s, body)
		}
	}
}

func TestGetFeed_SummariesAndCover(t *testing.T) {
	store := tasks.NewEpisodeStore()
	episode := testEpisode()
	episode.Summaries = []llm.Summary{
		{VideoID: "abc123", Text: "- Nifty closed higher"},
		{VideoID: "def456", Text: "- Rupee steady"},
	}
	store.Set(episode)
	server, cfg := newTestServer(t, store, &fakeRuns{})

	body := serve(server, http.MethodGet, "/feed.xml").Body.String()
	if strings.Contains(body, "itunes:image") {
		t.Error("Expected no cover before the image exists")
	}
	for _, summary := range []string{"- Nifty closed higher", "- Rupee steady"} {
		if !strings.Contains(body, summary) {
			t.Errorf("Expected %q in the item description, got:\n%s", summary, body)
		}
	}

	if err := os.WriteFile(cfg.ImagePath, []byte("\x89PNG"), 0644); err != nil {
		t.Fatal(err)
	}

	body = serve(server, http.MethodGet, "/feed.xml").Body.String()
	if !strings.Contains(body, `<itunes:image href="https://podcast.example.com/cover.png" />`) {
		t.Errorf("Expected itunes cover, got:\n%s", body)
	}

	w := serve(server, http.MethodGet, "/cover.png")
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Errorf("Unexpected cover response %d %s", w.Code, w.Header().Get("Content-Type"))
	}
}

func TestGetFeed_Empty(t *testing.T) {
	server, _ := newTestServer(t, tasks.NewEpisodeStore(), &fakeRuns{})

	w := serve(server, http.MethodGet, "/feed.xml")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "<item>") {
		t.Error("Expected no items without an episode")
	}
}

func TestGetFeed_BaseURLFromRequest(t *testing.T) {
	store := tasks.NewEpisodeStore()
	store.Set(testEpisode())
	handler := NewHandler(store, &fakeRuns{}, HandlerConfig{})
	server := NewServer(handler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/feed.xml", nil)
	req.Host = "localhost:8080"
	server.ServeHTTP(w, req)

	if !strings.Contains(w.Body.String(), `url="http://localhost:8080/podcast.mp3"`) {
		t.Errorf("Expected enclosure on request host, got:\n%s", w.Body.String())
	}
}

func TestArtifacts(t *testing.T) {
	server, cfg := newTestServer(t, tasks.NewEpisodeStore(), &fakeRuns{})

	if w := serve(server, http.MethodGet, "/podcast.mp3"); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 before the first run, got %d", w.Code)
	}

	if err := os.WriteFile(cfg.AudioPath, []byte("ID3audio"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.ScriptPath, []byte("Welcome to TL;DL."), 0644); err != nil {
		t.Fatal(err)
	}

	w := serve(server, http.MethodGet, "/podcast.mp3")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if w.Header().Get("Content-Type") != "audio/mpeg" {
		t.Errorf("Expected audio/mpeg, got %s", w.Header().Get("Content-Type"))
	}
	if w.Body.String() != "ID3audio" {
		t.Errorf("Unexpected audio body %q", w.Body.String())
	}

	w = serve(server, http.MethodGet, "/script")
	if w.Code != http.StatusOK || w.Body.String() != "Welcome to TL;DL." {
		t.Errorf("Unexpected script response %d %q", w.Code, w.Body.String())
	}

	if w := serve(server, http.MethodGet, "/podcast_video.mp4"); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing video, got %d", w.Code)
	}
}

func TestAPIRequestRun(t *testing.T) {
	runs := &fakeRuns{}
	server, _ := newTestServer(t, tasks.NewEpisodeStore(), runs)

	w := serve(server, http.MethodPost, "/api/runs")

	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d", w.Code)
	}
	if len(runs.triggers) != 1 || runs.triggers[0] != tasks.TriggerAPI {
		t.Errorf("Expected one api trigger, got %v", runs.triggers)
	}

	var resp struct {
		Task struct {
			ID string `json:"id"`
		} `json:"task"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if resp.Task.ID != "task-1" {
		t.Errorf("Expected task-1, got %s", resp.Task.ID)
	}
}

func TestAPIRequestRun_QueueFull(t *testing.T) {
	server, _ := newTestServer(t, tasks.NewEpisodeStore(), &fakeRuns{err: tasks.ErrQueueFull})

	if w := serve(server, http.MethodPost, "/api/runs"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestAPIRequestRun_Error(t *testing.T) {
	server, _ := newTestServer(t, tasks.NewEpisodeStore(), &fakeRuns{err: errors.New("scheduler stopped")})

	if w := serve(server, http.MethodPost, "/api/runs"); w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
}

func TestGetHealth(t *testing.T) {
	store := tasks.NewEpisodeStore()
	server, _ := newTestServer(t, store, &fakeRuns{})

	w := serve(server, http.MethodGet, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "latest_episode") {
		t.Error("Expected no latest_episode before the first run")
	}

	store.Set(testEpisode())
	w = serve(server, http.MethodGet, "/health")

	var health map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	latest, ok := health["latest_episode"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected latest_episode, got %v", health)
	}
	if latest["id"] != "episode-1" {
		t.Errorf("Expected episode-1, got %v", latest["id"])
	}
}
