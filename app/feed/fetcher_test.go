package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/retry"
)

func testRetryConfig() retry.Config {
	return retry.Config{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
}

func TestFetcher_Run(t *testing.T) {
	var gotChannel, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotChannel = r.URL.Query().Get("channel_id")
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/atom+xml")
		w.Write(atomFeed())
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), server.URL+"/feeds/videos.xml", "TestAgent/1.0", time.Second, testRetryConfig())
	data, err := fetcher.Run(context.Background(), "UCabc")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(data) == 0 {
		t.Error("Expected feed body")
	}
	if gotChannel != "UCabc" {
		t.Errorf("Expected channel_id 'UCabc', got '%s'", gotChannel)
	}
	if gotAgent != "TestAgent/1.0" {
		t.Errorf("Expected User-Agent 'TestAgent/1.0', got '%s'", gotAgent)
	}
}

func TestFetcher_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(atomFeed())
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), server.URL, "TestAgent/1.0", time.Second, testRetryConfig())
	if _, err := fetcher.Run(context.Background(), "UCabc"); err != nil {
		t.Fatalf("Expected success after retries, got: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 3 calls, got %d", calls.Load())
	}
}

func TestFetcher_NotFound(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), server.URL, "TestAgent/1.0", time.Second, testRetryConfig())
	_, err := fetcher.Run(context.Background(), "UCmissing")
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected *FetchError, got %T", err)
	}
	if fetchErr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", fetchErr.StatusCode)
	}
	if !errors.Is(err, ErrChannelNotFound) {
		t.Errorf("Expected ErrChannelNotFound, got: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected 404 not to be retried, got %d calls", calls.Load())
	}
}

func TestFetcher_RateLimitedExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), server.URL, "TestAgent/1.0", time.Second, testRetryConfig())
	_, err := fetcher.Run(context.Background(), "UCabc")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Expected ErrRateLimited, got: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls.Load())
	}
}
