package storytrace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	t.Run("creates client with defaults", func(t *testing.T) {
		client := New(Config{
			APIKey: "test-api-key",
		})
		defer client.Shutdown()

		if client.config.Host != DefaultHost {
			t.Errorf("expected Host to be default, got '%s'", client.config.Host)
		}
		if !client.Enabled() {
			t.Error("expected client to be enabled by default")
		}
		if client.config.FlushAt != 20 {
			t.Errorf("expected FlushAt to be 20, got %d", client.config.FlushAt)
		}
		if client.config.FlushInterval != 5*time.Second {
			t.Errorf("expected FlushInterval to be 5s, got %v", client.config.FlushInterval)
		}
		if client.config.MaxQueueSize != DefaultMaxQueueSize {
			t.Errorf("expected MaxQueueSize to be %d, got %d", DefaultMaxQueueSize, client.config.MaxQueueSize)
		}
	})

	t.Run("creates client with custom config", func(t *testing.T) {
		enabled := false
		client := New(Config{
			APIKey:        "test-api-key",
			Host:          "https://custom.example.com",
			Enabled:       &enabled,
			FlushAt:       10,
			FlushInterval: time.Second,
		})
		defer client.Shutdown()

		if client.config.Host != "https://custom.example.com" {
			t.Errorf("expected Host to be custom, got '%s'", client.config.Host)
		}
		if client.Enabled() {
			t.Error("expected client to be disabled")
		}
	})

	t.Run("sets global client", func(t *testing.T) {
		client := New(Config{
			APIKey: "test-api-key",
		})
		defer client.Shutdown()

		if GetGlobalClient() != client {
			t.Error("expected global client to be set")
		}
	})
}

func TestClient_DisabledRecordsNothing(t *testing.T) {
	enabled := false
	client := New(Config{
		APIKey:  "test-api-key",
		Enabled: &enabled,
	})
	defer client.Shutdown()

	trace := client.Trace(context.Background(), TraceOptions{Name: "ignored"})
	trace.Span(SpanOptions{Name: "ignored"}).End(nil)
	trace.Score("quality", 50, nil)
	trace.End(nil)

	client.mu.Lock()
	queued := len(client.queue)
	client.mu.Unlock()

	if queued != 0 {
		t.Errorf("expected empty queue on disabled client, got %d events", queued)
	}
}

func TestClient_Flush(t *testing.T) {
	received := make(chan int, 10)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/public/ingestion" {
			t.Errorf("expected /api/public/ingestion, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-api-key" {
			t.Errorf("expected bearer auth header, got %q", got)
		}

		var payload struct {
			Batch []json.RawMessage `json:"batch"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		received <- len(payload.Batch)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(Config{
		APIKey:        "test-api-key",
		Host:          server.URL,
		FlushAt:       100,
		FlushInterval: time.Hour,
	})
	defer client.Shutdown()

	trace := client.Trace(context.Background(), TraceOptions{Name: "test"})
	trace.Span(SpanOptions{Name: "span1"})
	trace.Span(SpanOptions{Name: "span2"})

	client.Flush()

	select {
	case n := <-received:
		// trace-create plus two span-creates
		if n != 3 {
			t.Errorf("expected 3 events in batch, got %d", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected a batch to be delivered")
	}
}

func TestClient_Score(t *testing.T) {
	bodies := make(chan map[string]any, 10)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Batch []struct {
				Type string         `json:"type"`
				Body map[string]any `json:"body"`
			} `json:"batch"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		for _, ev := range payload.Batch {
			if ev.Type == "score-create" {
				bodies <- ev.Body
			}
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(Config{
		APIKey:        "test-api-key",
		Host:          server.URL,
		FlushAt:       100,
		FlushInterval: time.Hour,
	})
	defer client.Shutdown()

	client.Score(ScoreOptions{
		TraceID: "trace-123",
		Name:    "overall_quality",
		Value:   80,
		Comment: "good",
	})
	client.Flush()

	select {
	case body := <-bodies:
		if body["traceId"] != "trace-123" {
			t.Errorf("expected traceId trace-123, got %v", body["traceId"])
		}
		if body["name"] != "overall_quality" {
			t.Errorf("expected name overall_quality, got %v", body["name"])
		}
		if body["comment"] != "good" {
			t.Errorf("expected comment good, got %v", body["comment"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected a score-create event")
	}
}

func TestClient_QueueOverflowDropsOldest(t *testing.T) {
	var reported []error
	enabledHost := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer enabledHost.Close()

	client := New(Config{
		APIKey:        "test-api-key",
		Host:          enabledHost.URL,
		MaxQueueSize:  5,
		FlushAt:       100,
		FlushInterval: time.Hour,
		OnError:       func(err error) { reported = append(reported, err) },
	})
	defer client.Shutdown()

	for i := 0; i < 8; i++ {
		client.enqueue(event{"type": "trace-create"})
	}

	if got := client.DroppedEvents(); got != 3 {
		t.Errorf("expected 3 dropped events, got %d", got)
	}
	if len(reported) == 0 {
		t.Error("expected overflow to be reported via OnError")
	}

	client.mu.Lock()
	queued := len(client.queue)
	client.mu.Unlock()
	if queued != 5 {
		t.Errorf("expected queue capped at 5, got %d", queued)
	}
}
