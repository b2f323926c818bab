// Package storytrace instruments generative-model workflows with
// hierarchical traces, spans, and scores, and ships the finished records
// to a storytrace ingestion endpoint in batches.
//
// Example usage:
//
//	client := storytrace.New(storytrace.Config{
//		APIKey: "your-api-key",
//		Host:   "https://api.storytrace.dev",
//	})
//	defer client.Shutdown()
//
//	trace, ctx := storytrace.StartTrace(context.Background(), storytrace.TraceOptions{
//		Name: "story-generation",
//	})
//
//	err := storytrace.Observe(ctx, "write-story", func(ctx context.Context) error {
//		storytrace.UpdateCurrentSpan(ctx, storytrace.SpanUpdateOptions{
//			Output: story,
//		})
//		return nil
//	})
//
//	trace.End(&storytrace.TraceEndOptions{Output: story})
//	client.Flush()
package storytrace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultHost is the ingestion endpoint used when Config.Host is empty.
	DefaultHost = "https://api.storytrace.dev"

	// DefaultMaxQueueSize caps the pending event queue. When the queue is
	// full the oldest events are dropped, never the workload blocked.
	DefaultMaxQueueSize = 10000
)

// Config holds the configuration for the storytrace client.
type Config struct {
	// APIKey authenticates against the ingestion endpoint.
	APIKey string

	// Host is the base URL of the ingestion endpoint.
	Host string

	// Enabled controls whether tracing is active. Defaults to true.
	// A disabled client accepts every call and records nothing.
	Enabled *bool

	// FlushAt is the queue length that triggers an auto-flush. Defaults to 20.
	FlushAt int

	// FlushInterval is the period of the background flush. Defaults to 5s.
	FlushInterval time.Duration

	// MaxRetries bounds delivery attempts per batch. Defaults to 3.
	MaxRetries int

	// Timeout applies to each ingestion request. Defaults to 10s.
	Timeout time.Duration

	// MaxQueueSize caps pending events. Defaults to DefaultMaxQueueSize.
	MaxQueueSize int

	// Logger receives background delivery errors. Defaults to zap.NewNop
	// unless OnError is set.
	Logger *zap.Logger

	// OnError, when set, takes precedence over Logger for background errors.
	OnError func(err error)
}

// Client batches trace, observation, and score events and delivers them
// to the ingestion endpoint in the background.
type Client struct {
	config     Config
	httpClient *http.Client

	mu      sync.Mutex
	queue   []event
	dropped int64

	flushCh chan struct{}
	doneCh  chan struct{}
	wg      sync.WaitGroup
}

type event map[string]any

// New creates a client and starts its background flush loop.
func New(config Config) *Client {
	if config.Host == "" {
		config.Host = DefaultHost
	}
	if config.Enabled == nil {
		enabled := true
		config.Enabled = &enabled
	}
	if config.FlushAt == 0 {
		config.FlushAt = 20
	}
	if config.FlushInterval == 0 {
		config.FlushInterval = 5 * time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.MaxQueueSize == 0 {
		config.MaxQueueSize = DefaultMaxQueueSize
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	c := &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		queue:      make([]event, 0),
		flushCh:    make(chan struct{}, 1),
		doneCh:     make(chan struct{}),
	}

	c.wg.Add(1)
	go c.flushLoop()

	SetGlobalClient(c)

	return c
}

// Enabled reports whether the client records events.
func (c *Client) Enabled() bool {
	return c.config.Enabled != nil && *c.config.Enabled
}

// Trace begins a new trace and threads it through the returned context's
// descendants via StartTrace; callers holding only the client use this
// directly.
func (c *Client) Trace(ctx context.Context, opts TraceOptions) *Trace {
	if opts.ID == "" {
		opts.ID = uuid.New().String()
	}

	t := &Trace{
		client:    c,
		id:        opts.ID,
		name:      opts.Name,
		userID:    opts.UserID,
		sessionID: opts.SessionID,
		metadata:  opts.Metadata,
		tags:      opts.Tags,
		input:     opts.Input,
		startTime: time.Now().UTC(),
	}
	if t.metadata == nil {
		t.metadata = make(map[string]any)
	}
	if t.tags == nil {
		t.tags = []string{}
	}

	t.sendCreate()
	return t
}

// ScoreOptions identifies the target record and the score to attach.
type ScoreOptions struct {
	TraceID       string
	ObservationID string
	Name          string
	Value         any
	DataType      string
	Comment       string
}

// Score attaches a named score to a trace or observation.
func (c *Client) Score(opts ScoreOptions) {
	if !c.Enabled() {
		return
	}

	c.enqueue(event{
		"type": "score-create",
		"body": map[string]any{
			"id":            uuid.New().String(),
			"traceId":       opts.TraceID,
			"observationId": opts.ObservationID,
			"name":          opts.Name,
			"value":         opts.Value,
			"dataType":      opts.DataType,
			"comment":       opts.Comment,
			"source":        "API",
		},
	})
}

// Flush synchronously delivers all pending events.
func (c *Client) Flush() {
	c.mu.Lock()
	if len(c.queue) == 0 {
		c.mu.Unlock()
		return
	}
	batch := c.queue
	c.queue = make([]event, 0)
	c.mu.Unlock()

	c.deliver(context.Background(), batch)
}

// Shutdown stops the background loop and flushes what remains.
func (c *Client) Shutdown() {
	close(c.doneCh)
	c.wg.Wait()
	c.Flush()
}

// DroppedEvents returns how many events were discarded to queue overflow.
func (c *Client) DroppedEvents() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

func (c *Client) enqueue(ev event) {
	c.mu.Lock()

	if len(c.queue) >= c.config.MaxQueueSize {
		n := len(c.queue) - c.config.MaxQueueSize + 1
		c.queue = c.queue[n:]
		c.dropped += int64(n)
		c.reportError(fmt.Errorf("storytrace: queue overflow, dropped %d events (total %d)", n, c.dropped))
	}

	c.queue = append(c.queue, ev)
	full := len(c.queue) >= c.config.FlushAt
	c.mu.Unlock()

	if full {
		select {
		case c.flushCh <- struct{}{}:
		default:
		}
	}
}

func (c *Client) flushLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.doneCh:
			return
		case <-c.flushCh:
			c.Flush()
		case <-ticker.C:
			c.Flush()
		}
	}
}

// deliver posts one batch to the ingestion endpoint, retrying transient
// failures with exponential backoff and honoring Retry-After on 429.
func (c *Client) deliver(ctx context.Context, batch []event) {
	if len(batch) == 0 {
		return
	}

	data, err := json.Marshal(map[string]any{"batch": batch})
	if err != nil {
		c.reportError(fmt.Errorf("storytrace: marshal batch: %w", err))
		return
	}

	url := c.config.Host + "/api/public/ingestion"

	var lastErr error
	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			c.reportError(fmt.Errorf("storytrace: delivery cancelled: %w", ctx.Err()))
			return
		}

		reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			cancel()
			lastErr = fmt.Errorf("build request: %w", err)
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		req.Header.Set("User-Agent", "storytrace-go/0.1.0")

		resp, err := c.httpClient.Do(req)
		cancel()

		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if ctx.Err() != nil {
				c.reportError(fmt.Errorf("storytrace: delivery cancelled: %w", ctx.Err()))
				return
			}
			time.Sleep(backoff(attempt))
			continue
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return
		case resp.StatusCode == http.StatusTooManyRequests:
			retryAfter := 5
			if h := resp.Header.Get("Retry-After"); h != "" {
				fmt.Sscanf(h, "%d", &retryAfter)
			}
			lastErr = fmt.Errorf("rate limited, retry after %ds", retryAfter)
			time.Sleep(time.Duration(retryAfter) * time.Second)
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			time.Sleep(backoff(attempt))
		default:
			// 4xx other than 429 will not improve with retries.
			c.reportError(fmt.Errorf("storytrace: ingestion rejected batch with status %d", resp.StatusCode))
			return
		}
	}

	if lastErr != nil {
		c.reportError(fmt.Errorf("storytrace: delivery failed after %d attempts: %w", c.config.MaxRetries, lastErr))
	}
}

func backoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * 500 * time.Millisecond
}

func (c *Client) reportError(err error) {
	if c.config.OnError != nil {
		c.config.OnError(err)
		return
	}
	c.config.Logger.Error("background delivery error", zap.Error(err))
}
