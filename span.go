package storytrace

import (
	"time"
)

// Status is the lifecycle state of an observation. An observation starts
// running and moves exactly once to succeeded or failed.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// SpanOptions holds options for creating a span.
type SpanOptions struct {
	Name                string
	ID                  string
	ParentObservationID string
	Metadata            map[string]any
	Input               any
}

// Span is one instrumented step within a trace.
type Span struct {
	client    *Client
	traceID   string
	id        string
	name      string
	parentID  string
	metadata  map[string]any
	input     any
	output    any
	status    Status
	startTime time.Time
	endTime   *time.Time
	ended     bool
}

// ID returns the span ID.
func (s *Span) ID() string {
	return s.id
}

// TraceID returns the owning trace's ID.
func (s *Span) TraceID() string {
	return s.traceID
}

// ParentObservationID returns the parent observation's ID, or "" when the
// span hangs directly off the trace root.
func (s *Span) ParentObservationID() string {
	return s.parentID
}

// Status returns the span's lifecycle state.
func (s *Span) Status() Status {
	return s.status
}

// StartTime returns when the span was opened.
func (s *Span) StartTime() time.Time {
	return s.startTime
}

// EndTime returns when the span was closed, or nil while running.
func (s *Span) EndTime() *time.Time {
	return s.endTime
}

func (s *Span) sendCreate() {
	if !s.client.Enabled() {
		return
	}

	s.client.enqueue(event{
		"type": "span-create",
		"body": map[string]any{
			"id":                  s.id,
			"traceId":             s.traceID,
			"parentObservationId": s.parentID,
			"name":                s.name,
			"metadata":            s.metadata,
			"input":               s.input,
			"status":              string(s.status),
			"startTime":           s.startTime.Format(time.RFC3339Nano),
		},
	})
}

// SpanUpdateOptions holds fields to merge into a span. Metadata keys are
// merged, name/input/output are last-write-wins.
type SpanUpdateOptions struct {
	Name     *string
	Metadata map[string]any
	Input    any
	Output   any
}

// Update merges the given fields into the span. Updates after the span
// is closed are silently ignored.
func (s *Span) Update(opts SpanUpdateOptions) {
	if s.ended {
		return
	}

	if opts.Name != nil {
		s.name = *opts.Name
	}
	for k, v := range opts.Metadata {
		s.metadata[k] = v
	}
	if opts.Input != nil {
		s.input = opts.Input
	}
	if opts.Output != nil {
		s.output = opts.Output
	}
}

// SpanEndOptions holds options for ending a span.
type SpanEndOptions struct {
	Output any
}

// End closes the span as succeeded. Subsequent End and Fail calls are
// no-ops.
func (s *Span) End(opts *SpanEndOptions) {
	var output any
	if opts != nil {
		output = opts.Output
	}
	s.close(StatusSucceeded, output, "")
}

// Fail closes the span as failed, recording the error message. The error
// itself is the caller's to propagate; the span never owns it.
func (s *Span) Fail(err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	s.close(StatusFailed, nil, msg)
}

func (s *Span) close(status Status, output any, statusMessage string) {
	if s.ended {
		return
	}

	s.ended = true
	s.status = status
	now := time.Now().UTC()
	s.endTime = &now
	if output != nil {
		s.output = output
	}

	if !s.client.Enabled() {
		return
	}

	body := map[string]any{
		"id":      s.id,
		"output":  s.output,
		"status":  string(s.status),
		"endTime": s.endTime.Format(time.RFC3339Nano),
	}
	if statusMessage != "" {
		body["statusMessage"] = statusMessage
	}

	s.client.enqueue(event{
		"type": "span-update",
		"body": body,
	})
}

// GenerationOptions holds options for creating a generation.
type GenerationOptions struct {
	Name                string
	ID                  string
	ParentObservationID string
	Model               string
	ModelParameters     map[string]any
	Metadata            map[string]any
	Input               any
}

// Generation is an observation covering a single model call.
type Generation struct {
	client          *Client
	traceID         string
	id              string
	name            string
	parentID        string
	model           string
	modelParameters map[string]any
	metadata        map[string]any
	input           any
	output          any
	usage           *UsageDetails
	status          Status
	startTime       time.Time
	endTime         *time.Time
	ended           bool
}

// UsageDetails holds token usage reported by the model provider.
type UsageDetails struct {
	InputTokens  int `json:"inputTokens,omitempty"`
	OutputTokens int `json:"outputTokens,omitempty"`
	TotalTokens  int `json:"totalTokens,omitempty"`
}

// ID returns the generation ID.
func (g *Generation) ID() string {
	return g.id
}

// TraceID returns the owning trace's ID.
func (g *Generation) TraceID() string {
	return g.traceID
}

// Status returns the generation's lifecycle state.
func (g *Generation) Status() Status {
	return g.status
}

func (g *Generation) sendCreate() {
	if !g.client.Enabled() {
		return
	}

	g.client.enqueue(event{
		"type": "generation-create",
		"body": map[string]any{
			"id":                  g.id,
			"traceId":             g.traceID,
			"parentObservationId": g.parentID,
			"name":                g.name,
			"model":               g.model,
			"modelParameters":     g.modelParameters,
			"metadata":            g.metadata,
			"input":               g.input,
			"status":              string(g.status),
			"startTime":           g.startTime.Format(time.RFC3339Nano),
		},
	})
}

// GenerationUpdateOptions holds fields to merge into a generation.
type GenerationUpdateOptions struct {
	Model    string
	Metadata map[string]any
	Input    any
	Output   any
	Usage    *UsageDetails
}

// Update merges the given fields into the generation. Updates after the
// generation is closed are silently ignored.
func (g *Generation) Update(opts GenerationUpdateOptions) {
	if g.ended {
		return
	}

	if opts.Model != "" {
		g.model = opts.Model
	}
	for k, v := range opts.Metadata {
		g.metadata[k] = v
	}
	if opts.Input != nil {
		g.input = opts.Input
	}
	if opts.Output != nil {
		g.output = opts.Output
	}
	if opts.Usage != nil {
		g.usage = opts.Usage
	}
}

// GenerationEndOptions holds options for ending a generation.
type GenerationEndOptions struct {
	Output any
	Usage  *UsageDetails
	Model  string
}

// End closes the generation as succeeded.
func (g *Generation) End(opts *GenerationEndOptions) {
	if opts != nil {
		g.Update(GenerationUpdateOptions{
			Model:  opts.Model,
			Output: opts.Output,
			Usage:  opts.Usage,
		})
	}
	g.close(StatusSucceeded, "")
}

// Fail closes the generation as failed, recording the error message.
func (g *Generation) Fail(err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	g.close(StatusFailed, msg)
}

func (g *Generation) close(status Status, statusMessage string) {
	if g.ended {
		return
	}

	g.ended = true
	g.status = status
	now := time.Now().UTC()
	g.endTime = &now

	if !g.client.Enabled() {
		return
	}

	body := map[string]any{
		"id":      g.id,
		"output":  g.output,
		"model":   g.model,
		"status":  string(g.status),
		"endTime": g.endTime.Format(time.RFC3339Nano),
	}
	if g.usage != nil {
		body["usage"] = map[string]any{
			"inputTokens":  g.usage.InputTokens,
			"outputTokens": g.usage.OutputTokens,
			"totalTokens":  g.usage.TotalTokens,
		}
	}
	if statusMessage != "" {
		body["statusMessage"] = statusMessage
	}

	g.client.enqueue(event{
		"type": "generation-update",
		"body": body,
	})
}
