package storytrace

import (
	"time"

	"github.com/google/uuid"
)

// Trace is the root record of one top-level workflow invocation. All
// observations created within the invocation reference it through their
// parent chain. A trace becomes immutable once ended.
type Trace struct {
	client    *Client
	id        string
	name      string
	userID    string
	sessionID string
	metadata  map[string]any
	tags      []string
	input     any
	output    any
	startTime time.Time
	endTime   *time.Time
	ended     bool
}

// TraceOptions holds options for creating a trace.
type TraceOptions struct {
	Name      string
	ID        string
	UserID    string
	SessionID string
	Metadata  map[string]any
	Tags      []string
	Input     any
}

// ID returns the trace ID.
func (t *Trace) ID() string {
	return t.id
}

// Name returns the trace name.
func (t *Trace) Name() string {
	return t.name
}

// Ended reports whether the trace has been closed.
func (t *Trace) Ended() bool {
	return t.ended
}

func (t *Trace) sendCreate() {
	if !t.client.Enabled() {
		return
	}

	t.client.enqueue(event{
		"type": "trace-create",
		"body": map[string]any{
			"id":        t.id,
			"name":      t.name,
			"userId":    t.userID,
			"sessionId": t.sessionID,
			"metadata":  t.metadata,
			"tags":      t.tags,
			"input":     t.input,
			"timestamp": t.startTime.Format(time.RFC3339Nano),
		},
	})
}

// Span creates a span observation under this trace.
func (t *Trace) Span(opts SpanOptions) *Span {
	if opts.ID == "" {
		opts.ID = uuid.New().String()
	}

	s := &Span{
		client:    t.client,
		traceID:   t.id,
		id:        opts.ID,
		name:      opts.Name,
		parentID:  opts.ParentObservationID,
		metadata:  opts.Metadata,
		input:     opts.Input,
		status:    StatusRunning,
		startTime: time.Now().UTC(),
	}
	if s.metadata == nil {
		s.metadata = make(map[string]any)
	}

	s.sendCreate()
	return s
}

// Generation creates a generation observation (one model call) under
// this trace.
func (t *Trace) Generation(opts GenerationOptions) *Generation {
	if opts.ID == "" {
		opts.ID = uuid.New().String()
	}

	g := &Generation{
		client:          t.client,
		traceID:         t.id,
		id:              opts.ID,
		name:            opts.Name,
		parentID:        opts.ParentObservationID,
		model:           opts.Model,
		modelParameters: opts.ModelParameters,
		metadata:        opts.Metadata,
		input:           opts.Input,
		status:          StatusRunning,
		startTime:       time.Now().UTC(),
	}
	if g.metadata == nil {
		g.metadata = make(map[string]any)
	}
	if g.modelParameters == nil {
		g.modelParameters = make(map[string]any)
	}

	g.sendCreate()
	return g
}

// TraceUpdateOptions holds fields to merge into a trace. Metadata keys
// are merged (existing keys overwritten), tags are unioned, everything
// else is last-write-wins.
type TraceUpdateOptions struct {
	Name      *string
	UserID    *string
	SessionID *string
	Metadata  map[string]any
	Tags      []string
	Input     any
	Output    any
}

// Update merges the given fields into the trace. Updates after End are
// silently ignored.
func (t *Trace) Update(opts TraceUpdateOptions) {
	if t.ended {
		return
	}

	if opts.Name != nil {
		t.name = *opts.Name
	}
	if opts.UserID != nil {
		t.userID = *opts.UserID
	}
	if opts.SessionID != nil {
		t.sessionID = *opts.SessionID
	}
	for k, v := range opts.Metadata {
		t.metadata[k] = v
	}
	if len(opts.Tags) > 0 {
		t.tags = unionTags(t.tags, opts.Tags)
	}
	if opts.Input != nil {
		t.input = opts.Input
	}
	if opts.Output != nil {
		t.output = opts.Output
	}

	if t.client.Enabled() {
		t.client.enqueue(event{
			"type": "trace-update",
			"body": map[string]any{
				"id":        t.id,
				"name":      t.name,
				"userId":    t.userID,
				"sessionId": t.sessionID,
				"metadata":  t.metadata,
				"tags":      t.tags,
				"input":     t.input,
				"output":    t.output,
			},
		})
	}
}

// TraceEndOptions holds options for ending a trace.
type TraceEndOptions struct {
	Output any
}

// End closes the trace. Subsequent End and Update calls are no-ops.
func (t *Trace) End(opts *TraceEndOptions) {
	if t.ended {
		return
	}

	if opts != nil && opts.Output != nil {
		t.output = opts.Output
	}

	now := time.Now().UTC()
	t.endTime = &now

	t.Update(TraceUpdateOptions{Output: t.output})
	t.ended = true
}

// Score attaches a score to this trace.
func (t *Trace) Score(name string, value any, opts *ScoreAddOptions) {
	so := ScoreOptions{
		TraceID: t.id,
		Name:    name,
		Value:   value,
	}
	if opts != nil {
		so.DataType = opts.DataType
		so.Comment = opts.Comment
	}
	t.client.Score(so)
}

// ScoreAddOptions holds additional options for attaching a score.
type ScoreAddOptions struct {
	DataType string
	Comment  string
}

// unionTags appends the tags from add that set does not already contain,
// preserving first-seen order.
func unionTags(set, add []string) []string {
	seen := make(map[string]struct{}, len(set))
	for _, tag := range set {
		seen[tag] = struct{}{}
	}
	for _, tag := range add {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		set = append(set, tag)
	}
	return set
}
