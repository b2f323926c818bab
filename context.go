package storytrace

import (
	"context"
	"sync"
)

type contextKey int

const (
	traceKey contextKey = iota
	observationKey
)

var (
	globalClient *Client
	globalMu     sync.RWMutex
)

// SetGlobalClient sets the process-wide default client. New does this
// automatically; tests and multi-client setups may override it.
func SetGlobalClient(c *Client) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalClient = c
}

// GetGlobalClient returns the process-wide default client, or nil.
func GetGlobalClient() *Client {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalClient
}

// observation is the common surface of Span and Generation needed by the
// context-level update helpers.
type observation interface {
	ID() string
	applyUpdate(opts SpanUpdateOptions)
}

func (s *Span) applyUpdate(opts SpanUpdateOptions) {
	s.Update(opts)
}

func (g *Generation) applyUpdate(opts SpanUpdateOptions) {
	g.Update(GenerationUpdateOptions{
		Metadata: opts.Metadata,
		Input:    opts.Input,
		Output:   opts.Output,
	})
	if opts.Name != nil && !g.ended {
		g.name = *opts.Name
	}
}

// WithTrace returns a context carrying the trace. Each call chain owns
// its own trace/observation pointers through the context it passes down,
// so concurrent top-level invocations never share state.
func WithTrace(ctx context.Context, t *Trace) context.Context {
	return context.WithValue(ctx, traceKey, t)
}

// CurrentTrace returns the trace carried by the context, or nil.
func CurrentTrace(ctx context.Context) *Trace {
	if t, ok := ctx.Value(traceKey).(*Trace); ok {
		return t
	}
	return nil
}

// WithSpan returns a context carrying the span as current observation.
func WithSpan(ctx context.Context, s *Span) context.Context {
	return context.WithValue(ctx, observationKey, observation(s))
}

// WithGeneration returns a context carrying the generation as current
// observation.
func WithGeneration(ctx context.Context, g *Generation) context.Context {
	return context.WithValue(ctx, observationKey, observation(g))
}

// CurrentSpan returns the current observation if it is a span, or nil.
func CurrentSpan(ctx context.Context) *Span {
	if s, ok := ctx.Value(observationKey).(*Span); ok {
		return s
	}
	return nil
}

// CurrentGeneration returns the current observation if it is a
// generation, or nil.
func CurrentGeneration(ctx context.Context) *Generation {
	if g, ok := ctx.Value(observationKey).(*Generation); ok {
		return g
	}
	return nil
}

func currentObservation(ctx context.Context) observation {
	if o, ok := ctx.Value(observationKey).(observation); ok {
		return o
	}
	return nil
}

// currentParentID resolves the parent for a new observation: the current
// observation if one is open, otherwise "" for a child of the trace root.
func currentParentID(ctx context.Context) string {
	if o := currentObservation(ctx); o != nil {
		return o.ID()
	}
	return ""
}

// StartTrace creates a trace on the global client and returns it together
// with a context carrying it. Returns (nil, ctx) when no client is
// configured; all downstream instrumentation then degrades to no-ops.
func StartTrace(ctx context.Context, opts TraceOptions) (*Trace, context.Context) {
	client := GetGlobalClient()
	if client == nil {
		return nil, ctx
	}

	t := client.Trace(ctx, opts)
	return t, WithTrace(ctx, t)
}

// StartSpan opens a span under the current trace, parented to the current
// observation. Returns (nil, ctx) when no trace is in the context.
func StartSpan(ctx context.Context, opts SpanOptions) (*Span, context.Context) {
	t := CurrentTrace(ctx)
	if t == nil {
		return nil, ctx
	}

	if opts.ParentObservationID == "" {
		opts.ParentObservationID = currentParentID(ctx)
	}

	s := t.Span(opts)
	return s, WithSpan(ctx, s)
}

// StartGeneration opens a generation under the current trace, parented to
// the current observation. Returns (nil, ctx) when no trace is in the
// context.
func StartGeneration(ctx context.Context, opts GenerationOptions) (*Generation, context.Context) {
	t := CurrentTrace(ctx)
	if t == nil {
		return nil, ctx
	}

	if opts.ParentObservationID == "" {
		opts.ParentObservationID = currentParentID(ctx)
	}

	g := t.Generation(opts)
	return g, WithGeneration(ctx, g)
}

// Observe runs fn inside a span named name: the span opens on entry,
// becomes the current observation for fn's context, and is closed on
// every return path. A nil error closes it succeeded; a non-nil error
// closes it failed and is returned to the caller unchanged — the harness
// never swallows or rewrites failures. The caller's own context is
// untouched, so its current observation is restored simply by fn
// returning. When no trace is in the context, fn runs uninstrumented.
func Observe(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	span, spanCtx := StartSpan(ctx, SpanOptions{Name: name})
	if span == nil {
		return fn(ctx)
	}

	if err := fn(spanCtx); err != nil {
		span.Fail(err)
		return err
	}

	span.End(nil)
	return nil
}

// ObserveGeneration runs fn inside a generation observation with the same
// guarantees as Observe. fn receives the generation so it can record
// output, usage, and model before returning; if fn ends the generation
// itself the guard's closing call is a no-op.
func ObserveGeneration(ctx context.Context, opts GenerationOptions, fn func(ctx context.Context, gen *Generation) error) error {
	gen, genCtx := StartGeneration(ctx, opts)
	if gen == nil {
		return fn(ctx, nil)
	}

	if err := fn(genCtx, gen); err != nil {
		gen.Fail(err)
		return err
	}

	gen.End(nil)
	return nil
}

// UpdateCurrentTrace merges the given fields into the context's trace.
// With no trace in the context this is a silent no-op: instrumentation
// must never crash or alter the primary workload.
func UpdateCurrentTrace(ctx context.Context, opts TraceUpdateOptions) {
	t := CurrentTrace(ctx)
	if t == nil {
		return
	}
	t.Update(opts)
}

// UpdateCurrentSpan merges the given fields into the context's current
// observation (span or generation). With no observation in the context
// this is a silent no-op.
func UpdateCurrentSpan(ctx context.Context, opts SpanUpdateOptions) {
	o := currentObservation(ctx)
	if o == nil {
		return
	}
	o.applyUpdate(opts)
}
