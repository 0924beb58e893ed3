package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"shoptools/internal/audit"
	"shoptools/internal/policy"
	"shoptools/internal/ratelimit"
	"shoptools/internal/shopify"
	"shoptools/pkg/middleware"
)

var ErrUnknownTool = errors.New("unknown tool")

// BlockedError is returned when the policy guard refuses a call.
type BlockedError struct {
	Decision policy.Decision
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("%s: blocked by policy (%s)", e.Decision.Tool, e.Decision.Status)
}

// RateLimitedError is returned when the caller exhausted its window.
type RateLimitedError struct {
	Tool       string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: rate limited, retry after %s", e.Tool, e.RetryAfter)
}

// Registry dispatches calls to tools. It is immutable after NewRegistry.
type Registry struct {
	store    Store
	tools    map[string]Tool
	order    []string
	validate *validatorv10.Validate
	guard    *policy.Guard
	limiter  ratelimit.Limiter
	audit    audit.Recorder
	log      *zap.SugaredLogger
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

type Option func(*Registry)

func WithPolicy(g *policy.Guard) Option { return func(r *Registry) { r.guard = g } }

func WithLimiter(l ratelimit.Limiter) Option { return func(r *Registry) { r.limiter = l } }

func WithAudit(a audit.Recorder) Option { return func(r *Registry) { r.audit = a } }

func WithLogger(log *zap.SugaredLogger) Option {
	return func(r *Registry) { r.log = log.Named("tools") }
}

// WithRegisterer registers the tool call metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(r *Registry) { reg.MustRegister(r.calls, r.duration) }
}

func NewRegistry(store Store, tools []Tool, opts ...Option) (*Registry, error) {
	r := &Registry{
		store:    store,
		tools:    make(map[string]Tool, len(tools)),
		validate: newValidator(),
		limiter:  ratelimit.New(nil, 0, nil),
		audit:    audit.Nop{},
		log:      zap.NewNop().Sugar(),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shoptools_tool_calls_total",
			Help: "Tool calls by outcome.",
		}, []string{"tool", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shoptools_tool_call_duration_seconds",
			Help:    "Tool call latency including remote calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
	}
	for _, t := range tools {
		if _, dup := r.tools[t.Name]; dup {
			return nil, fmt.Errorf("tools: duplicate tool %q", t.Name)
		}
		r.tools[t.Name] = t
		r.order = append(r.order, t.Name)
	}
	for _, o := range opts {
		o(r)
	}
	if r.guard == nil {
		r.guard = policy.AllowAll(r.log)
	}
	return r, nil
}

// Tools lists the registered tools in registration order.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, len(r.order))
	for i, n := range r.order {
		out[i] = r.tools[n]
	}
	return out
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Call binds args, consults the policy guard and the rate limiter, runs the
// tool and records the outcome.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (Result, error) {
	t, ok := r.tools[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	start := time.Now()
	actor := middleware.ActorSub(ctx)
	ev := audit.Event{
		Tool:      name,
		Actor:     actor,
		RequestID: middleware.RequestIDFrom(ctx),
		Mutates:   t.Mutates,
		StartedAt: start,
	}

	res, err := r.call(ctx, t, actor, args, &ev)

	ev.FinishedAt = time.Now()
	ev.Outcome = outcome(err)
	if k := shopify.KindOf(err); k != 0 {
		ev.ErrorKind = k.String()
	}
	if aerr := r.audit.Record(context.WithoutCancel(ctx), ev); aerr != nil {
		r.log.Warnw("audit record failed", "tool", name, "err", aerr)
	}
	r.calls.WithLabelValues(name, ev.Outcome).Inc()
	r.duration.WithLabelValues(name).Observe(ev.FinishedAt.Sub(start).Seconds())

	fields := []any{"tool", name, "actor", actor, "outcome", ev.Outcome, "duration_ms", ev.FinishedAt.Sub(start).Milliseconds()}
	if err != nil {
		fields = append(fields, "error_kind", ev.ErrorKind, "err", err)
		r.log.Warnw("tool call failed", fields...)
	} else {
		r.log.Infow("tool call", fields...)
	}
	return res, err
}

func (r *Registry) call(ctx context.Context, t Tool, actor string, raw json.RawMessage, ev *audit.Event) (Result, error) {
	in, err := t.bind(r.validate, raw)
	if err != nil {
		return Result{}, err
	}
	ev.Args = argsMap(in)

	dec := r.guard.Evaluate(ctx, policy.Input{Tool: t.Name, Actor: actor, Mutates: t.Mutates, Inputs: ev.Args})
	if !dec.Permitted() {
		return Result{}, &BlockedError{Decision: dec}
	}

	key := actor
	if key == "" {
		key = "anonymous"
	}
	lim, err := r.limiter.Allow(ctx, key)
	if err != nil {
		return Result{}, err
	}
	if !lim.Allowed {
		return Result{}, &RateLimitedError{Tool: t.Name, RetryAfter: lim.RetryAfter}
	}

	return t.run(ctx, r.store, in)
}

func argsMap(in any) map[string]any {
	b, err := json.Marshal(in)
	if err != nil {
		return nil
	}
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

func outcome(err error) string {
	var (
		inv     *InvalidArgsError
		blocked *BlockedError
		limited *RateLimitedError
	)
	switch {
	case err == nil:
		return audit.OutcomeOK
	case errors.As(err, &inv):
		return audit.OutcomeInvalid
	case errors.As(err, &blocked):
		return audit.OutcomeBlocked
	case errors.As(err, &limited):
		return audit.OutcomeRateLimited
	default:
		return audit.OutcomeError
	}
}
