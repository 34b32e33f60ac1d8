// Package llm routes chat invocations across heterogeneous model backends
// behind one uniform contract.
package llm

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nestling-app/nestling-api/internal/models"
	"github.com/nestling-app/nestling-api/internal/tracing"
	"go.uber.org/zap"
)

// Message is one generic conversation turn, translated into each backend's
// native representation at the router boundary.
type Message struct {
	Role    models.Role `json:"role"`
	Content string      `json:"content"`
}

// SamplingConfig carries the temperature and max-token knobs. Nil fields mean
// "use the backend default". Backends pass supported knobs through unchanged
// and silently ignore the rest.
type SamplingConfig struct {
	Temperature *float64
	MaxTokens   *int64
}

// Float64 returns a pointer to v, for building SamplingConfig literals.
func Float64(v float64) *float64 { return &v }

// Int64 returns a pointer to v, for building SamplingConfig literals.
func Int64(v int64) *int64 { return &v }

// Provider is one model backend reachable through the router.
type Provider interface {
	// Key is the runtime selector for this backend, e.g. "openai".
	Key() string
	// Model is the configured model identifier, for trace records.
	Model() string
	// Invoke sends the ordered turn history and returns the flattened
	// response content.
	Invoke(ctx context.Context, messages []Message, cfg SamplingConfig) (string, error)
}

// FlattenParts joins multi-part response content into a single string with
// one space between parts, preserving part order. Backends that already
// return a single string pass it through untouched.
func FlattenParts(parts []string) string {
	return strings.Join(parts, " ")
}

// Router selects a backend by key and reports every invocation to the trace
// collaborator, best-effort.
type Router struct {
	mu         sync.RWMutex
	providers  map[string]Provider
	defaultKey string
	reporter   tracing.Reporter
	logger     *zap.Logger
}

// NewRouter creates a router that falls back to defaultKey for unknown
// provider keys.
func NewRouter(defaultKey string, reporter tracing.Reporter, logger *zap.Logger) *Router {
	if reporter == nil {
		reporter = tracing.NopReporter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		providers:  make(map[string]Provider),
		defaultKey: defaultKey,
		reporter:   reporter,
		logger:     logger,
	}
}

// Register adds a backend to the router.
func (r *Router) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Key()] = p
}

// DefaultKey returns the documented fallback backend key.
func (r *Router) DefaultKey() string {
	return r.defaultKey
}

func (r *Router) resolve(key string) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.providers[key]; ok {
		return p
	}
	return r.providers[r.defaultKey]
}

// Invoke sends the message history to the backend selected by providerKey,
// falling back to the default backend when the key is unknown. Failures
// surface as *InvocationError; the router never retries. The trace report is
// dispatched after the result is known and is not awaited.
func (r *Router) Invoke(ctx context.Context, providerKey string, messages []Message, cfg SamplingConfig) (string, error) {
	p := r.resolve(providerKey)
	if p == nil {
		return "", &InvocationError{ProviderKey: providerKey, Err: ErrNoProviders}
	}
	if providerKey != "" && p.Key() != providerKey {
		r.logger.Warn("unknown_provider_falling_back",
			zap.String("requested", providerKey),
			zap.String("fallback", p.Key()),
		)
	}

	start := time.Now()
	content, err := p.Invoke(ctx, messages, cfg)
	latency := time.Since(start)

	run := &tracing.Run{
		ID:            uuid.New(),
		ProviderKey:   p.Key(),
		Model:         p.Model(),
		MessageCount:  len(messages),
		OutputPreview: TruncateString(content, MaxPreviewLength),
		LatencyMS:     latency.Milliseconds(),
		StartedAt:     start,
	}
	if err != nil {
		run.Error = err.Error()
	}
	go r.report(run)

	if err != nil {
		return "", &InvocationError{ProviderKey: p.Key(), Err: err}
	}
	return content, nil
}

// report delivers a run record in the background. Errors are logged and
// discarded; the main control flow never depends on the outcome.
func (r *Router) report(run *Run) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.reporter.Report(ctx, run); err != nil {
		r.logger.Debug("trace_report_failed",
			zap.String("provider", run.ProviderKey),
			zap.Error(err),
		)
	}
}

// Run aliases the tracing run record for callers that only import llm.
type Run = tracing.Run
