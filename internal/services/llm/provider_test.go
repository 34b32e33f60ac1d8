package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nestling-app/nestling-api/internal/models"
	"github.com/nestling-app/nestling-api/internal/tracing"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// fakeProvider records the last invocation and returns canned output.
type fakeProvider struct {
	key     string
	model   string
	content string
	err     error

	mu       sync.Mutex
	messages []Message
	cfg      SamplingConfig
	calls    int
}

func (f *fakeProvider) Key() string   { return f.key }
func (f *fakeProvider) Model() string { return f.model }

func (f *fakeProvider) Invoke(_ context.Context, messages []Message, cfg SamplingConfig) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = messages
	f.cfg = cfg
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.content, nil
}

// recordingReporter captures reported runs and signals each arrival.
type recordingReporter struct {
	mu   sync.Mutex
	runs []*tracing.Run
	ch   chan struct{}
}

func newRecordingReporter() *recordingReporter {
	return &recordingReporter{ch: make(chan struct{}, 8)}
}

func (r *recordingReporter) Report(_ context.Context, run *tracing.Run) error {
	r.mu.Lock()
	r.runs = append(r.runs, run)
	r.mu.Unlock()
	r.ch <- struct{}{}
	return nil
}

func (r *recordingReporter) waitForRun(t *testing.T) *tracing.Run {
	t.Helper()
	select {
	case <-r.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for trace report")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs[len(r.runs)-1]
}

func TestRouterInvokeSelectsByKey(t *testing.T) {
	t.Parallel()

	primary := &fakeProvider{key: "openai", model: "gpt-4o-mini", content: "from openai"}
	secondary := &fakeProvider{key: "anthropic", model: "claude-3-5-sonnet-20240620", content: "from anthropic"}

	router := NewRouter("openai", nil, nil)
	router.Register(primary)
	router.Register(secondary)

	content, err := router.Invoke(context.Background(), "anthropic", []Message{
		{Role: models.RoleUser, Content: "hello"},
	}, SamplingConfig{})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if content != "from anthropic" {
		t.Errorf("content = %q, want %q", content, "from anthropic")
	}
	if primary.calls != 0 {
		t.Errorf("default provider called %d times, want 0", primary.calls)
	}
}

func TestRouterInvokeUnknownKeyFallsBack(t *testing.T) {
	t.Parallel()

	fallback := &fakeProvider{key: "openai", model: "gpt-4o-mini", content: "fallback answer"}

	router := NewRouter("openai", nil, nil)
	router.Register(fallback)

	content, err := router.Invoke(context.Background(), "unknown-backend", []Message{
		{Role: models.RoleUser, Content: "hello"},
	}, SamplingConfig{})
	if err != nil {
		t.Fatalf("Invoke() error = %v, want fallback to default backend", err)
	}
	if content != "fallback answer" {
		t.Errorf("content = %q, want %q", content, "fallback answer")
	}
	if fallback.calls != 1 {
		t.Errorf("fallback provider called %d times, want 1", fallback.calls)
	}
}

func TestRouterInvokeEmptyKeyUsesDefaultSilently(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	router := NewRouter("openai", nil, zap.New(core))
	router.Register(&fakeProvider{key: "openai", model: "gpt-4o-mini", content: "ok"})

	messages := []Message{{Role: models.RoleUser, Content: "hello"}}

	// Empty key means "use the default"; no fallback warning.
	if _, err := router.Invoke(context.Background(), "", messages, SamplingConfig{}); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if n := logs.FilterMessage("unknown_provider_falling_back").Len(); n != 0 {
		t.Errorf("empty provider key logged %d fallback warnings, want 0", n)
	}

	// A genuinely unknown key still warns.
	if _, err := router.Invoke(context.Background(), "mystery", messages, SamplingConfig{}); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if n := logs.FilterMessage("unknown_provider_falling_back").Len(); n != 1 {
		t.Errorf("unknown provider key logged %d fallback warnings, want 1", n)
	}
}

func TestRouterInvokeNoProviders(t *testing.T) {
	t.Parallel()

	router := NewRouter("openai", nil, nil)

	_, err := router.Invoke(context.Background(), "openai", nil, SamplingConfig{})
	if err == nil {
		t.Fatal("Invoke() error = nil, want ErrNoProviders")
	}
	if !errors.Is(err, ErrNoProviders) {
		t.Errorf("errors.Is(err, ErrNoProviders) = false, err = %v", err)
	}
	if !IsInvocationError(err) {
		t.Errorf("IsInvocationError(%v) = false, want true", err)
	}
}

func TestRouterInvokeWrapsBackendFailure(t *testing.T) {
	t.Parallel()

	backendErr := errors.New("connection refused")
	failing := &fakeProvider{key: "openai", model: "gpt-4o-mini", err: backendErr}
	reporter := newRecordingReporter()

	router := NewRouter("openai", reporter, nil)
	router.Register(failing)

	_, err := router.Invoke(context.Background(), "openai", []Message{
		{Role: models.RoleUser, Content: "hello"},
	}, SamplingConfig{})
	if err == nil {
		t.Fatal("Invoke() error = nil, want wrapped backend failure")
	}
	if !errors.Is(err, backendErr) {
		t.Errorf("errors.Is(err, backendErr) = false, err = %v", err)
	}
	var ie *InvocationError
	if !errors.As(err, &ie) {
		t.Fatalf("error is not *InvocationError: %v", err)
	}
	if ie.ProviderKey != "openai" {
		t.Errorf("ProviderKey = %q, want %q", ie.ProviderKey, "openai")
	}
	if failing.calls != 1 {
		t.Errorf("provider called %d times, want exactly 1 (no retries)", failing.calls)
	}

	run := reporter.waitForRun(t)
	if run.Error == "" {
		t.Error("trace run Error is empty, want backend failure recorded")
	}
}

func TestRouterInvokePassesSamplingConfigThrough(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{key: "openai", model: "gpt-4o-mini", content: "ok"}
	router := NewRouter("openai", nil, nil)
	router.Register(provider)

	cfg := SamplingConfig{Temperature: Float64(0), MaxTokens: Int64(256)}
	if _, err := router.Invoke(context.Background(), "openai", nil, cfg); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	if provider.cfg.Temperature == nil || *provider.cfg.Temperature != 0 {
		t.Errorf("Temperature = %v, want 0", provider.cfg.Temperature)
	}
	if provider.cfg.MaxTokens == nil || *provider.cfg.MaxTokens != 256 {
		t.Errorf("MaxTokens = %v, want 256", provider.cfg.MaxTokens)
	}
}

func TestRouterInvokeReportsTrace(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{key: "anthropic", model: "claude-3-5-sonnet-20240620", content: "traced output"}
	reporter := newRecordingReporter()

	router := NewRouter("anthropic", reporter, nil)
	router.Register(provider)

	messages := []Message{
		{Role: models.RoleSystem, Content: "context"},
		{Role: models.RoleUser, Content: "question"},
	}
	if _, err := router.Invoke(context.Background(), "anthropic", messages, SamplingConfig{}); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	run := reporter.waitForRun(t)
	if run.ProviderKey != "anthropic" {
		t.Errorf("ProviderKey = %q, want %q", run.ProviderKey, "anthropic")
	}
	if run.Model != "claude-3-5-sonnet-20240620" {
		t.Errorf("Model = %q, want %q", run.Model, "claude-3-5-sonnet-20240620")
	}
	if run.MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", run.MessageCount)
	}
	if run.OutputPreview != "traced output" {
		t.Errorf("OutputPreview = %q, want %q", run.OutputPreview, "traced output")
	}
}

func TestFlattenParts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{"empty", nil, ""},
		{"single", []string{"hello"}, "hello"},
		{"two parts", []string{"hello", "world"}, "hello world"},
		{"preserves order", []string{"c", "a", "b"}, "c a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := FlattenParts(tt.parts); got != tt.want {
				t.Errorf("FlattenParts(%v) = %q, want %q", tt.parts, got, tt.want)
			}
		})
	}
}
