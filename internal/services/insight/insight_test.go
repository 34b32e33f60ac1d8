package insight

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nestling-app/nestling-api/internal/database"
	"github.com/nestling-app/nestling-api/internal/models"
	"github.com/nestling-app/nestling-api/internal/prompt"
	"github.com/nestling-app/nestling-api/internal/services/llm"
	"github.com/nestling-app/nestling-api/internal/timeutil"
)

type fakeProfileRepo struct {
	profiles map[uuid.UUID]*models.Profile
}

func (f *fakeProfileRepo) Create(_ context.Context, p *models.Profile) error {
	f.profiles[p.ID] = p
	return nil
}

func (f *fakeProfileRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfileRepo) Update(_ context.Context, p *models.Profile) error {
	f.profiles[p.ID] = p
	return nil
}

type fakeEventRepo struct {
	events []*models.Event
}

func (f *fakeEventRepo) Create(_ context.Context, e *models.Event) error {
	f.events = append(f.events, e)
	return nil
}

func (f *fakeEventRepo) GetByID(_ context.Context, _ uuid.UUID) (*models.Event, error) {
	return nil, database.ErrNotFound
}

func (f *fakeEventRepo) ListByProfile(_ context.Context, profileID uuid.UUID, kind *models.EventKind, _ int) ([]*models.Event, error) {
	var out []*models.Event
	for _, e := range f.events {
		if e.ProfileID != profileID {
			continue
		}
		if kind != nil && e.Kind != *kind {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeEventRepo) Update(_ context.Context, _ *models.Event) error { return nil }
func (f *fakeEventRepo) SoftDelete(_ context.Context, _ uuid.UUID) error { return nil }

type fakeInvoker struct {
	mu          sync.Mutex
	reply       string
	err         error
	providerKey string
	messages    []llm.Message
	cfg         llm.SamplingConfig
}

func (f *fakeInvoker) Invoke(_ context.Context, providerKey string, messages []llm.Message, cfg llm.SamplingConfig) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.providerKey = providerKey
	f.messages = messages
	f.cfg = cfg
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestService(invoker *fakeInvoker) (*Service, uuid.UUID) {
	profileID := uuid.New()
	profiles := &fakeProfileRepo{profiles: map[uuid.UUID]*models.Profile{
		profileID: {ID: profileID, SubjectName: "Mia", SubjectWeightKg: 3.5},
	}}
	events := &fakeEventRepo{events: []*models.Event{
		{ID: uuid.New(), ProfileID: profileID, Kind: models.EventKindFeed, Quantity: 80, OccurredAt: time.Now().Add(-2 * time.Hour)},
		{ID: uuid.New(), ProfileID: profileID, Kind: models.EventKindWet, OccurredAt: time.Now().Add(-time.Hour)},
	}}
	return NewService(profiles, events, prompt.NewRenderer(), invoker, nil), profileID
}

func TestComputeSendsTwoMessageExchange(t *testing.T) {
	t.Parallel()

	invoker := &fakeInvoker{reply: "**Feed again around 6PM.**"}
	svc, profileID := newTestService(invoker)

	result, err := svc.Compute(context.Background(), profileID, "anthropic", "America/New_York", time.Now())
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if result.Insights != "**Feed again around 6PM.**" {
		t.Errorf("Insights = %q", result.Insights)
	}
	if invoker.providerKey != "anthropic" {
		t.Errorf("providerKey = %q, want anthropic", invoker.providerKey)
	}
	if len(invoker.messages) != 2 {
		t.Fatalf("invoker saw %d messages, want 2", len(invoker.messages))
	}
	if invoker.messages[0].Role != models.RoleSystem || invoker.messages[1].Role != models.RoleUser {
		t.Errorf("message roles = %q, %q; want system, user", invoker.messages[0].Role, invoker.messages[1].Role)
	}
	if invoker.cfg.Temperature == nil || *invoker.cfg.Temperature != 0 {
		t.Errorf("Temperature = %v, want 0", invoker.cfg.Temperature)
	}
}

func TestComputeResultEchoesPrompts(t *testing.T) {
	t.Parallel()

	invoker := &fakeInvoker{reply: "ok"}
	svc, profileID := newTestService(invoker)

	result, err := svc.Compute(context.Background(), profileID, "openai", "America/New_York", time.Now())
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if result.SystemContext != invoker.messages[0].Content {
		t.Error("SystemContext does not match the system message sent to the backend")
	}
	if result.UserInstruction != invoker.messages[1].Content {
		t.Error("UserInstruction does not match the user message sent to the backend")
	}
	if !strings.Contains(result.SystemContext, "[BABY NAME]: Mia") {
		t.Errorf("SystemContext missing profile data")
	}
	// Only feed events enter the activity table.
	if strings.Count(result.SystemContext, " mL | ") != 1 {
		t.Errorf("expected exactly one activity row, got system context:\n%s", result.SystemContext)
	}
}

func TestComputeDefaultsTimezone(t *testing.T) {
	t.Parallel()

	invoker := &fakeInvoker{reply: "ok"}
	svc, profileID := newTestService(invoker)

	result, err := svc.Compute(context.Background(), profileID, "openai", "", time.Now())
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if !strings.Contains(result.SystemContext, "[USER TIMEZONE]: "+timeutil.DefaultZone) {
		t.Errorf("SystemContext missing default timezone, got:\n%s", result.SystemContext)
	}
}

func TestComputeBackendFailure(t *testing.T) {
	t.Parallel()

	backendErr := errors.New("quota exceeded")
	invoker := &fakeInvoker{err: backendErr}
	svc, profileID := newTestService(invoker)

	_, err := svc.Compute(context.Background(), profileID, "openai", "America/New_York", time.Now())
	if !errors.Is(err, backendErr) {
		t.Errorf("Compute() error = %v, want backend failure", err)
	}
}

func TestComputeUnknownProfile(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(&fakeInvoker{reply: "ok"})

	_, err := svc.Compute(context.Background(), uuid.New(), "openai", "America/New_York", time.Now())
	if !errors.Is(err, database.ErrNotFound) {
		t.Errorf("Compute() error = %v, want ErrNotFound", err)
	}
}
