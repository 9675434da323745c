package specialist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Chative-Loan-Origination/agent/contract"
	promptx "github.com/tanpawarit/Chative-Loan-Origination/agent/prompt"
	"github.com/tanpawarit/Chative-Loan-Origination/agent/reference"
	statex "github.com/tanpawarit/Chative-Loan-Origination/agent/state"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type scriptedCompleter struct {
	mu      sync.Mutex
	replies []contractx.Completion
	calls   []contractx.GenerateRequest
}

func (c *scriptedCompleter) Complete(_ context.Context, req contractx.GenerateRequest) contractx.Completion {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, req)
	if len(c.replies) == 0 {
		return contractx.Completion{Text: "Happy to help."}
	}
	out := c.replies[0]
	c.replies = c.replies[1:]
	return out
}

func (c *scriptedCompleter) said(texts ...string) *scriptedCompleter {
	for _, t := range texts {
		c.replies = append(c.replies, contractx.Completion{Text: t})
	}
	return c
}

func (c *scriptedCompleter) degraded() *scriptedCompleter {
	c.replies = append(c.replies, contractx.Completion{Text: "sorry", Degraded: true})
	return c
}

type countingExporter struct {
	mu      sync.Mutex
	letters []Letter
	err     error
}

func (e *countingExporter) Export(_ context.Context, l Letter) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return "", e.err
	}
	e.letters = append(e.letters, l)
	return "/download/letter.txt", nil
}

type recordingPublisher struct {
	events []contractx.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev contractx.Event) error {
	p.events = append(p.events, ev)
	return p.err
}

type failingStore struct{ statex.Store }

func (failingStore) Save(context.Context, *statex.Session) error {
	return errors.New("disk full")
}

type fixture struct {
	store     *statex.MemoryStore
	llm       *scriptedCompleter
	exporter  *countingExporter
	publisher *recordingPublisher
	registry  contractx.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     statex.NewMemoryStore(),
		llm:       &scriptedCompleter{},
		exporter:  &countingExporter{},
		publisher: &recordingPublisher{},
	}
	reg, err := NewRegistry(Deps{
		Store:     f.store,
		Completer: f.llm,
		Reference: reference.Default(),
		Exporter:  f.exporter,
		Publisher: f.publisher,
		Prompts:   promptx.LoadPromptSet(),
		Now:       func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	f.registry = reg
	return f
}

func (f *fixture) seed(t *testing.T, mutate func(*statex.Session)) {
	t.Helper()
	st := statex.NewSession("sess-0001-abcd", testNow)
	mutate(st)
	if err := f.store.Save(context.Background(), st); err != nil {
		t.Fatalf("seed Save() error = %v", err)
	}
}

func (f *fixture) handle(t *testing.T, role statex.Role, msg string) contractx.TurnResult {
	t.Helper()
	return f.handleTurn(t, role, contractx.Turn{SessionID: "sess-0001-abcd", Message: msg, Now: testNow})
}

func (f *fixture) handoffTurn(t *testing.T, role statex.Role) contractx.TurnResult {
	t.Helper()
	return f.handleTurn(t, role, contractx.Turn{
		SessionID:   "sess-0001-abcd",
		Message:     contractx.HandoffMessage(role),
		FromHandoff: true,
		Now:         testNow,
	})
}

func (f *fixture) handleTurn(t *testing.T, role statex.Role, turn contractx.Turn) contractx.TurnResult {
	t.Helper()
	h, err := f.registry.Handler(role)
	if err != nil {
		t.Fatalf("Handler(%s) error = %v", role, err)
	}
	out, err := h.Handle(context.Background(), turn)
	if err != nil {
		t.Fatalf("Handle(%s) error = %v", role, err)
	}
	return out
}

func (f *fixture) session(t *testing.T) *statex.Session {
	t.Helper()
	st, err := statex.GetOrCreate(context.Background(), f.store, "sess-0001-abcd", testNow)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	return st
}

func expectHandoff(t *testing.T, out contractx.TurnResult, from, to statex.Role) {
	t.Helper()
	if out.Handoff == nil {
		t.Fatalf("expected handoff %s->%s, got none (reply %q)", from, to, out.Reply)
	}
	if out.Handoff.From != from || out.Handoff.To != to {
		t.Fatalf("handoff = %+v, want %s->%s", out.Handoff, from, to)
	}
}

func expectNoHandoff(t *testing.T, out contractx.TurnResult) {
	t.Helper()
	if out.Handoff != nil {
		t.Fatalf("unexpected handoff %+v (reply %q)", out.Handoff, out.Reply)
	}
}
