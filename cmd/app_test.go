package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Chative-Loan-Origination/agent/contract"
	"github.com/tanpawarit/Chative-Loan-Origination/agent/llm"
	statex "github.com/tanpawarit/Chative-Loan-Origination/agent/state"
)

func TestWireOfflineApp(t *testing.T) {
	t.Parallel()

	app := &App{Config: AppConfig{
		StateBackend:   StoreMemory,
		ArtifactDir:    t.TempDir(),
		DownloadPrefix: "/download/",
	}}
	store := statex.NewMemoryStore()
	app, err := wire(context.Background(), app, store, llm.Config{Backend: llm.BackendOffline, Timeout: time.Second}, nil)
	if err != nil {
		t.Fatalf("wire() error = %v", err)
	}

	out, err := app.Orchestrator.HandleMessage(context.Background(), "cli-1", "Hi, I need a personal loan")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if out.AgentName != statex.RoleSales {
		t.Fatalf("AgentName = %q, want SALES", out.AgentName)
	}
	if _, ok := app.Catalog.Customer("CUST001"); !ok {
		t.Fatal("default reference data must be loaded")
	}
}

func TestWireRejectsUnconfiguredModel(t *testing.T) {
	t.Parallel()

	app := &App{Config: AppConfig{ArtifactDir: t.TempDir()}}
	_, err := wire(context.Background(), app, statex.NewMemoryStore(), llm.Config{Backend: llm.BackendEino}, nil)
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestNewStoreUnknownBackend(t *testing.T) {
	t.Parallel()

	_, err := newStore(context.Background(), &App{Config: AppConfig{StateBackend: "cassandra"}})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

type echoRunner struct{ seen []string }

func (e *echoRunner) HandleMessage(_ context.Context, sessionID, text string) (contractx.TurnOutput, error) {
	e.seen = append(e.seen, text)
	if text == "fail" {
		return contractx.TurnOutput{}, errors.New("boom")
	}
	return contractx.TurnOutput{SessionID: sessionID, AgentName: statex.RoleGreeting, Message: "re: " + text}, nil
}

func TestChatLoop(t *testing.T) {
	t.Parallel()

	runner := &echoRunner{}
	in := strings.NewReader("hello\n\nfail\nexit\nignored\n")
	var out bytes.Buffer
	if err := chatLoop(context.Background(), runner, "s1", in, &out); err != nil {
		t.Fatalf("chatLoop() error = %v", err)
	}

	if len(runner.seen) != 2 {
		t.Fatalf("seen = %v, want hello and fail only", runner.seen)
	}
	got := out.String()
	if !strings.Contains(got, "greeting> re: hello") || !strings.Contains(got, "error: boom") {
		t.Fatalf("unexpected transcript:\n%s", got)
	}
}
