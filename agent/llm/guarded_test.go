package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Chative-Loan-Origination/agent/contract"
	statex "github.com/tanpawarit/Chative-Loan-Origination/agent/state"
)

type fakeGenerator struct {
	text  string
	err   error
	delay time.Duration
	last  contractx.GenerateRequest
}

func (f *fakeGenerator) Generate(ctx context.Context, req contractx.GenerateRequest) (string, error) {
	f.last = req
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.text, f.err
}

func TestGuardedPassesThrough(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{text: "hello"}
	out := NewGuarded(gen, time.Second).Complete(context.Background(), contractx.GenerateRequest{Role: statex.RoleGreeting, Input: "hi"})

	if out.Degraded || out.Text != "hello" {
		t.Fatalf("Complete() = %+v", out)
	}
	if gen.last.Input != "hi" {
		t.Fatalf("request not forwarded: %+v", gen.last)
	}
}

func TestGuardedDegrades(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		gen  contractx.TextGenerator
	}{
		{name: "error", gen: &fakeGenerator{err: errors.New("boom")}},
		{name: "empty", gen: &fakeGenerator{text: "   "}},
		{name: "timeout", gen: &fakeGenerator{text: "late", delay: 200 * time.Millisecond}},
		{name: "nil generator", gen: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := NewGuarded(tc.gen, 20*time.Millisecond).Complete(context.Background(), contractx.GenerateRequest{Role: statex.RoleSales})
			if !out.Degraded {
				t.Fatalf("expected degraded completion, got %+v", out)
			}
			if out.Text != Apology {
				t.Fatalf("Text = %q, want apology", out.Text)
			}
		})
	}
}
