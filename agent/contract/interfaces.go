package contract

import (
	"context"

	statex "github.com/tanpawarit/Chative-Loan-Origination/agent/state"
)

// RoleHandler handles one turn for the role it is registered under. It loads,
// mutates and saves the session itself and never invokes another role.
type RoleHandler interface {
	Handle(ctx context.Context, turn Turn) (TurnResult, error)
}

type Registry interface {
	Handler(role statex.Role) (RoleHandler, error)
}

// TextGenerator is the raw generative backend. Errors are expected; callers
// that must never fail wrap it with llm.Guarded.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Completer is the guarded text-generation capability the roles depend on.
// It never returns an error: failures come back as a degraded completion.
type Completer interface {
	Complete(ctx context.Context, req GenerateRequest) Completion
}

// EventPublisher delivers domain events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
