package llm

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Loan-Origination/agent/contract"
)

// NewGenerator builds the raw text generator selected by cfg.Backend.
func NewGenerator(ctx context.Context, cfg Config) (contractx.TextGenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.backend() {
	case BackendOffline:
		return Offline{}, nil
	case BackendOpenAI:
		return NewCompletionsGenerator(cfg)
	case BackendEino:
		return NewChatModelGenerator(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: unknown llm backend %q", contractx.ErrValidation, cfg.Backend)
	}
}
