package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Loan-Origination/agent/contract"
	"github.com/tanpawarit/Chative-Loan-Origination/agent/telemetry"
)

const (
	DefaultTimeout = 30 * time.Second
	Apology        = "I apologize, but I am having trouble connecting right now. Please try again in a moment."
)

// Guarded bounds every generation call by a timeout and turns any failure
// into a degraded completion carrying the apology text. It never retries.
type Guarded struct {
	gen     contractx.TextGenerator
	timeout time.Duration
}

var _ contractx.Completer = (*Guarded)(nil)

func NewGuarded(gen contractx.TextGenerator, timeout time.Duration) *Guarded {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Guarded{gen: gen, timeout: timeout}
}

type generateResult struct {
	text string
	err  error
}

func (g *Guarded) Complete(ctx context.Context, req contractx.GenerateRequest) contractx.Completion {
	if g == nil || g.gen == nil {
		return g.degrade(req, "unconfigured", errors.New("no text generator configured"))
	}

	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan generateResult, 1)
	go func() {
		text, err := g.gen.Generate(cctx, req)
		done <- generateResult{text: text, err: err}
	}()

	select {
	case <-cctx.Done():
		return g.degrade(req, "timeout", cctx.Err())
	case res := <-done:
		if res.err != nil {
			reason := "error"
			if errors.Is(res.err, context.DeadlineExceeded) {
				reason = "timeout"
			}
			return g.degrade(req, reason, res.err)
		}
		if strings.TrimSpace(res.text) == "" {
			return g.degrade(req, "empty", contractx.ErrSchemaViolation)
		}
		return contractx.Completion{Text: res.text}
	}
}

func (g *Guarded) degrade(req contractx.GenerateRequest, reason string, err error) contractx.Completion {
	telemetry.ObserveGenerationFailure(string(req.Role), reason)
	log.Warn().
		Err(err).
		Str("role", string(req.Role)).
		Str("task", req.Task).
		Str("reason", reason).
		Msg("text generation degraded")
	return contractx.Completion{Text: Apology, Degraded: true}
}
