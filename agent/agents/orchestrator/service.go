package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Loan-Origination/agent/contract"
	nodex "github.com/tanpawarit/Chative-Loan-Origination/agent/nodes"
	statex "github.com/tanpawarit/Chative-Loan-Origination/agent/state"
	"github.com/tanpawarit/Chative-Loan-Origination/agent/telemetry"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
)

type Option func(*Orchestrator)

// WithClock overrides the time source stamped on turns.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLocker shares a session locker between orchestrators over one store.
func WithLocker(l *statex.Locker) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.locks = l
		}
	}
}

// Orchestrator routes each user message to the active role, follows at most
// one handoff, and records the combined reply. Turns on the same session id
// never overlap.
type Orchestrator struct {
	store statex.Store
	roles contractx.Registry
	locks *statex.Locker

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

func New(store statex.Store, roles contractx.Registry, opts ...Option) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if roles == nil {
		return nil, errors.New("role registry is required")
	}

	o := &Orchestrator{
		store: store,
		roles: roles,
		locks: statex.NewLocker(),
		now:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID string, text string) (contractx.TurnOutput, error) {
	started := time.Now()
	key := strings.TrimSpace(sessionID)
	if key == "" {
		return contractx.TurnOutput{}, ErrInvalidSession
	}

	release := o.locks.Lock(key)
	defer release()

	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID: sessionID,
		Text:      text,
	})
	if err != nil {
		result := "error"
		if errors.Is(err, contractx.ErrValidation) {
			result = "invalid"
		}
		telemetry.ObserveTurn("unknown", result, started)
		log.Warn().Err(err).Str("session_id", key).Msg("turn failed")
		return contractx.TurnOutput{}, err
	}

	telemetry.ObserveTurn(string(out.AgentName), "ok", started)
	log.Info().
		Str("session_id", out.SessionID).
		Str("current_agent", string(out.AgentName)).
		Dur("elapsed", time.Since(started)).
		Msg("turn handled")
	return out, nil
}

// RecordSalarySlip flags an uploaded salary slip on an existing session. It
// takes the session lock so it never interleaves with a running turn.
func (o *Orchestrator) RecordSalarySlip(ctx context.Context, sessionID string, fileID string) (*statex.Session, error) {
	key := strings.TrimSpace(sessionID)
	if key == "" {
		return nil, ErrInvalidSession
	}

	release := o.locks.Lock(key)
	defer release()

	st, err := o.store.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	st.SalarySlipUploaded = true
	st.Audit("upload: salary slip received " + fileID)
	st.Touch(o.now().UTC())
	if err := o.store.Save(ctx, st); err != nil {
		return nil, err
	}

	log.Info().Str("session_id", key).Str("file_id", fileID).Msg("salary slip recorded")
	return st.Clone(), nil
}
