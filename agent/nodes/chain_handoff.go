package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Loan-Origination/agent/contract"
	statex "github.com/tanpawarit/Chative-Loan-Origination/agent/state"
	"github.com/tanpawarit/Chative-Loan-Origination/agent/telemetry"
)

// ChainHandoff re-reads the session and, when the primary role handed off,
// runs the now-active role exactly once with its synthetic handoff message.
// A handoff returned by that chained hop is persisted by the role but left
// for the next user message.
func ChainHandoff(ctx context.Context, in *GraphState, store statex.Store, roles contractx.Registry) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	st, err := statex.GetOrCreate(ctx, store, in.SessionID, in.Now)
	if err != nil {
		return nil, fmt.Errorf("reload session: %w", err)
	}
	in.Session = st

	h := in.Primary.Handoff
	if h == nil {
		return in, nil
	}
	telemetry.ObserveHandoff(string(h.From), string(h.To))

	next := st.CurrentRole
	if next != h.To {
		log.Warn().
			Str("session_id", in.SessionID).
			Str("handoff_to", string(h.To)).
			Str("current_agent", string(next)).
			Msg("handoff target differs from persisted role, following persisted role")
	}

	res, err := runRole(ctx, roles, next, contractx.Turn{
		SessionID:   in.SessionID,
		Message:     contractx.HandoffMessage(next),
		FromHandoff: true,
		Now:         in.Now,
	})
	if err != nil {
		return nil, err
	}
	in.Chained = &res
	if res.Reply != "" {
		in.Replies = append(in.Replies, res.Reply)
	}
	if res.Handoff != nil {
		telemetry.ObserveHandoff(string(res.Handoff.From), string(res.Handoff.To))
		log.Debug().
			Str("session_id", in.SessionID).
			Str("to", string(res.Handoff.To)).
			Msg("chained hop handed off, deferring to next message")
	}
	return in, nil
}
