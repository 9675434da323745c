package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Loan-Origination/agent/contract"
	statex "github.com/tanpawarit/Chative-Loan-Origination/agent/state"
)

const replySeparator = "\n\n"

// RecordReply appends the combined agent reply to the freshly loaded session.
func RecordReply(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(strings.Join(in.Replies, replySeparator))
	if reply == "" {
		return nil, fmt.Errorf("%w: role returned empty message", contractx.ErrValidation)
	}

	st, err := statex.GetOrCreate(ctx, store, in.SessionID, in.Now)
	if err != nil {
		return nil, fmt.Errorf("reload session: %w", err)
	}
	st.AddMessage(statex.SpeakerAgent, reply)
	st.Touch(in.Now)
	if err := store.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("save agent reply: %w", err)
	}

	in.Session = st
	in.Replies = []string{reply}
	return in, nil
}
