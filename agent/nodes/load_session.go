package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Loan-Origination/agent/contract"
	statex "github.com/tanpawarit/Chative-Loan-Origination/agent/state"
)

// LoadSession fetches or creates the session and persists the inbound user
// message before any role runs.
func LoadSession(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	st, err := statex.GetOrCreate(ctx, store, in.SessionID, in.Now)
	if err != nil {
		return nil, err
	}
	st.AddMessage(statex.SpeakerUser, in.Text)
	st.Touch(in.Now)
	if err := store.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}

	in.Session = st
	return in, nil
}
