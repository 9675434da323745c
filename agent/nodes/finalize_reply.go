package orchestratornode

import (
	"fmt"

	contractx "github.com/tanpawarit/Chative-Loan-Origination/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil || in.Session == nil || len(in.Replies) == 0 {
		return GraphOutput{}, fmt.Errorf("%w: graph state is incomplete", contractx.ErrValidation)
	}

	return GraphOutput{
		SessionID: in.SessionID,
		AgentName: in.Session.CurrentRole,
		Message:   in.Replies[0],
		Snapshot:  in.Session.Clone(),
	}, nil
}
