package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Loan-Origination/agent/contract"
	statex "github.com/tanpawarit/Chative-Loan-Origination/agent/state"
)

func DispatchRole(ctx context.Context, in *GraphState, roles contractx.Registry) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	res, err := runRole(ctx, roles, in.Session.CurrentRole, contractx.Turn{
		SessionID: in.SessionID,
		Message:   in.Text,
		Now:       in.Now,
	})
	if err != nil {
		return nil, err
	}
	in.Primary = res
	in.Replies = append(in.Replies, res.Reply)
	return in, nil
}

func runRole(ctx context.Context, roles contractx.Registry, role statex.Role, turn contractx.Turn) (contractx.TurnResult, error) {
	h, err := roles.Handler(role)
	if err != nil {
		return contractx.TurnResult{}, err
	}
	res, err := h.Handle(ctx, turn)
	if err != nil {
		return contractx.TurnResult{}, fmt.Errorf("role=%s: %w", role, err)
	}
	return res, nil
}
