package specialist

import (
	"context"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Loan-Origination/agent/contract"
	promptx "github.com/tanpawarit/Chative-Loan-Origination/agent/prompt"
	"github.com/tanpawarit/Chative-Loan-Origination/agent/reply"
	statex "github.com/tanpawarit/Chative-Loan-Origination/agent/state"
)

const (
	greetingHistoryWindow = 5
	closingReply          = "Is there anything else I can help you with today? You can start a new loan enquiry at any time."
)

type greeting struct {
	roleBase
	llm    contractx.Completer
	prompt string
}

func (g *greeting) Handle(ctx context.Context, turn contractx.Turn) (contractx.TurnResult, error) {
	st, err := g.load(ctx, turn)
	if err != nil {
		return contractx.TurnResult{}, err
	}
	if turn.FromHandoff {
		return contractx.Reply(closingReply), nil
	}

	name := st.Name
	if name == "" {
		name = "Customer"
	}
	comp := g.llm.Complete(ctx, contractx.GenerateRequest{
		Role: statex.RoleGreeting,
		Task: contractx.TaskReply,
		System: promptx.WithContext(g.prompt,
			"Client name: "+name,
			"Recent conversation: "+historyLines(st.RecentHistory(greetingHistoryWindow)),
		),
		Input: turn.Message,
	})
	if comp.Degraded {
		return contractx.Reply(comp.Text), nil
	}

	parsed := reply.Parse(comp.Text)
	if parsed.Route != statex.RoleSales {
		return contractx.Reply(parsed.Text), nil
	}

	log.Debug().Str("session_id", st.SessionID).Msg("greeting routed to sales")
	st.Audit("greeting: customer interested in a personal loan")
	return g.handoff(ctx, turn, st, parsed.Text, statex.RoleSales)
}
