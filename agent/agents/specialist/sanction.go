package specialist

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Loan-Origination/agent/contract"
	statex "github.com/tanpawarit/Chative-Loan-Origination/agent/state"
	"github.com/tanpawarit/Chative-Loan-Origination/agent/telemetry"
	"github.com/tanpawarit/Chative-Loan-Origination/agent/tool"
)

const (
	EventLoanSanctioned = "loan.sanctioned"
	notApprovedReply    = "I can only issue a sanction letter once your loan has been approved."
)

type sanction struct {
	roleBase
	exporter  Exporter
	publisher contractx.EventPublisher
}

func (s *sanction) Handle(ctx context.Context, turn contractx.Turn) (contractx.TurnResult, error) {
	st, err := s.load(ctx, turn)
	if err != nil {
		return contractx.TurnResult{}, err
	}
	if !st.IsApproved {
		return contractx.Reply(notApprovedReply), nil
	}
	if st.SanctionLetterURL != "" {
		return contractx.Reply("Your sanction letter has already been issued. You can download it here: " + st.SanctionLetterURL), nil
	}

	now := s.clock(turn)
	if st.LoanTenure == nil || *st.LoanTenure <= 0 {
		st.LoanTenure = statex.Int(tool.DefaultTenureMonths)
	}
	if st.InterestRate == nil || *st.InterestRate <= 0 {
		st.InterestRate = statex.Float(tool.DefaultInterestRate)
	}
	amount := st.Amount()
	letter := Letter{
		Reference:     LetterReference(st.SessionID, now),
		SessionID:     st.SessionID,
		Name:          orDefault(st.Name, "Customer"),
		Amount:        amount,
		TenureMonths:  st.Tenure(),
		InterestRate:  st.Rate(),
		EMI:           tool.EMI(amount, st.Rate(), st.Tenure()),
		ProcessingFee: tool.ProcessingFee(amount),
		IssuedAt:      now,
	}

	locator, err := s.exporter.Export(ctx, letter)
	if err != nil {
		return contractx.TurnResult{}, fmt.Errorf("export sanction letter: %w", err)
	}
	st.SanctionLetterURL = locator
	st.Audit(fmt.Sprintf("sanction: letter %s generated for %s", letter.Reference, rupeesPaise(amount)))
	if err := s.save(ctx, turn, st); err != nil {
		return contractx.TurnResult{}, err
	}
	telemetry.ObserveSanction()
	s.publish(ctx, st, letter, now)

	return contractx.Reply(fmt.Sprintf(
		"Congratulations %s! Your Personal Loan of %s has been officially sanctioned.\n\n"+
			"Your sanction letter (ref %s) is ready: %s\n\nThank you for choosing Hive Capital!",
		letter.Name, rupeesPaise(amount), letter.Reference, locator)), nil
}

// publish is best effort; a failed delivery never undoes the sanction.
func (s *sanction) publish(ctx context.Context, st *statex.Session, letter Letter, now time.Time) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, contractx.Event{
		Type:       EventLoanSanctioned,
		SessionID:  st.SessionID,
		OccurredAt: now,
		Data: map[string]any{
			"reference":     letter.Reference,
			"user_id":       st.UserID,
			"amount":        letter.Amount,
			"tenure_months": letter.TenureMonths,
			"interest_rate": letter.InterestRate,
			"letter_url":    st.SanctionLetterURL,
		},
	})
	if err != nil {
		log.Warn().Err(err).Str("session_id", st.SessionID).Msg("publish sanction event failed")
	}
}
