package specialist

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Loan-Origination/agent/contract"
	"github.com/tanpawarit/Chative-Loan-Origination/agent/reference"
	statex "github.com/tanpawarit/Chative-Loan-Origination/agent/state"
	"github.com/tanpawarit/Chative-Loan-Origination/agent/telemetry"
	"github.com/tanpawarit/Chative-Loan-Origination/agent/tool"
)

// underwriting is deterministic and never calls the text generator.
type underwriting struct {
	roleBase
	ref reference.Provider
}

func (u *underwriting) Handle(ctx context.Context, turn contractx.Turn) (contractx.TurnResult, error) {
	st, err := u.load(ctx, turn)
	if err != nil {
		return contractx.TurnResult{}, err
	}

	in, err := u.decisionInput(ctx, st)
	if err != nil {
		return contractx.TurnResult{}, err
	}
	if !in.SlipUploaded && !turn.FromHandoff && MentionsSalarySlip(turn.Message) {
		st.SalarySlipUploaded = true
		in.SlipUploaded = true
	}

	d := Decide(in)
	telemetry.ObserveDecision(string(d.Outcome), d.Rule)
	log.Info().
		Str("session_id", st.SessionID).
		Str("outcome", string(d.Outcome)).
		Str("rule", d.Rule).
		Float64("amount", in.Amount).
		Float64("limit", d.Limit).
		Int("score", in.Score).
		Msg("underwriting decision")

	if d.Rule != RulePreApprovedOverride && d.Rule != RuleCreditFloor {
		st.PreApprovedLimit = statex.Float(d.Limit)
	}
	st.Audit(fmt.Sprintf("underwriting: %s rule=%s amount=%.0f limit=%.0f score=%d", d.Outcome, d.Rule, in.Amount, d.Limit, in.Score))

	switch d.Outcome {
	case OutcomeApproved:
		st.Approve()
		return u.finish(ctx, turn, st, statex.RoleUnderwriting, withTransfer(approvalText(in, d), statex.RoleSanction))
	case OutcomeNeedsSalarySlip:
		if err := u.save(ctx, turn, st); err != nil {
			return contractx.TurnResult{}, err
		}
		return contractx.Reply(fmt.Sprintf(
			"Your requested amount of %s is above your instant limit of %s, but it can still be considered. "+
				"Please upload your latest salary slip and let me know once it is uploaded.",
			rupees(in.Amount), rupees(d.Limit))), nil
	default:
		st.Reject(d.Reason, d.Next)
		return u.finish(ctx, turn, st, statex.RoleUnderwriting, withTransfer(rejectionText(in, d), d.Next))
	}
}

// finish persists a decision that already moved the role and reports it as a handoff.
func (u *underwriting) finish(ctx context.Context, turn contractx.Turn, st *statex.Session, from statex.Role, text string) (contractx.TurnResult, error) {
	if err := u.save(ctx, turn, st); err != nil {
		return contractx.TurnResult{}, err
	}
	return contractx.HandoffReply(text, from, st.CurrentRole), nil
}

func (u *underwriting) decisionInput(ctx context.Context, st *statex.Session) (DecisionInput, error) {
	// A zero amount is treated as unset.
	if st.LoanAmount == nil || *st.LoanAmount <= 0 {
		st.LoanAmount = statex.Float(tool.DefaultLoanAmount)
	}
	in := DecisionInput{
		Amount:       st.Amount(),
		Tenure:       st.Tenure(),
		Rate:         st.Rate(),
		PriorLimit:   st.Limit(),
		SlipUploaded: st.SalarySlipUploaded,
	}
	if in.Tenure <= 0 {
		in.Tenure = tool.DefaultTenureMonths
	}
	if in.Rate <= 0 {
		in.Rate = tool.DefaultInterestRate
	}

	pan := st.PAN
	if st.Phone != "" {
		cust, ok, err := u.ref.CustomerByPhone(ctx, st.Phone)
		if err != nil {
			return DecisionInput{}, fmt.Errorf("lookup customer by phone: %w", err)
		}
		if ok {
			if cust.PAN != "" {
				pan = cust.PAN
			}
			in.ReferenceLimit = cust.PreApprovedLimit
			in.Salary = cust.MonthlyIncome
		}
	}
	if in.Salary <= 0 && st.Income != nil {
		in.Salary = *st.Income
	}

	in.Score = DefaultCreditScore
	if pan != "" {
		score, ok, err := u.ref.CreditScore(ctx, pan)
		if err != nil {
			return DecisionInput{}, fmt.Errorf("lookup credit score: %w", err)
		}
		if ok {
			in.Score = score
		}
	}
	st.CreditScore = statex.Int(in.Score)
	return in, nil
}

func approvalText(in DecisionInput, d Decision) string {
	switch d.Rule {
	case RuleEMIAffordable:
		return fmt.Sprintf("Thank you for the salary slip. Your EMI of %s is within 50%% of your monthly salary, so your loan of %s is approved!",
			rupees(d.EMI), rupees(in.Amount))
	case RulePreApprovedOverride:
		return fmt.Sprintf("Great news! Your loan of %s is within your pre-approved limit of %s and has been approved instantly.",
			rupees(in.Amount), rupees(d.Limit))
	default:
		return fmt.Sprintf("Congratulations! Based on your credit profile (score %d), your loan of %s has been approved.",
			in.Score, rupees(in.Amount))
	}
}

func rejectionText(in DecisionInput, d Decision) string {
	switch d.Rule {
	case RuleCreditFloor:
		return fmt.Sprintf("We're sorry, your credit score of %d is below our minimum requirement of %d, so we can't approve the loan at this time.",
			in.Score, MinCreditScore)
	case RuleEMIExceedsSalary:
		return fmt.Sprintf("Based on your salary slip, the EMI of %s would exceed 50%% of your monthly salary of %s. "+
			"Let's look at a smaller amount or a longer tenure.", rupees(d.EMI), rupees(d.Salary))
	default:
		return fmt.Sprintf("The requested amount %s is significantly higher than your eligibility limit. We can offer up to %s.",
			rupees(in.Amount), rupees(2*d.Limit))
	}
}
