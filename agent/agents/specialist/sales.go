package specialist

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Loan-Origination/agent/contract"
	promptx "github.com/tanpawarit/Chative-Loan-Origination/agent/prompt"
	"github.com/tanpawarit/Chative-Loan-Origination/agent/reference"
	"github.com/tanpawarit/Chative-Loan-Origination/agent/reply"
	statex "github.com/tanpawarit/Chative-Loan-Origination/agent/state"
	"github.com/tanpawarit/Chative-Loan-Origination/agent/tool"
)

var tenDigits = regexp.MustCompile(`\b\d{10}\b`)

const (
	askPhoneReply = "To provide you with the best personalized offers, could you please share your registered mobile number? " +
		"If you are new to Hive Capital, share the mobile number you would like to register."
	noRecordReply = "I couldn't find a customer record with that mobile number. No problem, we can proceed as a new customer. " +
		"How much would you like to borrow, and over how many months?"
)

type sales struct {
	roleBase
	llm    contractx.Completer
	ref    reference.Provider
	prompt string
}

func (s *sales) Handle(ctx context.Context, turn contractx.Turn) (contractx.TurnResult, error) {
	st, err := s.load(ctx, turn)
	if err != nil {
		return contractx.TurnResult{}, err
	}

	if st.Limit() <= 0 && st.Phone == "" {
		phone := tenDigits.FindString(turn.Message)
		if phone == "" {
			return contractx.Reply(askPhoneReply), nil
		}
		return s.identify(ctx, turn, st, phone)
	}

	if turn.FromHandoff {
		return contractx.Reply(s.renegotiateReply(st)), nil
	}
	return s.negotiate(ctx, turn, st)
}

func (s *sales) identify(ctx context.Context, turn contractx.Turn, st *statex.Session, phone string) (contractx.TurnResult, error) {
	cust, ok, err := s.ref.CustomerByPhone(ctx, phone)
	if err != nil {
		return contractx.TurnResult{}, fmt.Errorf("lookup customer by phone: %w", err)
	}
	if !ok {
		st.Phone = phone
		st.Audit("sales: no customer record for " + phone)
		if err := s.save(ctx, turn, st); err != nil {
			return contractx.TurnResult{}, err
		}
		return contractx.Reply(noRecordReply), nil
	}

	st.UserID = cust.ID
	st.Name = cust.Name
	st.Phone = cust.Phone
	st.Email = cust.Email
	st.PAN = cust.PAN
	st.KYCVerified = cust.KYCVerified()
	if cust.MonthlyIncome > 0 {
		st.Income = statex.Float(cust.MonthlyIncome)
	}

	offer, hasOffer, err := s.ref.Offer(ctx, cust.ID)
	if err != nil {
		return contractx.TurnResult{}, fmt.Errorf("lookup offer: %w", err)
	}
	var text string
	if hasOffer && offer.PreApprovedLimit > 0 {
		st.PreApprovedLimit = statex.Float(offer.PreApprovedLimit)
		rate := offer.InterestRate
		if rate <= 0 {
			rate = tool.DefaultInterestRate
		}
		st.InterestRate = statex.Float(rate)
		emi := tool.EMI(offer.PreApprovedLimit, rate, tool.DefaultTenureMonths)
		text = fmt.Sprintf(
			"Thank you %s. I've successfully verified your profile. Great news! You have a pre-approved offer up to %s "+
				"with a special interest rate of %.2f%%. For example, the full amount over %d months works out to an EMI of about %s. "+
				"How much would you like to borrow, and for how long?",
			st.Name, rupees(offer.PreApprovedLimit), rate, tool.DefaultTenureMonths, rupees(emi),
		)
	} else {
		text = fmt.Sprintf(
			"Thank you %s. I've verified your profile. While I don't see a pre-approved offer at this moment, "+
				"we can certainly proceed with a fresh application. How much would you like to borrow, and for how long?",
			st.Name,
		)
	}

	st.Audit("sales: identified customer " + cust.ID)
	log.Info().Str("session_id", st.SessionID).Str("customer_id", cust.ID).Bool("offer", hasOffer).Msg("customer identified")
	if err := s.save(ctx, turn, st); err != nil {
		return contractx.TurnResult{}, err
	}
	return contractx.Reply(text), nil
}

func (s *sales) negotiate(ctx context.Context, turn contractx.Turn, st *statex.Session) (contractx.TurnResult, error) {
	comp := s.llm.Complete(ctx, contractx.GenerateRequest{
		Role:   statex.RoleSales,
		Task:   contractx.TaskReply,
		System: promptx.WithContext(s.prompt, s.contextLines(st)...),
		Input:  turn.Message,
	})
	if comp.Degraded {
		return contractx.Reply(comp.Text), nil
	}

	parsed := reply.Parse(comp.Text)
	ext := parsed.Extraction
	if ext == nil {
		return contractx.Reply(parsed.Text), nil
	}

	if ext.Amount != nil {
		st.LoanAmount = statex.Float(*ext.Amount)
	}
	if ext.Tenure != nil {
		st.LoanTenure = statex.Int(*ext.Tenure)
	}

	if ext.Agreed() {
		st.Audit(fmt.Sprintf("sales: customer agreed amount=%.0f tenure=%d", st.Amount(), st.Tenure()))
		return s.handoff(ctx, turn, st, withTransfer(parsed.Text, statex.RoleVerification), statex.RoleVerification)
	}
	if err := s.save(ctx, turn, st); err != nil {
		return contractx.TurnResult{}, err
	}
	return contractx.Reply(parsed.Text), nil
}

func (s *sales) contextLines(st *statex.Session) []string {
	p := tool.PersonalLoan
	lines := []string{
		"Current loan amount: " + optionalFloat(st.LoanAmount),
		"Current tenure (months): " + optionalInt(st.LoanTenure),
		"Customer name: " + orDefault(st.Name, "Unknown"),
		"Pre-approved limit: " + optionalFloat(st.PreApprovedLimit),
		"Special interest rate: " + orDefault(optionalRate(st.InterestRate), "Standard"),
		fmt.Sprintf("Product: %s, amount %.0f to %.0f, tenure %d to %d months, rates from %.2f%%",
			p.Name, p.MinAmount, p.MaxAmount, p.MinTenureMonths, p.MaxTenureMonths, p.BaseInterestRate),
		"Features: " + strings.Join(p.Features, ", "),
	}
	return lines
}

func (s *sales) renegotiateReply(st *statex.Session) string {
	if limit := st.Limit(); limit > 0 {
		return fmt.Sprintf("Let's find terms that work for you. Your eligible limit is %s. Would you like to revise the amount or choose a longer tenure?", rupees(limit))
	}
	return "Let's find terms that work for you. Would you like to revise the amount or choose a longer tenure?"
}

func optionalFloat(v *float64) string {
	if v == nil {
		return "None"
	}
	return fmt.Sprintf("%.0f", *v)
}

func optionalInt(v *int) string {
	if v == nil {
		return "None"
	}
	return fmt.Sprintf("%d", *v)
}

func optionalRate(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f%%", *v)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
