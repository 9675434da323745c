package specialist

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Loan-Origination/agent/contract"
	"github.com/tanpawarit/Chative-Loan-Origination/agent/reference"
	statex "github.com/tanpawarit/Chative-Loan-Origination/agent/state"
)

const minPhoneDigits = 10

var (
	panToken   = regexp.MustCompile(`\b[A-Z0-9]{10}\b`)
	hasLetter  = regexp.MustCompile(`[A-Z]`)
	newUserRe  = regexp.MustCompile(`(?i)\bnew\b`)
	namePrefix = regexp.MustCompile(`(?i)^(?:(?:hi|hello|hey|sure|ok|okay)[,!.]?\s+)?(?:my\s+(?:full\s+)?name\s+is|i\s+am|i'm|this\s+is|it's|it\s+is|name\s*[:\-]|call\s+me)\s*`)
)

const (
	askMobileReply  = "To proceed, I need to verify your identity. Please share your mobile number."
	newMobileReply  = "Welcome! To set up your new account and proceed with the application, please share your mobile number."
	askNameReply    = "I couldn't find your records. Could you please share your full name?"
	askPANReply     = "Thank you. Now, please provide your PAN number for KYC verification."
	invalidPANReply = "Please provide a valid PAN number (e.g., ABCDE1234F) to complete verification."
)

type verification struct {
	roleBase
	llm    contractx.Completer
	ref    reference.Provider
	prompt string
}

func (v *verification) Handle(ctx context.Context, turn contractx.Turn) (contractx.TurnResult, error) {
	st, err := v.load(ctx, turn)
	if err != nil {
		return contractx.TurnResult{}, err
	}

	switch {
	case st.Phone == "":
		return v.capturePhone(ctx, turn, st)
	case st.Name == "":
		if turn.FromHandoff {
			return contractx.Reply("Could you please share your full name?"), nil
		}
		name, ok := ExtractName(turn.Message)
		if !ok {
			return contractx.Reply("Could you please share your full name?"), nil
		}
		st.Name = name
		st.Audit("verification: captured name for new customer")
		if err := v.save(ctx, turn, st); err != nil {
			return contractx.TurnResult{}, err
		}
		return contractx.Reply(askPANReply), nil
	case !st.KYCVerified:
		if turn.FromHandoff {
			return contractx.Reply(fmt.Sprintf("Thanks %s. To complete KYC, please provide your PAN number.", st.Name)), nil
		}
		return v.capturePAN(ctx, turn, st)
	default:
		st.Audit("verification: KYC already complete")
		return v.handoff(ctx, turn, st,
			withTransfer("KYC is complete. Checking customized offers for you...", statex.RoleUnderwriting),
			statex.RoleUnderwriting)
	}
}

func (v *verification) capturePhone(ctx context.Context, turn contractx.Turn, st *statex.Session) (contractx.TurnResult, error) {
	if turn.FromHandoff {
		return contractx.Reply(askMobileReply), nil
	}

	comp := v.llm.Complete(ctx, contractx.GenerateRequest{
		Role:   statex.RoleVerification,
		Task:   contractx.TaskExtractPhone,
		System: v.prompt,
		Input:  turn.Message,
	})
	if comp.Degraded {
		return contractx.Reply(comp.Text), nil
	}

	digits := reference.NormalizePhone(comp.Text)
	if len(digits) < minPhoneDigits {
		if newUserRe.MatchString(turn.Message) {
			return contractx.Reply(newMobileReply), nil
		}
		return contractx.Reply(askMobileReply), nil
	}
	st.Phone = digits

	cust, ok, err := v.ref.CustomerByPhone(ctx, digits)
	if err != nil {
		return contractx.TurnResult{}, fmt.Errorf("lookup customer by phone: %w", err)
	}
	if !ok {
		st.Audit("verification: new customer, phone not on record")
		if err := v.save(ctx, turn, st); err != nil {
			return contractx.TurnResult{}, err
		}
		return contractx.Reply(askNameReply), nil
	}

	st.UserID = cust.ID
	st.Name = cust.Name
	st.Email = cust.Email
	st.PAN = cust.PAN
	st.KYCVerified = cust.KYCVerified()
	text := fmt.Sprintf("Thank you, %s. I found your details in our system.", st.Name)
	log.Info().Str("session_id", st.SessionID).Str("customer_id", cust.ID).Bool("kyc_verified", st.KYCVerified).Msg("verification matched customer")

	if st.KYCVerified {
		st.Audit("verification: KYC verified from customer record " + cust.ID)
		return v.handoff(ctx, turn, st,
			withTransfer(text+" Your KYC is already verified.", statex.RoleUnderwriting),
			statex.RoleUnderwriting)
	}
	if err := v.save(ctx, turn, st); err != nil {
		return contractx.TurnResult{}, err
	}
	return contractx.Reply(text + " However, we need to verify your PAN. Please provide your PAN number."), nil
}

func (v *verification) capturePAN(ctx context.Context, turn contractx.Turn, st *statex.Session) (contractx.TurnResult, error) {
	pan, ok := ExtractPAN(turn.Message)
	if !ok {
		return contractx.Reply(invalidPANReply), nil
	}

	st.PAN = pan
	st.KYCVerified = true
	st.Audit("verification: PAN accepted, KYC verified")
	return v.handoff(ctx, turn, st,
		withTransfer("Thanks! Your PAN has been verified successfully. Moving to credit assessment.", statex.RoleUnderwriting),
		statex.RoleUnderwriting)
}

// ExtractPAN returns the first 10-character alphanumeric token containing at
// least one letter, uppercased. Checksums are not validated.
func ExtractPAN(message string) (string, bool) {
	for _, tok := range panToken.FindAllString(strings.ToUpper(message), -1) {
		if hasLetter.MatchString(tok) {
			return tok, true
		}
	}
	return "", false
}

// ExtractName strips a leading introduction such as "my name is" or "I am" and
// surrounding punctuation from a name reply.
func ExtractName(message string) (string, bool) {
	name := strings.TrimSpace(message)
	name = namePrefix.ReplaceAllString(name, "")
	name = strings.Trim(name, " \t.,!;:\"'")
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "", false
	}
	return name, true
}
