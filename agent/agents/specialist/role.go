package specialist

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Loan-Origination/agent/contract"
	statex "github.com/tanpawarit/Chative-Loan-Origination/agent/state"
)

// roleBase carries the load/save plumbing every role repeats.
type roleBase struct {
	store statex.Store
	now   func() time.Time
}

func (b roleBase) load(ctx context.Context, turn contractx.Turn) (*statex.Session, error) {
	st, err := statex.GetOrCreate(ctx, b.store, turn.SessionID, b.clock(turn))
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return st, nil
}

func (b roleBase) save(ctx context.Context, turn contractx.Turn, st *statex.Session) error {
	st.Touch(b.clock(turn))
	if err := b.store.Save(ctx, st); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// handoff moves st to next, persists it and builds the typed transition.
func (b roleBase) handoff(ctx context.Context, turn contractx.Turn, st *statex.Session, text string, next statex.Role) (contractx.TurnResult, error) {
	from := st.CurrentRole
	st.CurrentRole = next
	if err := b.save(ctx, turn, st); err != nil {
		return contractx.TurnResult{}, err
	}
	return contractx.HandoffReply(text, from, next), nil
}

func (b roleBase) clock(turn contractx.Turn) time.Time {
	if !turn.Now.IsZero() {
		return turn.Now
	}
	return b.now()
}

var transferNames = map[statex.Role]string{
	statex.RoleGreeting:     "Customer Desk",
	statex.RoleSales:        "Sales Agent",
	statex.RoleVerification: "Verification Agent",
	statex.RoleUnderwriting: "Underwriting Agent",
	statex.RoleSanction:     "Sanction Agent",
}

// withTransfer appends the visible transfer notice for a handoff to next.
func withTransfer(text string, next statex.Role) string {
	notice := fmt.Sprintf("(System: Transferring to %s...)", transferNames[next])
	if strings.TrimSpace(text) == "" {
		return notice
	}
	return text + "\n\n" + notice
}

// rupees formats v with thousands separators and no decimals.
func rupees(v float64) string {
	return "₹" + groupThousands(strconv.FormatFloat(v, 'f', 0, 64))
}

// rupeesPaise keeps two decimals, for letter amounts.
func rupeesPaise(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	whole, frac, _ := strings.Cut(s, ".")
	return "₹" + groupThousands(whole) + "." + frac
}

func groupThousands(digits string) string {
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}
	if len(digits) <= 3 {
		return sign + digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return sign + b.String()
}

func historyLines(msgs []statex.Message) string {
	if len(msgs) == 0 {
		return "(none)"
	}
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, m.Role+": "+m.Content)
	}
	return strings.Join(parts, " | ")
}
