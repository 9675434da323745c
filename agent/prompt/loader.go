package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Loan-Origination/agent/contract"
)

var (
	//go:embed template/greeting.txt
	greetingRaw string

	//go:embed template/sales.txt
	salesRaw string

	//go:embed template/verification.txt
	verificationRaw string
)

// PromptSet holds the system prompts of the generative roles.
type PromptSet struct {
	Greeting     string
	Sales        string
	Verification string
}

func LoadPromptSet() PromptSet {
	return PromptSet{
		Greeting:     strings.TrimSpace(greetingRaw),
		Sales:        strings.TrimSpace(salesRaw),
		Verification: strings.TrimSpace(verificationRaw),
	}
}

func (p PromptSet) Validate() error {
	for name, v := range map[string]string{
		"greeting":     p.Greeting,
		"sales":        p.Sales,
		"verification": p.Verification,
	} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: %s", contractx.ErrPromptMissing, name)
		}
	}
	return nil
}

// WithContext appends labelled context lines under the base prompt.
func WithContext(base string, lines ...string) string {
	if len(lines) == 0 {
		return base
	}
	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\nContext:\n")
	for _, l := range lines {
		b.WriteString("- ")
		b.WriteString(l)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
