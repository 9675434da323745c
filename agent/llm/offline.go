package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	contractx "github.com/tanpawarit/Chative-Loan-Origination/agent/contract"
	"github.com/tanpawarit/Chative-Loan-Origination/agent/reference"
	statex "github.com/tanpawarit/Chative-Loan-Origination/agent/state"
)

// Offline is a keyword-driven generator for local runs without a model
// provider. It emits the same markers a real model is prompted to emit.
type Offline struct{}

var _ contractx.TextGenerator = Offline{}

var (
	lakhPattern   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:lakhs?|lacs?|l)\b`)
	thousandPat   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*k\b`)
	plainAmount   = regexp.MustCompile(`\b(\d{5,9})\b`)
	monthsPattern = regexp.MustCompile(`(?i)(\d{1,3})\s*(?:months?|mos?)\b`)
	yearsPattern  = regexp.MustCompile(`(?i)(\d{1,2})\s*(?:years?|yrs?)\b`)
	wordPattern   = regexp.MustCompile(`[a-z]+`)
)

var (
	loanIntentWords = []string{"loan", "borrow", "apply", "interested", "money", "credit", "finance", "need"}
	agreeWords      = []string{"proceed", "agree", "apply", "yes", "deal", "ok", "okay", "confirm"}
)

func (Offline) Generate(_ context.Context, req contractx.GenerateRequest) (string, error) {
	if req.Task == contractx.TaskExtractPhone {
		digits := reference.NormalizePhone(req.Input)
		if len(digits) < 10 {
			return "NOT_FOUND", nil
		}
		return digits, nil
	}

	switch req.Role {
	case statex.RoleGreeting:
		return offlineGreeting(req.Input), nil
	case statex.RoleSales:
		return offlineSales(req.Input)
	default:
		return "Could you tell me a little more about what you need?", nil
	}
}

func offlineGreeting(input string) string {
	if hasAnyWord(input, loanIntentWords) {
		return "That's great! My colleague from the Sales team will help you with the details. <ROUTING:SALES>"
	}
	return "Hello and welcome to Hive Capital Personal Loans! We offer quick approvals with minimal documentation. Are you looking for a personal loan today?"
}

func offlineSales(input string) (string, error) {
	payload := struct {
		Amount *float64 `json:"amount"`
		Tenure *int     `json:"tenure"`
		Action string   `json:"action"`
	}{Action: "CONTINUE"}

	if amt, ok := parseAmount(input); ok {
		payload.Amount = &amt
	}
	if n, ok := parseTenure(input); ok {
		payload.Tenure = &n
	}

	var text string
	switch {
	case hasAnyWord(input, agreeWords):
		payload.Action = "AGREE"
		text = "Wonderful, let's get your application started."
	case payload.Amount != nil && payload.Tenure != nil:
		text = fmt.Sprintf("Noted: %.0f over %d months. Shall I proceed with the application?", *payload.Amount, *payload.Tenure)
	case payload.Amount != nil:
		text = fmt.Sprintf("Noted: %.0f. Over how many months would you like to repay?", *payload.Amount)
	default:
		text = "How much would you like to borrow, and over how many months?"
	}

	block, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal offline extraction: %w", err)
	}
	return text + "\n<JSON>\n" + string(block) + "\n</JSON>", nil
}

func parseAmount(input string) (float64, bool) {
	if m := lakhPattern.FindStringSubmatch(input); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v * 100000, true
		}
	}
	if m := thousandPat.FindStringSubmatch(input); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v * 1000, true
		}
	}
	if m := plainAmount.FindStringSubmatch(input); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

func parseTenure(input string) (int, bool) {
	if m := monthsPattern.FindStringSubmatch(input); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil && v > 0 {
			return v, true
		}
	}
	if m := yearsPattern.FindStringSubmatch(input); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil && v > 0 {
			return v * 12, true
		}
	}
	return 0, false
}

func hasAnyWord(input string, words []string) bool {
	seen := make(map[string]struct{})
	for _, w := range wordPattern.FindAllString(strings.ToLower(input), -1) {
		seen[w] = struct{}{}
	}
	for _, w := range words {
		if _, ok := seen[w]; ok {
			return true
		}
	}
	return false
}
