package specialist

import (
	"fmt"
	"regexp"
	"strings"

	statex "github.com/tanpawarit/Chative-Loan-Origination/agent/state"
	"github.com/tanpawarit/Chative-Loan-Origination/agent/tool"
)

const (
	DefaultCreditScore = 720
	MinCreditScore     = 700
	BaselineIncome     = 50000.0
	MaxEMIToSalary     = 0.5
)

type Outcome string

const (
	OutcomeApproved        Outcome = "approved"
	OutcomeRejected        Outcome = "rejected"
	OutcomeNeedsSalarySlip Outcome = "needs_salary_slip"
)

// Decision rules, also used as metric labels.
const (
	RulePreApprovedOverride = "pre_approved_override"
	RuleCreditFloor         = "credit_floor"
	RuleWithinLimit         = "within_limit"
	RuleSalarySlipRequired  = "salary_slip_required"
	RuleEMIAffordable       = "emi_affordable"
	RuleEMIExceedsSalary    = "emi_exceeds_salary"
	RuleExceedsDoubleLimit  = "exceeds_double_limit"
)

// DecisionInput is everything the underwriting engine needs, already
// defaulted. PriorLimit is the session limit before this turn.
type DecisionInput struct {
	Amount         float64
	Tenure         int
	Rate           float64
	Score          int
	ReferenceLimit float64
	Salary         float64
	PriorLimit     float64
	SlipUploaded   bool
}

type Decision struct {
	Outcome Outcome
	Rule    string
	// Limit is the effective limit L the bands were measured against.
	Limit  float64
	Salary float64
	EMI    float64
	Reason string
	// Next is the role the session moves to; empty means stay.
	Next statex.Role
}

// ResolveLimit derives the limit and the salary used for affordability from
// the reference data, falling back to salary multiples by score tier and
// finally to a baseline income.
func ResolveLimit(score int, referenceLimit, salary float64) (limit, effectiveSalary float64) {
	limit, effectiveSalary = referenceLimit, salary
	if limit <= 0 && salary > 0 {
		switch {
		case score >= 800:
			limit = salary * 10
		case score >= 750:
			limit = salary * 8
		case score >= 700:
			limit = salary * 5
		default:
			limit = salary * 3
		}
	}
	if limit <= 0 {
		switch {
		case score >= 750:
			limit = BaselineIncome * 5
		case score >= 700:
			limit = BaselineIncome * 3
		default:
			limit = BaselineIncome * 2
		}
		effectiveSalary = BaselineIncome
	}
	if effectiveSalary <= 0 {
		effectiveSalary = BaselineIncome
	}
	return limit, effectiveSalary
}

// Decide applies, in order: the pre-approved override, the credit floor and
// the banding against L with the EMI affordability check.
func Decide(in DecisionInput) Decision {
	resolved, salary := ResolveLimit(in.Score, in.ReferenceLimit, in.Salary)

	if in.PriorLimit > 0 && in.Amount <= in.PriorLimit {
		return Decision{Outcome: OutcomeApproved, Rule: RulePreApprovedOverride, Limit: in.PriorLimit, Salary: salary, Next: statex.RoleSanction}
	}

	limit := resolved
	if in.PriorLimit > 0 {
		limit = in.PriorLimit
	}

	if in.Score < MinCreditScore {
		return Decision{
			Outcome: OutcomeRejected,
			Rule:    RuleCreditFloor,
			Limit:   limit,
			Salary:  salary,
			Reason:  fmt.Sprintf("Credit score %d is below the minimum of %d.", in.Score, MinCreditScore),
			Next:    statex.RoleGreeting,
		}
	}

	switch {
	case in.Amount <= limit:
		return Decision{Outcome: OutcomeApproved, Rule: RuleWithinLimit, Limit: limit, Salary: salary, Next: statex.RoleSanction}
	case in.Amount <= 2*limit:
		if !in.SlipUploaded {
			return Decision{Outcome: OutcomeNeedsSalarySlip, Rule: RuleSalarySlipRequired, Limit: limit, Salary: salary}
		}
		emi := tool.EMI(in.Amount, in.Rate, in.Tenure)
		if emi <= MaxEMIToSalary*salary {
			return Decision{Outcome: OutcomeApproved, Rule: RuleEMIAffordable, Limit: limit, Salary: salary, EMI: emi, Next: statex.RoleSanction}
		}
		return Decision{
			Outcome: OutcomeRejected,
			Rule:    RuleEMIExceedsSalary,
			Limit:   limit,
			Salary:  salary,
			EMI:     emi,
			Reason:  "EMI exceeds 50% of salary",
			Next:    statex.RoleSales,
		}
	default:
		return Decision{
			Outcome: OutcomeRejected,
			Rule:    RuleExceedsDoubleLimit,
			Limit:   limit,
			Salary:  salary,
			Reason:  fmt.Sprintf("Loan amount %s exceeds 2x the pre-approved limit (%s).", rupees(in.Amount), rupees(limit)),
			Next:    statex.RoleSales,
		}
	}
}

var (
	salarySlipWords = map[string]struct{}{
		"upload": {}, "uploaded": {}, "attached": {}, "attach": {}, "here": {}, "sent": {}, "slip": {},
	}
	wordRe = regexp.MustCompile(`[a-z]+`)
)

// MentionsSalarySlip reports whether message signals a salary-slip upload.
func MentionsSalarySlip(message string) bool {
	for _, w := range wordRe.FindAllString(strings.ToLower(message), -1) {
		if _, ok := salarySlipWords[w]; ok {
			return true
		}
	}
	return false
}
