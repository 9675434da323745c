// Package tool holds the loan arithmetic and product rules shared by the
// negotiating and underwriting roles.
package tool

import "math"

const (
	DefaultInterestRate  = 10.99
	DefaultTenureMonths  = 12
	DefaultLoanAmount    = 100000.0
	ProcessingFeePercent = 1.0

	zeroRateEpsilon = 1e-9
)

// Product describes the single loan product on offer.
type Product struct {
	Name             string
	MinAmount        float64
	MaxAmount        float64
	MinTenureMonths  int
	MaxTenureMonths  int
	BaseInterestRate float64
	Features         []string
}

var PersonalLoan = Product{
	Name:             "Hive Capital Personal Loan",
	MinAmount:        50000,
	MaxAmount:        2500000,
	MinTenureMonths:  12,
	MaxTenureMonths:  72,
	BaseInterestRate: DefaultInterestRate,
	Features:         []string{"Instant Approval", "Minimal Documentation", "Flexible Repayment"},
}

// EMI returns the equated monthly instalment for principal at annualRate
// percent over months. A near-zero rate degenerates to straight division and
// a non-positive tenure falls back to DefaultTenureMonths.
func EMI(principal, annualRate float64, months int) float64 {
	if months <= 0 {
		months = DefaultTenureMonths
	}
	if principal <= 0 {
		return 0
	}
	r := annualRate / 12 / 100
	if math.Abs(r) < zeroRateEpsilon {
		return principal / float64(months)
	}
	growth := math.Pow(1+r, float64(months))
	return principal * r * growth / (growth - 1)
}

func ProcessingFee(amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	return amount * ProcessingFeePercent / 100
}
