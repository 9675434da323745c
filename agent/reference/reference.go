// Package reference provides the read-only customer, credit bureau and offer
// lookups the loan roles consult.
package reference

import (
	"context"
	"errors"
)

var ErrCustomerNotFound = errors.New("customer not found")

const (
	KYCVerified = "VERIFIED"
	KYCPending  = "PENDING"
)

type Customer struct {
	ID               string  `json:"id" yaml:"id"`
	Name             string  `json:"name" yaml:"name"`
	Age              int     `json:"age" yaml:"age"`
	City             string  `json:"city" yaml:"city"`
	Email            string  `json:"email" yaml:"email"`
	Phone            string  `json:"phone" yaml:"phone"`
	PAN              string  `json:"pan" yaml:"pan"`
	KYCStatus        string  `json:"kyc_status" yaml:"kyc_status"`
	MonthlyIncome    float64 `json:"monthly_income" yaml:"monthly_income"`
	PreApprovedLimit float64 `json:"pre_approved_limit" yaml:"pre_approved_limit"`
}

func (c Customer) KYCVerified() bool {
	return c.KYCStatus == KYCVerified
}

type Offer struct {
	PreApprovedLimit float64 `json:"pre_approved_limit" yaml:"pre_approved_limit"`
	InterestRate     float64 `json:"interest_rate" yaml:"interest_rate"`
	Validity         string  `json:"validity" yaml:"validity"`
}

// Provider is the lookup contract. Absent keys are reported with ok=false,
// never as errors; errors are reserved for backend failures.
type Provider interface {
	CustomerByPhone(ctx context.Context, phone string) (Customer, bool, error)
	CreditScore(ctx context.Context, pan string) (int, bool, error)
	Offer(ctx context.Context, customerID string) (Offer, bool, error)
}
