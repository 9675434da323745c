package state

import (
	"errors"
	"fmt"
	"time"
)

// Role is the conversational role currently handling a session.
type Role string

const (
	RoleGreeting     Role = "GREETING"
	RoleSales        Role = "SALES"
	RoleVerification Role = "VERIFICATION"
	RoleUnderwriting Role = "UNDERWRITING"
	RoleSanction     Role = "SANCTION"
)

// Roles lists every valid role in routing order.
var Roles = []Role{RoleGreeting, RoleSales, RoleVerification, RoleUnderwriting, RoleSanction}

func (r Role) Valid() bool {
	switch r {
	case RoleGreeting, RoleSales, RoleVerification, RoleUnderwriting, RoleSanction:
		return true
	default:
		return false
	}
}

const (
	DefaultUserID = "guest"

	SpeakerUser  = "user"
	SpeakerAgent = "agent"
)

var (
	ErrInvalidRole   = errors.New("invalid session role")
	ErrInvalidAmount = errors.New("loan amount must be non-negative")
)

// Session is the single persisted record of one loan conversation.
// Optional numeric fields are pointers so "unset" and zero stay distinct.
type Session struct {
	SessionID   string `json:"session_id"`
	UserID      string `json:"user_id"`
	CurrentRole Role   `json:"current_agent"`

	// Identity
	Name   string   `json:"name,omitempty"`
	Phone  string   `json:"phone,omitempty"`
	Email  string   `json:"email,omitempty"`
	PAN    string   `json:"pan,omitempty"`
	Income *float64 `json:"income,omitempty"`

	// Loan terms
	LoanAmount   *float64 `json:"loan_amount,omitempty"`
	LoanTenure   *int     `json:"loan_tenure,omitempty"` // months
	InterestRate *float64 `json:"interest_rate,omitempty"`

	// Process flags
	KYCVerified        bool `json:"kyc_verified"`
	SalarySlipUploaded bool `json:"salary_slip_uploaded"`
	IsApproved         bool `json:"is_approved"`

	// Decision
	CreditScore       *int     `json:"credit_score,omitempty"`
	PreApprovedLimit  *float64 `json:"pre_approved_limit,omitempty"`
	RejectionReason   string   `json:"rejection_reason,omitempty"`
	SanctionLetterURL string   `json:"sanction_letter_url,omitempty"`

	// Audit
	ConversationHistory []Message `json:"conversation_history"`
	AuditLog            []string  `json:"audit_log"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func NewSession(sessionID string, now time.Time) *Session {
	return &Session{
		SessionID:           sessionID,
		UserID:              DefaultUserID,
		CurrentRole:         RoleGreeting,
		ConversationHistory: []Message{},
		AuditLog:            []string{},
		CreatedAt:           now.UTC(),
		UpdatedAt:           now.UTC(),
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

func (s *Session) AddMessage(role, content string) {
	s.ConversationHistory = append(s.ConversationHistory, Message{Role: role, Content: content})
}

func (s *Session) Audit(entry string) {
	s.AuditLog = append(s.AuditLog, entry)
}

// RecentHistory returns up to n trailing conversation entries.
func (s *Session) RecentHistory(n int) []Message {
	if n <= 0 || len(s.ConversationHistory) <= n {
		return s.ConversationHistory
	}
	return s.ConversationHistory[len(s.ConversationHistory)-n:]
}

// Approve marks the loan approved and moves the session to SANCTION in one step.
func (s *Session) Approve() {
	s.IsApproved = true
	s.RejectionReason = ""
	s.CurrentRole = RoleSanction
}

// Reject records a terminal or renegotiable rejection and routes to next.
func (s *Session) Reject(reason string, next Role) {
	s.IsApproved = false
	s.RejectionReason = reason
	s.CurrentRole = next
}

func (s *Session) Amount() float64 {
	if s.LoanAmount == nil {
		return 0
	}
	return *s.LoanAmount
}

func (s *Session) Tenure() int {
	if s.LoanTenure == nil {
		return 0
	}
	return *s.LoanTenure
}

func (s *Session) Rate() float64 {
	if s.InterestRate == nil {
		return 0
	}
	return *s.InterestRate
}

func (s *Session) Limit() float64 {
	if s.PreApprovedLimit == nil {
		return 0
	}
	return *s.PreApprovedLimit
}

func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSessionState
	}
	if !s.CurrentRole.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, s.CurrentRole)
	}
	if s.LoanAmount != nil && *s.LoanAmount < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, *s.LoanAmount)
	}
	return nil
}

// Clone returns a deep copy so stores never share mutable slices with callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Income = cloneFloat(s.Income)
	out.LoanAmount = cloneFloat(s.LoanAmount)
	out.InterestRate = cloneFloat(s.InterestRate)
	out.PreApprovedLimit = cloneFloat(s.PreApprovedLimit)
	out.LoanTenure = cloneInt(s.LoanTenure)
	out.CreditScore = cloneInt(s.CreditScore)
	out.ConversationHistory = append([]Message{}, s.ConversationHistory...)
	out.AuditLog = append([]string{}, s.AuditLog...)
	return &out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Float and Int build optional field values.
func Float(v float64) *float64 { return &v }

func Int(v int) *int { return &v }
