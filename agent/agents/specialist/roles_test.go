package specialist

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Chative-Loan-Origination/agent/contract"
	promptx "github.com/tanpawarit/Chative-Loan-Origination/agent/prompt"
	"github.com/tanpawarit/Chative-Loan-Origination/agent/reference"
	statex "github.com/tanpawarit/Chative-Loan-Origination/agent/state"
)

func TestRegistryUnknownRole(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if _, err := f.registry.Handler("MASTER"); !errors.Is(err, contractx.ErrUnknownRole) {
		t.Fatalf("Handler() error = %v, want ErrUnknownRole", err)
	}
	for _, r := range statex.Roles {
		if _, err := f.registry.Handler(r); err != nil {
			t.Fatalf("Handler(%s) error = %v", r, err)
		}
	}
}

func TestGreetingRoutesToSales(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.llm.said("That's great! My colleague from the Sales team will help you. <ROUTING:SALES>")

	out := f.handle(t, statex.RoleGreeting, "I need a personal loan")
	expectHandoff(t, out, statex.RoleGreeting, statex.RoleSales)
	if strings.Contains(out.Reply, "<ROUTING") {
		t.Fatalf("routing tag leaked into reply: %q", out.Reply)
	}
	if got := f.session(t).CurrentRole; got != statex.RoleSales {
		t.Fatalf("CurrentRole = %s, want SALES", got)
	}
}

func TestGreetingSmallTalkAndDegraded(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.llm.said("Hello! Welcome to Hive Capital.").degraded()

	out := f.handle(t, statex.RoleGreeting, "hi")
	expectNoHandoff(t, out)
	if out.Reply != "Hello! Welcome to Hive Capital." {
		t.Fatalf("Reply = %q", out.Reply)
	}

	out = f.handle(t, statex.RoleGreeting, "I want a loan")
	expectNoHandoff(t, out)
	if f.store.Len() != 0 {
		t.Fatal("degraded generation must not persist state")
	}
}

func TestGreetingAfterRejectionDoesNotCallModel(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	out := f.handoffTurn(t, statex.RoleGreeting)
	expectNoHandoff(t, out)
	if len(f.llm.calls) != 0 {
		t.Fatalf("expected no generation calls, got %d", len(f.llm.calls))
	}
}

func TestSalesIdentificationGate(t *testing.T) {
	t.Parallel()

	t.Run("asks for number", func(t *testing.T) {
		f := newFixture(t)
		out := f.handoffTurn(t, statex.RoleSales)
		if !strings.Contains(out.Reply, "mobile number") {
			t.Fatalf("Reply = %q", out.Reply)
		}
		if len(f.llm.calls) != 0 {
			t.Fatal("negotiation must not start before identification")
		}
	})

	t.Run("known customer hydrates offer", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, func(s *statex.Session) { s.CurrentRole = statex.RoleSales })

		out := f.handle(t, statex.RoleSales, "sure, it's 9876543210")
		expectNoHandoff(t, out)
		if !strings.Contains(out.Reply, "₹500,000") || !strings.Contains(out.Reply, "12.00%") {
			t.Fatalf("offer summary missing details: %q", out.Reply)
		}

		st := f.session(t)
		if st.UserID != "CUST001" || st.Name != "Rahul Sharma" || st.PAN != "ABCDE1234F" || !st.KYCVerified {
			t.Fatalf("identity not hydrated: %+v", st)
		}
		if st.Limit() != 500000 || st.Rate() != 12.0 || st.Income == nil || *st.Income != 50000 {
			t.Fatalf("offer not hydrated: %+v", st)
		}
		if len(f.llm.calls) != 0 {
			t.Fatal("identification must not call the model")
		}
	})

	t.Run("unknown number", func(t *testing.T) {
		f := newFixture(t)
		out := f.handle(t, statex.RoleSales, "9000000001")
		if !strings.Contains(out.Reply, "couldn't find") {
			t.Fatalf("Reply = %q", out.Reply)
		}
		st := f.session(t)
		if st.Phone != "9000000001" || st.PreApprovedLimit != nil {
			t.Fatalf("unexpected state: %+v", st)
		}
	})
}

func TestSalesNegotiationRecordsAmountVerbatim(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, func(s *statex.Session) {
		s.CurrentRole = statex.RoleSales
		s.Phone = "9876543210"
		s.PreApprovedLimit = statex.Float(500000)
	})
	f.llm.said("Understood, 8 lakhs it is.\n<JSON>{\"amount\": 800000, \"tenure\": 36, \"action\": \"CONTINUE\"}</JSON>")

	out := f.handle(t, statex.RoleSales, "No, I want 8 lakhs for 3 years")
	expectNoHandoff(t, out)
	if out.Reply != "Understood, 8 lakhs it is." {
		t.Fatalf("Reply = %q", out.Reply)
	}
	st := f.session(t)
	if st.Amount() != 800000 || st.Tenure() != 36 {
		t.Fatalf("amount/tenure = %v/%v", st.Amount(), st.Tenure())
	}
	if st.CurrentRole != statex.RoleSales {
		t.Fatalf("CurrentRole = %s", st.CurrentRole)
	}

	call := f.llm.calls[0]
	if call.Role != statex.RoleSales || !strings.Contains(call.System, "Pre-approved limit: 500000") {
		t.Fatalf("negotiation context missing: %+v", call)
	}
}

func TestSalesAgreeHandsOffToVerification(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, func(s *statex.Session) {
		s.CurrentRole = statex.RoleSales
		s.Phone = "9876543210"
	})
	f.llm.said("Let's get started! <ACTION:AGREE>\n<JSON>{\"amount\": 400000, \"tenure\": 24, \"action\": \"AGREE\"}</JSON>")

	out := f.handle(t, statex.RoleSales, "400000 for 24 months, proceed")
	expectHandoff(t, out, statex.RoleSales, statex.RoleVerification)
	if !strings.Contains(out.Reply, "Transferring to Verification Agent") {
		t.Fatalf("transfer notice missing: %q", out.Reply)
	}
	st := f.session(t)
	if st.CurrentRole != statex.RoleVerification || st.Amount() != 400000 || st.Tenure() != 24 {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestSalesMalformedOrDegradedLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, func(s *statex.Session) {
		s.CurrentRole = statex.RoleSales
		s.Phone = "9876543210"
		s.LoanAmount = statex.Float(200000)
	})
	f.llm.said("Sure!<JSON>{amount: lots}</JSON>").degraded()

	for _, msg := range []string{"make it 5 lakh", "proceed"} {
		out := f.handle(t, statex.RoleSales, msg)
		expectNoHandoff(t, out)
		st := f.session(t)
		if st.Amount() != 200000 || st.CurrentRole != statex.RoleSales {
			t.Fatalf("state changed after %q: %+v", msg, st)
		}
	}
}

func TestVerificationKnownVerifiedCustomer(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, func(s *statex.Session) { s.CurrentRole = statex.RoleVerification })
	f.llm.said("9876543210")

	out := f.handle(t, statex.RoleVerification, "my number is 98765 43210")
	expectHandoff(t, out, statex.RoleVerification, statex.RoleUnderwriting)

	st := f.session(t)
	if st.Name != "Rahul Sharma" || !st.KYCVerified || st.PAN != "ABCDE1234F" {
		t.Fatalf("unexpected state: %+v", st)
	}
	if f.llm.calls[0].Task != contractx.TaskExtractPhone {
		t.Fatalf("Task = %q", f.llm.calls[0].Task)
	}
}

func TestVerificationNewCustomerFlow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, func(s *statex.Session) { s.CurrentRole = statex.RoleVerification })

	out := f.handoffTurn(t, statex.RoleVerification)
	if out.Reply != askMobileReply || len(f.llm.calls) != 0 {
		t.Fatalf("handoff entry must ask for mobile without generation: %q", out.Reply)
	}

	f.llm.said("9000000001")
	out = f.handle(t, statex.RoleVerification, "9000000001")
	if out.Reply != askNameReply {
		t.Fatalf("Reply = %q", out.Reply)
	}

	out = f.handle(t, statex.RoleVerification, "My name is Meera Pillai.")
	if out.Reply != askPANReply {
		t.Fatalf("Reply = %q", out.Reply)
	}

	out = f.handle(t, statex.RoleVerification, "I don't have it handy")
	expectNoHandoff(t, out)
	if out.Reply != invalidPANReply {
		t.Fatalf("Reply = %q", out.Reply)
	}

	out = f.handle(t, statex.RoleVerification, "it is mnopq4321z")
	expectHandoff(t, out, statex.RoleVerification, statex.RoleUnderwriting)
	st := f.session(t)
	if st.Name != "Meera Pillai" || st.PAN != "MNOPQ4321Z" || !st.KYCVerified {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestVerificationPendingKYCCustomer(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, func(s *statex.Session) { s.CurrentRole = statex.RoleVerification })
	f.llm.said("9012345678")

	out := f.handle(t, statex.RoleVerification, "9012345678")
	expectNoHandoff(t, out)
	if !strings.Contains(out.Reply, "PAN") {
		t.Fatalf("Reply = %q", out.Reply)
	}
	if st := f.session(t); st.KYCVerified || st.Name != "Vikram Singh" {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestVerificationDegradedExtraction(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, func(s *statex.Session) { s.CurrentRole = statex.RoleVerification })
	f.llm.degraded()

	out := f.handle(t, statex.RoleVerification, "9876543210")
	expectNoHandoff(t, out)
	if st := f.session(t); st.Phone != "" {
		t.Fatalf("degraded extraction must not store a phone: %+v", st)
	}
}

func TestVerificationAlreadyVerifiedSkips(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, func(s *statex.Session) {
		s.CurrentRole = statex.RoleVerification
		s.Phone = "9876543210"
		s.Name = "Rahul Sharma"
		s.KYCVerified = true
	})

	out := f.handoffTurn(t, statex.RoleVerification)
	expectHandoff(t, out, statex.RoleVerification, statex.RoleUnderwriting)
	if len(f.llm.calls) != 0 {
		t.Fatal("verified customers must skip generation")
	}
}

func TestUnderwritingOverrideApproves(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, func(s *statex.Session) {
		s.CurrentRole = statex.RoleUnderwriting
		s.Phone = "9876543210"
		s.KYCVerified = true
		s.PreApprovedLimit = statex.Float(500000)
		s.LoanAmount = statex.Float(400000)
		s.LoanTenure = statex.Int(24)
	})

	out := f.handoffTurn(t, statex.RoleUnderwriting)
	expectHandoff(t, out, statex.RoleUnderwriting, statex.RoleSanction)

	st := f.session(t)
	if !st.IsApproved || st.CurrentRole != statex.RoleSanction {
		t.Fatalf("unexpected state: %+v", st)
	}
	if st.CreditScore == nil || *st.CreditScore != 760 {
		t.Fatalf("CreditScore = %v, want 760", st.CreditScore)
	}
	if len(f.llm.calls) != 0 {
		t.Fatal("underwriting must not call the text generator")
	}
}

func TestUnderwritingLowScoreRejectsToGreeting(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, func(s *statex.Session) {
		s.CurrentRole = statex.RoleUnderwriting
		s.Phone = "9988776655"
		s.LoanAmount = statex.Float(50000)
	})

	out := f.handoffTurn(t, statex.RoleUnderwriting)
	expectHandoff(t, out, statex.RoleUnderwriting, statex.RoleGreeting)

	st := f.session(t)
	if st.IsApproved || st.RejectionReason == "" || st.CurrentRole != statex.RoleGreeting {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestUnderwritingDefaultsUnknownApplicant(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, func(s *statex.Session) {
		s.CurrentRole = statex.RoleUnderwriting
		s.Phone = "9000000001"
		s.PAN = "MNOPQ4321Z"
	})

	out := f.handoffTurn(t, statex.RoleUnderwriting)
	expectHandoff(t, out, statex.RoleUnderwriting, statex.RoleSanction)

	st := f.session(t)
	if *st.CreditScore != DefaultCreditScore || st.Amount() != 100000 || st.Limit() != 150000 {
		t.Fatalf("unexpected defaults: score=%d amount=%v limit=%v", *st.CreditScore, st.Amount(), st.Limit())
	}
}

func TestUnderwritingZeroAmountUsesDefault(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, func(s *statex.Session) {
		s.CurrentRole = statex.RoleUnderwriting
		s.Phone = "9876543210"
		s.PreApprovedLimit = statex.Float(500000)
		s.LoanAmount = statex.Float(0)
	})

	out := f.handoffTurn(t, statex.RoleUnderwriting)
	expectHandoff(t, out, statex.RoleUnderwriting, statex.RoleSanction)
	if strings.Contains(out.Reply, "₹0") {
		t.Fatalf("zero amount must not be approved as is: %q", out.Reply)
	}
	if st := f.session(t); st.Amount() != 100000 {
		t.Fatalf("Amount = %v, want default 100000", st.Amount())
	}
}

func TestUnderwritingSalarySlipFlow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, func(s *statex.Session) {
		s.CurrentRole = statex.RoleUnderwriting
		s.Phone = "9123456780"
		s.LoanAmount = statex.Float(450000)
		s.LoanTenure = statex.Int(36)
	})

	out := f.handoffTurn(t, statex.RoleUnderwriting)
	expectNoHandoff(t, out)
	if !strings.Contains(out.Reply, "salary slip") {
		t.Fatalf("Reply = %q", out.Reply)
	}
	st := f.session(t)
	if st.CurrentRole != statex.RoleUnderwriting || st.Limit() != 300000 {
		t.Fatalf("unexpected state: %+v", st)
	}

	out = f.handle(t, statex.RoleUnderwriting, "I have uploaded my salary slip")
	expectHandoff(t, out, statex.RoleUnderwriting, statex.RoleSanction)
	st = f.session(t)
	if !st.SalarySlipUploaded || !st.IsApproved {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestUnderwritingExceedsDoubleLimit(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, func(s *statex.Session) {
		s.CurrentRole = statex.RoleUnderwriting
		s.Phone = "9123456780"
		s.LoanAmount = statex.Float(900000)
	})

	out := f.handoffTurn(t, statex.RoleUnderwriting)
	expectHandoff(t, out, statex.RoleUnderwriting, statex.RoleSales)
	if !strings.Contains(out.Reply, "₹600,000") {
		t.Fatalf("counter-offer missing: %q", out.Reply)
	}
	if st := f.session(t); st.IsApproved || st.CurrentRole != statex.RoleSales {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestSanctionRequiresApproval(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, func(s *statex.Session) { s.CurrentRole = statex.RoleSanction })

	out := f.handoffTurn(t, statex.RoleSanction)
	if out.Reply != notApprovedReply {
		t.Fatalf("Reply = %q", out.Reply)
	}
	if len(f.exporter.letters) != 0 || len(f.publisher.events) != 0 {
		t.Fatal("refusal must have no side effects")
	}
}

func TestSanctionIssuesOnceAndReuses(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, func(s *statex.Session) {
		s.Name = "Rahul Sharma"
		s.LoanAmount = statex.Float(400000)
		s.LoanTenure = statex.Int(24)
		s.Approve()
	})

	out := f.handoffTurn(t, statex.RoleSanction)
	if !strings.Contains(out.Reply, "/download/letter.txt") || !strings.Contains(out.Reply, "HC/SESS-000/20260314") {
		t.Fatalf("Reply = %q", out.Reply)
	}
	if len(f.exporter.letters) != 1 {
		t.Fatalf("exports = %d, want 1", len(f.exporter.letters))
	}
	letter := f.exporter.letters[0]
	if letter.ProcessingFee != 4000 || letter.InterestRate != 10.99 || letter.TenureMonths != 24 {
		t.Fatalf("unexpected letter terms: %+v", letter)
	}
	if len(f.publisher.events) != 1 || f.publisher.events[0].Type != EventLoanSanctioned {
		t.Fatalf("events = %+v", f.publisher.events)
	}

	first := f.session(t)
	out = f.handle(t, statex.RoleSanction, "send it again")
	if !strings.Contains(out.Reply, first.SanctionLetterURL) {
		t.Fatalf("Reply = %q", out.Reply)
	}
	second := f.session(t)
	if len(f.exporter.letters) != 1 || len(second.AuditLog) != len(first.AuditLog) || second.Amount() != first.Amount() {
		t.Fatal("re-invocation must reuse the existing letter without side effects")
	}
}

func TestSanctionPublishFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.publisher.err = errors.New("qstash down")
	f.seed(t, func(s *statex.Session) {
		s.LoanAmount = statex.Float(100000)
		s.Approve()
	})

	f.handoffTurn(t, statex.RoleSanction)
	if st := f.session(t); st.SanctionLetterURL == "" {
		t.Fatal("letter must be recorded even when publishing fails")
	}
}

func TestSanctionPropagatesInfrastructureErrors(t *testing.T) {
	t.Parallel()

	mem := statex.NewMemoryStore()
	st := statex.NewSession("s-err", testNow)
	st.LoanAmount = statex.Float(100000)
	st.Approve()
	if err := mem.Save(context.Background(), st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reg, err := NewRegistry(Deps{
		Store:     failingStore{Store: mem},
		Completer: &scriptedCompleter{},
		Reference: reference.Default(),
		Exporter:  &countingExporter{},
		Prompts:   promptx.LoadPromptSet(),
		Now:       func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	h, _ := reg.Handler(statex.RoleSanction)
	if _, err := h.Handle(context.Background(), contractx.Turn{SessionID: "s-err", Message: "x"}); err == nil {
		t.Fatal("expected store failure to propagate")
	}

	exp := &countingExporter{err: errors.New("read-only fs")}
	reg, _ = NewRegistry(Deps{
		Store:     mem,
		Completer: &scriptedCompleter{},
		Reference: reference.Default(),
		Exporter:  exp,
		Prompts:   promptx.LoadPromptSet(),
	})
	h, _ = reg.Handler(statex.RoleSanction)
	if _, err := h.Handle(context.Background(), contractx.Turn{SessionID: "s-err", Message: "x"}); err == nil {
		t.Fatal("expected exporter failure to propagate")
	}
}
