package contract

import (
	"time"

	statex "github.com/tanpawarit/Chative-Loan-Origination/agent/state"
)

// Turn is one invocation of a role handler.
type Turn struct {
	SessionID string
	Message   string
	// FromHandoff is set when Message is the orchestrator's synthetic handoff text.
	FromHandoff bool
	Now         time.Time
}

// Handoff is the typed transition event a role returns after changing the
// session's current role.
type Handoff struct {
	From statex.Role `json:"from"`
	To   statex.Role `json:"to"`
}

type TurnResult struct {
	Reply   string   `json:"reply"`
	Handoff *Handoff `json:"handoff,omitempty"`
}

func Reply(text string) TurnResult {
	return TurnResult{Reply: text}
}

func HandoffReply(text string, from, to statex.Role) TurnResult {
	return TurnResult{
		Reply:   text,
		Handoff: &Handoff{From: from, To: to},
	}
}

// handoffMessages holds the synthetic message sent to a role entered by handoff.
var handoffMessages = map[statex.Role]string{
	statex.RoleGreeting:     "[HANDOFF] Application closed, returning to greeting",
	statex.RoleSales:        "[HANDOFF] User interested in loan",
	statex.RoleVerification: "[HANDOFF] New user needs verification",
	statex.RoleUnderwriting: "[HANDOFF] User verified, needs underwriting",
	statex.RoleSanction:     "[HANDOFF] User approved, generate letter",
}

func HandoffMessage(to statex.Role) string {
	if msg, ok := handoffMessages[to]; ok {
		return msg
	}
	return "[HANDOFF] " + string(to)
}

type GenerateRequest struct {
	Role   statex.Role `json:"role"`
	Task   string      `json:"task"`
	System string      `json:"system"`
	Input  string      `json:"input"`
}

type Completion struct {
	Text     string `json:"text"`
	Degraded bool   `json:"degraded"`
}

// TurnOutput is what the conversation endpoint returns for one inbound message.
type TurnOutput struct {
	SessionID string          `json:"session_id"`
	AgentName statex.Role     `json:"agent_name"`
	Message   string          `json:"message"`
	Snapshot  *statex.Session `json:"state_snapshot"`
}

type Event struct {
	Type       string         `json:"type"`
	SessionID  string         `json:"session_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

// Generation tasks. TaskReply produces a conversational reply; the extract
// tasks expect a bare value back.
const (
	TaskReply        = "reply"
	TaskExtractPhone = "extract_phone"
)
