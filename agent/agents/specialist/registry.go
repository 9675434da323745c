package specialist

import (
	"errors"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/Chative-Loan-Origination/agent/contract"
	promptx "github.com/tanpawarit/Chative-Loan-Origination/agent/prompt"
	"github.com/tanpawarit/Chative-Loan-Origination/agent/reference"
	statex "github.com/tanpawarit/Chative-Loan-Origination/agent/state"
)

// Deps are the collaborators shared by every role handler.
type Deps struct {
	Store     statex.Store
	Completer contractx.Completer
	Reference reference.Provider
	Exporter  Exporter
	// Publisher is optional; sanction events are dropped when nil.
	Publisher contractx.EventPublisher
	Prompts   promptx.PromptSet
	Now       func() time.Time
}

func (d Deps) validate() error {
	if d.Store == nil {
		return errors.New("state store is required")
	}
	if d.Completer == nil {
		return errors.New("text completer is required")
	}
	if d.Reference == nil {
		return errors.New("reference provider is required")
	}
	if d.Exporter == nil {
		return errors.New("sanction exporter is required")
	}
	return d.Prompts.Validate()
}

type registryImpl struct {
	handlers map[statex.Role]contractx.RoleHandler
}

func (r *registryImpl) Handler(role statex.Role) (contractx.RoleHandler, error) {
	h, ok := r.handlers[role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", contractx.ErrUnknownRole, role)
	}
	return h, nil
}

func NewRegistry(deps Deps) (contractx.Registry, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	base := roleBase{store: deps.Store, now: deps.Now}
	return &registryImpl{
		handlers: map[statex.Role]contractx.RoleHandler{
			statex.RoleGreeting: &greeting{
				roleBase: base,
				llm:      deps.Completer,
				prompt:   deps.Prompts.Greeting,
			},
			statex.RoleSales: &sales{
				roleBase: base,
				llm:      deps.Completer,
				ref:      deps.Reference,
				prompt:   deps.Prompts.Sales,
			},
			statex.RoleVerification: &verification{
				roleBase: base,
				llm:      deps.Completer,
				ref:      deps.Reference,
				prompt:   deps.Prompts.Verification,
			},
			statex.RoleUnderwriting: &underwriting{
				roleBase: base,
				ref:      deps.Reference,
			},
			statex.RoleSanction: &sanction{
				roleBase:  base,
				exporter:  deps.Exporter,
				publisher: deps.Publisher,
			},
		},
	}, nil
}
