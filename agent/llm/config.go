package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Loan-Origination/agent/contract"
	statex "github.com/tanpawarit/Chative-Loan-Origination/agent/state"
	openrouterx "github.com/tanpawarit/Chative-Loan-Origination/pkg/openrouter"
)

const (
	BackendEino    = "eino"
	BackendOpenAI  = "openai"
	BackendOffline = "offline"
)

type Config struct {
	Backend            string        `envconfig:"BACKEND" split_words:"true" default:"eino"`
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" default:"openai/gpt-4o-mini"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"800"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.4"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	GreetingModel           string  `envconfig:"GREETING_MODEL" split_words:"true"`
	SalesModel              string  `envconfig:"SALES_MODEL" split_words:"true"`
	VerificationModel       string  `envconfig:"VERIFICATION_MODEL" split_words:"true"`
	GreetingTemperature     float32 `envconfig:"GREETING_TEMPERATURE" split_words:"true" default:"-1"`
	SalesTemperature        float32 `envconfig:"SALES_TEMPERATURE" split_words:"true" default:"-1"`
	VerificationTemperature float32 `envconfig:"VERIFICATION_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) backend() string {
	b := strings.ToLower(strings.TrimSpace(c.Backend))
	if b == "" {
		return BackendEino
	}
	return b
}

func (c Config) Validate() error {
	switch c.backend() {
	case BackendOffline:
		return nil
	case BackendEino, BackendOpenAI:
	default:
		return fmt.Errorf("%w: unknown llm backend %q", contractx.ErrValidation, c.Backend)
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: llm api key is required for backend %s", contractx.ErrValidation, c.backend())
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// OpenRouterFor resolves the model settings for role, falling back to the
// defaults when no per-role override is set.
func (c Config) OpenRouterFor(role statex.Role) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	override := func(m string, t float32) {
		if v := strings.TrimSpace(m); v != "" {
			modelName = v
		}
		if t >= 0 {
			temp = t
		}
	}
	switch role {
	case statex.RoleGreeting:
		override(c.GreetingModel, c.GreetingTemperature)
	case statex.RoleSales:
		override(c.SalesModel, c.SalesTemperature)
	case statex.RoleVerification:
		override(c.VerificationModel, c.VerificationTemperature)
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

// GenerativeRoles are the roles that call the text generator.
var GenerativeRoles = []statex.Role{statex.RoleGreeting, statex.RoleSales, statex.RoleVerification}
