package llm

import (
	"context"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	contractx "github.com/tanpawarit/Chative-Loan-Origination/agent/contract"
	openrouterx "github.com/tanpawarit/Chative-Loan-Origination/pkg/openrouter"
)

// CompletionsGenerator calls the chat completions endpoint directly through
// the OpenAI SDK.
type CompletionsGenerator struct {
	client *openaisdk.Client
	cfg    Config
}

var _ contractx.TextGenerator = (*CompletionsGenerator)(nil)

func NewCompletionsGenerator(cfg Config) (*CompletionsGenerator, error) {
	client := openrouterx.NewClient(cfg.OpenRouterFor(""))
	if client == nil {
		return nil, fmt.Errorf("%w: llm api key is required", contractx.ErrValidation)
	}
	return &CompletionsGenerator{client: client, cfg: cfg}, nil
}

func (g *CompletionsGenerator) Generate(ctx context.Context, req contractx.GenerateRequest) (string, error) {
	rc := g.cfg.OpenRouterFor(req.Role)

	params := openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(rc.Model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(req.System),
			openaisdk.UserMessage(req.Input),
		},
		Temperature: openaisdk.Float(float64(rc.Temperature)),
	}
	if rc.MaxCompletionToken != nil && *rc.MaxCompletionToken > 0 {
		params.MaxCompletionTokens = openaisdk.Int(int64(*rc.MaxCompletionToken))
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: role=%s: %v", contractx.ErrModelInvoke, req.Role, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", contractx.ErrSchemaViolation)
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: empty model response", contractx.ErrSchemaViolation)
	}
	return content, nil
}
