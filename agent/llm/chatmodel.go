package llm

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Loan-Origination/agent/contract"
	statex "github.com/tanpawarit/Chative-Loan-Origination/agent/state"
	openrouterx "github.com/tanpawarit/Chative-Loan-Origination/pkg/openrouter"
)

// ChatModelGenerator runs one compiled prompt→model graph per role.
type ChatModelGenerator struct {
	runners  map[statex.Role]compose.Runnable[map[string]any, *schema.Message]
	fallback compose.Runnable[map[string]any, *schema.Message]
}

var _ contractx.TextGenerator = (*ChatModelGenerator)(nil)

func NewChatModelGenerator(ctx context.Context, cfg Config) (*ChatModelGenerator, error) {
	models := make(map[statex.Role]einomodel.BaseChatModel, len(GenerativeRoles))
	for _, role := range GenerativeRoles {
		m, err := openrouterx.NewChatModel(ctx, cfg.OpenRouterFor(role))
		if err != nil {
			return nil, fmt.Errorf("%w: chat model for role=%s: %v", contractx.ErrModelInvoke, role, err)
		}
		models[role] = m
	}
	return NewChatModelGeneratorFromModels(ctx, models)
}

// NewChatModelGeneratorFromModels compiles a graph per supplied model. The
// first generative role with a model also serves roles without one.
func NewChatModelGeneratorFromModels(ctx context.Context, models map[statex.Role]einomodel.BaseChatModel) (*ChatModelGenerator, error) {
	g := &ChatModelGenerator{runners: make(map[statex.Role]compose.Runnable[map[string]any, *schema.Message], len(models))}
	for _, role := range statex.Roles {
		m, ok := models[role]
		if !ok || m == nil {
			continue
		}
		runner, err := compileGenerateGraph(ctx, m, "llm.generate."+strings.ToLower(string(role)))
		if err != nil {
			return nil, err
		}
		g.runners[role] = runner
		if g.fallback == nil {
			g.fallback = runner
		}
	}
	if g.fallback == nil {
		return nil, fmt.Errorf("%w: no chat model configured", contractx.ErrValidation)
	}
	return g, nil
}

func (g *ChatModelGenerator) Generate(ctx context.Context, req contractx.GenerateRequest) (string, error) {
	runner, ok := g.runners[req.Role]
	if !ok {
		runner = g.fallback
	}
	msg, err := runner.Invoke(ctx, map[string]any{
		"system": req.System,
		"input":  req.Input,
	})
	if err != nil {
		return "", fmt.Errorf("%w: role=%s: %v", contractx.ErrModelInvoke, req.Role, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", fmt.Errorf("%w: empty model response", contractx.ErrSchemaViolation)
	}
	return msg.Content, nil
}

func compileGenerateGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	graphName string,
) (compose.Runnable[map[string]any, *schema.Message], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{input}"),
	)

	graph := compose.NewGraph[map[string]any, *schema.Message]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add generate prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add generate model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add generate edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add generate edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add generate edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile generate graph: %w", err)
	}
	return runner, nil
}
