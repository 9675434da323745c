package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/Chative-Loan-Origination/agent/agents/orchestrator"
	"github.com/tanpawarit/Chative-Loan-Origination/agent/agents/specialist"
	contractx "github.com/tanpawarit/Chative-Loan-Origination/agent/contract"
	"github.com/tanpawarit/Chative-Loan-Origination/agent/llm"
	promptx "github.com/tanpawarit/Chative-Loan-Origination/agent/prompt"
	"github.com/tanpawarit/Chative-Loan-Origination/agent/reference"
	statex "github.com/tanpawarit/Chative-Loan-Origination/agent/state"
	configx "github.com/tanpawarit/Chative-Loan-Origination/pkg/config"
	qstashx "github.com/tanpawarit/Chative-Loan-Origination/pkg/qstash"
)

const (
	StoreMemory   = "memory"
	StoreUpstash  = "upstash"
	StorePostgres = "postgres"
)

type AppConfig struct {
	Port           int           `split_words:"true" default:"8080"`
	StateBackend   string        `split_words:"true" default:"memory"`
	ReferenceData  string        `split_words:"true"`
	ArtifactDir    string        `split_words:"true" default:"generated_letters"`
	DownloadPrefix string        `split_words:"true" default:"/download/"`
	ShutdownGrace  time.Duration `split_words:"true" default:"10s"`
}

// App is the fully wired service graph shared by the serve and chat commands.
type App struct {
	Config       AppConfig
	Orchestrator *orchestrator.Orchestrator
	Catalog      *reference.Catalog

	closers []io.Closer
}

func (a *App) Close() error {
	var firstErr error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Build loads every config section from the environment and wires the app.
func Build(ctx context.Context) (*App, error) {
	appCfg, err := configx.New[AppConfig]("APP")
	if err != nil {
		return nil, fmt.Errorf("load app config: %w", err)
	}
	llmCfg, err := configx.New[llm.Config]("LLM")
	if err != nil {
		return nil, fmt.Errorf("load llm config: %w", err)
	}
	qstashCfg, err := configx.New[qstashx.Config]("QSTASH")
	if err != nil {
		return nil, fmt.Errorf("load qstash config: %w", err)
	}

	app := &App{Config: *appCfg}
	store, err := newStore(ctx, app)
	if err != nil {
		return nil, err
	}

	var publisher contractx.EventPublisher
	if qstashCfg.Enabled() {
		client, err := qstashx.NewClient(*qstashCfg)
		if err != nil {
			return nil, fmt.Errorf("init qstash: %w", err)
		}
		publisher = client
	}

	return wire(ctx, app, store, *llmCfg, publisher)
}

func wire(ctx context.Context, app *App, store statex.Store, llmCfg llm.Config, publisher contractx.EventPublisher) (*App, error) {
	catalog, err := reference.Load(app.Config.ReferenceData)
	if err != nil {
		return nil, fmt.Errorf("load reference data: %w", err)
	}
	exporter, err := specialist.NewFileExporter(app.Config.ArtifactDir, app.Config.DownloadPrefix)
	if err != nil {
		return nil, err
	}
	gen, err := llm.NewGenerator(ctx, llmCfg)
	if err != nil {
		return nil, fmt.Errorf("init llm backend: %w", err)
	}

	roles, err := specialist.NewRegistry(specialist.Deps{
		Store:     store,
		Completer: llm.NewGuarded(gen, llmCfg.Timeout),
		Reference: catalog,
		Exporter:  exporter,
		Publisher: publisher,
		Prompts:   promptx.LoadPromptSet(),
	})
	if err != nil {
		return nil, fmt.Errorf("build role registry: %w", err)
	}

	orch, err := orchestrator.New(store, roles)
	if err != nil {
		return nil, err
	}

	app.Orchestrator = orch
	app.Catalog = catalog
	log.Info().
		Str("state_backend", app.Config.StateBackend).
		Str("llm_backend", llmCfg.Backend).
		Bool("events", publisher != nil).
		Msg("loan origination service wired")
	return app, nil
}

func newStore(ctx context.Context, app *App) (statex.Store, error) {
	switch strings.ToLower(strings.TrimSpace(app.Config.StateBackend)) {
	case "", StoreMemory:
		return statex.NewMemoryStore(), nil
	case StoreUpstash:
		cfg, err := configx.New[statex.UpstashRedisConfig]("UPSTASH")
		if err != nil {
			return nil, fmt.Errorf("load upstash config: %w", err)
		}
		return statex.NewUpstashRedisStore(*cfg)
	case StorePostgres:
		cfg, err := configx.New[statex.PostgresConfig]("POSTGRES")
		if err != nil {
			return nil, fmt.Errorf("load postgres config: %w", err)
		}
		store, err := statex.NewPostgresStore(ctx, *cfg)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, store)
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown state backend %q", contractx.ErrValidation, app.Config.StateBackend)
	}
}
