package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jwitts1998/social-graph-v2-sub000/internal/ai"
	"github.com/jwitts1998/social-graph-v2-sub000/internal/ai/gemini"
	"github.com/jwitts1998/social-graph-v2-sub000/internal/ai/openai"
	"github.com/jwitts1998/social-graph-v2-sub000/internal/logger"
	"github.com/jwitts1998/social-graph-v2-sub000/internal/matching"
	"github.com/jwitts1998/social-graph-v2-sub000/internal/secrets"
	"github.com/jwitts1998/social-graph-v2-sub000/internal/store/postgres"
	"github.com/jwitts1998/social-graph-v2-sub000/internal/suggest"
)

func openDatabase(ctx context.Context, cfg *DatabaseConfig) (*postgres.DB, error) {
	url, err := databaseURL(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w (set database.url, database.url-file or DATABASE_URL)", err)
	}
	return postgres.Connect(ctx, url, cfg.MaxConns)
}

// newExplainer returns nil when explanations are disabled.
func newExplainer(ctx context.Context, cfg *ExplainConfig, log *zap.Logger) (ai.Explainer, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	var (
		generator    ai.Generator
		maxLogLength int
	)

	switch cfg.Provider {
	case gemini.Provider:
		apiKey, err := secrets.Load(secrets.Source{
			Name: "gemini api key",
			File: cfg.Gemini.APIKeyFile,
			Env:  "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set explain.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
		}

		genLogger := logger.WithProvider(log, gemini.Provider, cfg.Gemini.Model).
			With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))

		g, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
		if err != nil {
			return nil, err
		}
		generator, maxLogLength = g, cfg.Gemini.MaxLogLength
	case openai.Provider:
		apiKey, err := secrets.Load(secrets.Source{
			Name: "openai api key",
			File: cfg.OpenAI.APIKeyFile,
			Env:  "OPENAI_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set explain.openai.api-key-file or OPENAI_API_KEY_FILE)", err)
		}

		g, err := openai.NewGenerator(apiKey, cfg.OpenAI.Model)
		if err != nil {
			return nil, err
		}
		generator = g
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	explainer := ai.NewExplainer(generator, cfg.Provider, log, maxLogLength)
	explainer.SetPromptOverrides(ai.PromptOverrides{
		Tone:             cfg.Tone,
		UserInstructions: cfg.Instructions,
	})
	return explainer, nil
}

// newService wires the matching service. A failing explainer setup disables explanations
// instead of aborting the run.
func newService(ctx context.Context, cfg *Config, source suggest.Source, store suggest.Store, log *zap.Logger) (*suggest.Service, error) {
	explainer, err := newExplainer(ctx, cfg.Explain, log)
	if err != nil {
		log.Warn("skipping ai explanations", zap.Error(err))
		explainer = nil
	}

	return suggest.NewService(suggest.Config{
		ExplainMaxCandidates: cfg.Explain.MaxCandidates,
		ExplainMinStars:      cfg.Explain.MinStars,
		ExplainTimeout:       cfg.Explain.Timeout,
	}, suggest.Deps{
		Source:    source,
		Store:     store,
		Engine:    matching.NewEngine(log, cfg.Matching.MaxResults, cfg.Matching.Workers),
		Explainer: explainer,
		Logger:    log,
	})
}
