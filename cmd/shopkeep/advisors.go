package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/Veraticus/shopkeep/internal/advisory"
	"github.com/Veraticus/shopkeep/internal/common"
	"github.com/Veraticus/shopkeep/internal/config"
	"github.com/Veraticus/shopkeep/internal/llm"
	"github.com/Veraticus/shopkeep/internal/search"
)

// advisors holds the advisory stages for a run and the resources behind them.
type advisors struct {
	planner     advisory.Planner
	researcher  advisory.Researcher
	verifier    advisory.Verifier
	synthesizer advisory.Synthesizer
	closers     []func()
}

func (a *advisors) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildAdvisors wires the advisory stages from configuration. Offline mode
// replaces the LLM stages with the degraded payload; research still uses the
// search provider.
func buildAdvisors(ctx context.Context, offline bool, logger *slog.Logger) (*advisors, error) {
	v := viper.GetViper()
	advisoryCfg := config.LoadAdvisoryConfig(v)

	payload, err := advisory.LoadPayload(advisoryCfg.PayloadPath)
	if err != nil {
		return nil, err
	}

	a := &advisors{}
	if err := a.withResearcher(v, logger); err != nil {
		a.Close()
		return nil, err
	}

	if offline {
		degraded := advisory.NewDegradedAdvisor(payload, nil)
		a.planner = degraded.Planner
		a.verifier = degraded.Verifier
		a.synthesizer = degraded.Synthesizer
		return a, nil
	}

	if err := a.withLLM(ctx, v, advisoryCfg, payload, logger); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *advisors) withResearcher(v *viper.Viper, logger *slog.Logger) error {
	searchCfg, err := config.LoadSearchConfig(v)
	if err != nil {
		return err
	}

	tavily, err := search.NewTavilyClient(searchCfg.Tavily)
	if err != nil {
		return fmt.Errorf("failed to create search client: %w", err)
	}
	cache := search.NewCachingClient(tavily, searchCfg.CacheTTL, logger)
	a.closers = append(a.closers, cache.Close)

	researcher := advisory.NewWebResearcher(cache, advisory.ResearcherConfig{
		Logger:            logger,
		Depth:             searchCfg.Tavily.Depth,
		MaxSourcesPerTask: searchCfg.MaxSourcesPerTask,
		MaxResults:        searchCfg.Tavily.MaxResults,
		RateLimit:         searchCfg.RateLimit,
		Retry: common.RetryOptions{
			MaxAttempts:  searchCfg.MaxRetries,
			InitialDelay: searchCfg.RetryDelay,
		},
	})
	a.closers = append(a.closers, researcher.Close)
	a.researcher = researcher
	return nil
}

func (a *advisors) withLLM(ctx context.Context, v *viper.Viper, cfg config.AdvisoryConfig, payload *advisory.Payload, logger *slog.Logger) error {
	llmCfg, err := config.LoadLLMConfig(v)
	if err != nil {
		return err
	}

	client, err := llm.NewClient(ctx, llmCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	a.closers = append(a.closers, func() {
		if err := client.Close(); err != nil {
			logger.Debug("failed to close LLM client", "error", err)
		}
	})

	opts := []advisory.Option{
		advisory.WithLogger(logger),
		advisory.WithCurrency(cfg.Currency),
	}
	if cfg.DegradedMode {
		opts = append(opts, advisory.WithFallback(payload))
	}

	if a.planner, err = advisory.NewLLMPlanner(client, opts...); err != nil {
		return err
	}
	if a.verifier, err = advisory.NewLLMVerifier(client, opts...); err != nil {
		return err
	}
	if a.synthesizer, err = advisory.NewLLMSynthesizer(client, opts...); err != nil {
		return err
	}
	return nil
}
