package domain

import (
	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/jarvishq/jarvis-server/internal/config"
	"github.com/jarvishq/jarvis-server/internal/domain/alert"
	"github.com/jarvishq/jarvis-server/internal/domain/category"
	"github.com/jarvishq/jarvis-server/internal/domain/convo"
	"github.com/jarvishq/jarvis-server/internal/domain/expense"
	"github.com/jarvishq/jarvis-server/internal/domain/limitrule"
	"github.com/jarvishq/jarvis-server/internal/domain/pipeline"
	"github.com/jarvishq/jarvis-server/internal/domain/user"
)

// ServiceProvider wires all domain services
var ServiceProvider = wire.NewSet(
	// User domain
	user.NewService,

	// Categories
	ProvideCategoryService,

	// Expenses
	expense.NewService,

	// Limit rules and alerts
	limitrule.NewService,
	ProvideEvaluator,

	// Conversation history
	convo.NewService,

	// Pipeline
	ProvidePipelineOptions,
	pipeline.NewPipeline,
)

func ProvideCategoryService(repo category.Repository, expenses expense.Repository, cfg *config.Config) *category.Service {
	return category.NewService(repo, expenses, cfg.AssistantProfile.FallbackCategory)
}

func ProvideEvaluator(ledger *limitrule.Service, cfg *config.Config, logger zerolog.Logger) *alert.Evaluator {
	return alert.NewEvaluator(ledger, cfg.WarningBandRatio, logger)
}

func ProvidePipelineOptions(cfg *config.Config) pipeline.Options {
	seeds := make([]category.Seed, 0, len(cfg.AssistantProfile.DefaultCategories))
	for _, c := range cfg.AssistantProfile.DefaultCategories {
		seeds = append(seeds, category.Seed{Name: c.Name, Description: c.Description})
	}
	return pipeline.Options{
		MaxMessageLength:   cfg.MaxMessageLength,
		MaxClarifyAttempts: cfg.MaxClarifyAttempts,
		DefaultCategories:  seeds,
	}
}
