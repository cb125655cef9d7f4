package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jarvishq/jarvis-server/internal/config"
	"github.com/jarvishq/jarvis-server/internal/domain/alert"
	"github.com/jarvishq/jarvis-server/internal/domain/category"
	"github.com/jarvishq/jarvis-server/internal/domain/expense"
	"github.com/jarvishq/jarvis-server/internal/domain/limitrule"
	"github.com/jarvishq/jarvis-server/internal/domain/user"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database/repository/categoryrepo"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database/repository/expenserepo"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database/repository/limitrulerepo"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database/repository/userrepo"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database/transaction"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/logger"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo data for local development",
	Long: `Creates a fully set-up user with the default categories, a monthly
limit on groceries and a handful of recorded expenses.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().String("identity", "demo:1", "Channel identity for the demo user")
	seedCmd.Flags().String("name", "Demo", "Display name for the demo user")
}

func runSeed(cmd *cobra.Command, args []string) error {
	identity, _ := cmd.Flags().GetString("identity")
	name, _ := cmd.Flags().GetString("name")
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.NewDB(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := database.Migration(db, "jarvis."); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	txDB := transaction.NewDatabase(db)
	users := user.NewService(userrepo.NewUserGormRepository(txDB))
	expenseRepo := expenserepo.NewExpenseGormRepository(txDB)
	categories := category.NewService(categoryrepo.NewCategoryGormRepository(txDB), expenseRepo, cfg.AssistantProfile.FallbackCategory)
	expenses := expense.NewService(expenseRepo)
	ledger := limitrule.NewService(limitrulerepo.NewLimitRuleGormRepository(txDB))
	evaluator := alert.NewEvaluator(ledger, cfg.WarningBandRatio, logger.GetLogger())

	u, created, err := users.EnsureUser(ctx, identity)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	if !created && u.SetupComplete() {
		return fmt.Errorf("user %q already exists, run reset first", identity)
	}
	if err := users.SetDisplayName(ctx, u, name); err != nil {
		return fmt.Errorf("set name: %w", err)
	}
	if err := users.AdvanceSetup(ctx, u, user.SetupStageComplete); err != nil {
		return fmt.Errorf("complete setup: %w", err)
	}

	seeds := make([]category.Seed, 0, len(cfg.AssistantProfile.DefaultCategories))
	for _, c := range cfg.AssistantProfile.DefaultCategories {
		seeds = append(seeds, category.Seed{Name: c.Name, Description: c.Description})
	}
	if err := categories.SeedDefaults(ctx, u.ID, seeds); err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}

	groceries, err := categories.Resolve(ctx, u.ID, "Alimentação")
	if err != nil {
		groceries, err = categories.ResolveOrFallback(ctx, u.ID, "")
		if err != nil {
			return fmt.Errorf("resolve category: %w", err)
		}
	}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	if _, err := ledger.CreateRule(ctx, u.ID, groceries.ID, groceries.Name, limitrule.PeriodMonthly, decimal.NewFromInt(800), monthStart, nil); err != nil {
		return fmt.Errorf("create limit: %w", err)
	}

	demoExpenses := []struct {
		amount      int64
		description string
		daysAgo     int
	}{
		{120, "mercado", 5},
		{85, "feira", 3},
		{42, "padaria", 1},
	}
	for _, d := range demoExpenses {
		at := now.AddDate(0, 0, -d.daysAgo)
		e, err := expenses.Record(ctx, u.ID, groceries.ID, decimal.NewFromInt(d.amount), d.description, at)
		if err != nil {
			return fmt.Errorf("record expense %q: %w", d.description, err)
		}
		if _, err := evaluator.Evaluate(ctx, e); err != nil {
			return fmt.Errorf("apply expense %q to limits: %w", d.description, err)
		}
	}

	fmt.Printf("✓ Seeded user %q with %d categories, 1 limit and %d expenses\n",
		identity, len(seeds), len(demoExpenses))
	return nil
}
