// Package alert evaluates spending limit rules against freshly recorded
// expenses and produces edge-triggered threshold alerts.
package alert

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jarvishq/jarvis-server/internal/domain/expense"
	"github.com/jarvishq/jarvis-server/internal/domain/limitrule"
)

// Severity orders alert levels; Exceeded outranks Warning.
type Severity int

const (
	SeverityWarning Severity = iota + 1
	SeverityExceeded
)

// Alert is one threshold crossing for one rule, raised by the expense that
// pushed the total over the edge.
type Alert struct {
	Severity     Severity
	CategoryName string
	PeriodKind   limitrule.PeriodKind
	LimitAmount  decimal.Decimal
	CurrentTotal decimal.Decimal
	Remaining    decimal.Decimal
	Ratio        decimal.Decimal
}

// Evaluator applies each new expense to the rules covering its category and
// classifies the resulting totals. warningBand is the fraction of the limit
// where the warning fires (0.9 warns at 90%).
type Evaluator struct {
	ledger      *limitrule.Service
	warningBand decimal.Decimal
	logger      zerolog.Logger
}

// NewEvaluator constructs an Evaluator with required dependencies.
func NewEvaluator(ledger *limitrule.Service, warningBand float64, logger zerolog.Logger) *Evaluator {
	return &Evaluator{
		ledger:      ledger,
		warningBand: decimal.NewFromFloat(warningBand),
		logger:      logger.With().Str("component", "limit-evaluator").Logger(),
	}
}

// Evaluate rolls each covering rule forward to the expense time, applies the
// expense amount, and returns at most one alert per rule. Alerts fire only
// when the total crosses a threshold on this delta; sitting above a threshold
// stays silent. A rule that changes underneath the update is retried once
// against fresh state; a second conflict drops that rule's alert and never
// fails the caller.
func (ev *Evaluator) Evaluate(ctx context.Context, e *expense.Expense) ([]Alert, error) {
	rules, err := ev.ledger.ActiveRulesForCategory(ctx, e.UserID, e.CategoryID)
	if err != nil {
		return nil, err
	}

	var alerts []Alert
	for _, rule := range rules {
		a, err := ev.evaluateRule(ctx, rule, e)
		if err != nil {
			if limitrule.IsStale(err) {
				fresh, refErr := ev.ledger.Refresh(ctx, rule)
				if refErr != nil {
					ev.logger.Warn().Err(refErr).Str("rule_id", rule.PublicID).Msg("refresh after stale update failed, skipping rule")
					continue
				}
				if !fresh.Active {
					continue
				}
				a, err = ev.evaluateRule(ctx, fresh, e)
				if err != nil {
					ev.logger.Warn().Err(err).Str("rule_id", rule.PublicID).Msg("limit update conflicted twice, suppressing alert")
					continue
				}
			} else {
				return alerts, err
			}
		}
		if a != nil {
			alerts = append(alerts, *a)
		}
	}
	return alerts, nil
}

func (ev *Evaluator) evaluateRule(ctx context.Context, rule *limitrule.Rule, e *expense.Expense) (*Alert, error) {
	if _, err := ev.ledger.RolloverIfDue(ctx, rule, e.CreatedAt); err != nil {
		return nil, err
	}

	before := rule.CurrentTotal
	if err := ev.ledger.ApplyDelta(ctx, rule, e.Amount, e.PublicID, e.CreatedAt); err != nil {
		return nil, err
	}
	after := rule.CurrentTotal

	sev, ok := ev.classify(before, after, rule.LimitAmount)
	if !ok {
		return nil, nil
	}

	ratio := decimal.NewFromInt(1)
	if rule.LimitAmount.IsPositive() {
		ratio = after.Div(rule.LimitAmount)
	}
	return &Alert{
		Severity:     sev,
		CategoryName: rule.CategoryName,
		PeriodKind:   rule.PeriodKind,
		LimitAmount:  rule.LimitAmount,
		CurrentTotal: after,
		Remaining:    rule.LimitAmount.Sub(after),
		Ratio:        ratio,
	}, nil
}

// classify is edge-triggered: a level fires only when before sat under its
// threshold and after reached it. Exceeded wins when both edges are crossed
// by the same delta.
func (ev *Evaluator) classify(before, after, limit decimal.Decimal) (Severity, bool) {
	if !limit.IsPositive() {
		return 0, false
	}

	warnAt := limit.Mul(ev.warningBand)
	switch {
	case before.LessThan(limit) && after.GreaterThanOrEqual(limit):
		return SeverityExceeded, true
	case before.LessThan(warnAt) && after.GreaterThanOrEqual(warnAt) && after.LessThan(limit):
		return SeverityWarning, true
	}
	return 0, false
}
