// Package limitrule implements the spending limit ledger: per-category rules
// with incrementally maintained running totals and lazily rolled periods.
package limitrule

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jarvishq/jarvis-server/internal/utils/idgen"
	"github.com/jarvishq/jarvis-server/internal/utils/platformerrors"
)

// PeriodKind is the cadence a rule's window advances on.
type PeriodKind string

const (
	PeriodDaily   PeriodKind = "daily"
	PeriodWeekly  PeriodKind = "weekly"
	PeriodMonthly PeriodKind = "monthly"
	PeriodCustom  PeriodKind = "custom"
)

// ParsePeriodKind maps a wire string (including the Portuguese aliases users
// type) onto a known period kind.
func ParsePeriodKind(raw string) (PeriodKind, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "daily", "diário", "diario", "dia":
		return PeriodDaily, true
	case "weekly", "semanal", "semana":
		return PeriodWeekly, true
	case "monthly", "mensal", "mês", "mes":
		return PeriodMonthly, true
	case "custom", "personalizado":
		return PeriodCustom, true
	}
	return "", false
}

// Rule is a spending limit over one category and cadence. CurrentTotal is
// maintained incrementally by delta application, never recomputed from the
// expense table. A soft-deleted rule keeps its row with Active false.
type Rule struct {
	ID           uint
	PublicID     string
	UserID       uint
	CategoryID   uint
	CategoryName string
	PeriodKind   PeriodKind
	PeriodStart  time.Time
	PeriodEnd    *time.Time
	LimitAmount  decimal.Decimal
	CurrentTotal decimal.Decimal
	LastDeltaKey *string
	LastUpdated  time.Time
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Window returns the rule's current [start, end) accounting window.
func (r *Rule) Window() (time.Time, time.Time) {
	return r.PeriodStart, windowEnd(r.PeriodKind, r.PeriodStart, r.PeriodEnd)
}

// Usage returns spend as a fraction of the limit; zero limits report 1.
func (r *Rule) Usage() decimal.Decimal {
	if r.LimitAmount.LessThanOrEqual(decimal.Zero) {
		return decimal.NewFromInt(1)
	}
	return r.CurrentTotal.Div(r.LimitAmount)
}

func windowEnd(kind PeriodKind, start time.Time, end *time.Time) time.Time {
	switch kind {
	case PeriodDaily:
		return start.AddDate(0, 0, 1)
	case PeriodWeekly:
		return start.AddDate(0, 0, 7)
	case PeriodMonthly:
		return start.AddDate(0, 1, 0)
	default:
		if end != nil {
			return *end
		}
		return start.AddDate(0, 1, 0)
	}
}

// NextWindow advances the rule's window until at falls inside it, returning
// the new bounds and whether any advance happened. Pure; callers persist.
func NextWindow(r *Rule, at time.Time) (time.Time, time.Time, bool) {
	start := r.PeriodStart
	end := windowEnd(r.PeriodKind, start, r.PeriodEnd)
	advanced := false

	for !at.Before(end) {
		switch r.PeriodKind {
		case PeriodCustom:
			length := end.Sub(start)
			if length <= 0 {
				return start, end, advanced
			}
			start = end
			end = end.Add(length)
		default:
			start = end
			end = windowEnd(r.PeriodKind, start, nil)
		}
		advanced = true
	}

	return start, end, advanced
}

// Repository defines storage operations for limit rules. ApplyDelta and
// ResetWindow are single-statement updates guarded by the active flag; a
// zero affected-row count signals the rule changed underneath the caller.
type Repository interface {
	Create(ctx context.Context, r *Rule) error
	FindByID(ctx context.Context, id uint) (*Rule, error)
	FindActiveByUser(ctx context.Context, userID uint) ([]*Rule, error)
	FindActiveByUserAndCategory(ctx context.Context, userID, categoryID uint) ([]*Rule, error)
	FindActiveByUserCategoryKind(ctx context.Context, userID, categoryID uint, kind PeriodKind) (*Rule, error)
	ApplyDelta(ctx context.Context, ruleID uint, delta decimal.Decimal, deltaKey string, at time.Time) (int64, error)
	ResetWindow(ctx context.Context, ruleID uint, newStart time.Time, newEnd *time.Time, at time.Time) (int64, error)
	Deactivate(ctx context.Context, ruleID uint) error
}

// Service owns the limit rule lifecycle.
type Service struct {
	repo Repository
}

// NewService constructs a Service with required dependencies.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateRule registers a limit. One active rule per (user, category, kind);
// rules with different kinds on the same category coexist.
func (s *Service) CreateRule(ctx context.Context, userID, categoryID uint, categoryName string, kind PeriodKind, limit decimal.Decimal, periodStart time.Time, periodEnd *time.Time) (*Rule, error) {
	if limit.LessThanOrEqual(decimal.Zero) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"limit amount must be positive", nil, "7c8e1b2a-3d4f-4a5b-8c9d-e0f1a2b3c001")
	}
	if kind == PeriodCustom {
		if periodEnd == nil || !periodEnd.After(periodStart) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
				"custom period requires an end after its start", nil, "7c8e1b2a-3d4f-4a5b-8c9d-e0f1a2b3c002")
		}
	}

	existing, err := s.repo.FindActiveByUserCategoryKind(ctx, userID, categoryID, kind)
	if err != nil && !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict,
			"an active limit already exists for this category and period", nil, "7c8e1b2a-3d4f-4a5b-8c9d-e0f1a2b3c003",
			map[string]any{"category": categoryName, "period_kind": string(kind)})
	}

	publicID, err := idgen.GenerateSecureID("rule", 16)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"generate rule id", err, "7c8e1b2a-3d4f-4a5b-8c9d-e0f1a2b3c004")
	}

	now := time.Now().UTC()
	r := &Rule{
		PublicID:     publicID,
		UserID:       userID,
		CategoryID:   categoryID,
		CategoryName: categoryName,
		PeriodKind:   kind,
		PeriodStart:  periodStart.UTC(),
		LimitAmount:  limit,
		CurrentTotal: decimal.Zero,
		LastUpdated:  now,
		Active:       true,
	}
	if periodEnd != nil {
		end := periodEnd.UTC()
		r.PeriodEnd = &end
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// ActiveRules returns all active rules for the user.
func (s *Service) ActiveRules(ctx context.Context, userID uint) ([]*Rule, error) {
	return s.repo.FindActiveByUser(ctx, userID)
}

// ActiveRulesForCategory returns the active rules covering one category.
func (s *Service) ActiveRulesForCategory(ctx context.Context, userID, categoryID uint) ([]*Rule, error) {
	return s.repo.FindActiveByUserAndCategory(ctx, userID, categoryID)
}

// RolloverIfDue advances the rule window so that at falls inside it,
// persisting the reset and zeroing the in-memory total. Reports whether the
// window moved. Rollover only ever happens here, on the read/evaluate path.
func (s *Service) RolloverIfDue(ctx context.Context, r *Rule, at time.Time) (bool, error) {
	newStart, newEnd, advanced := NextWindow(r, at.UTC())
	if !advanced {
		return false, nil
	}

	var endPtr *time.Time
	if r.PeriodKind == PeriodCustom {
		endPtr = &newEnd
	}
	affected, err := s.repo.ResetWindow(ctx, r.ID, newStart, endPtr, at.UTC())
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, staleError(ctx, r)
	}

	r.PeriodStart = newStart
	r.PeriodEnd = endPtr
	r.CurrentTotal = decimal.Zero
	r.LastDeltaKey = nil
	r.LastUpdated = at.UTC()
	return true, nil
}

// ApplyDelta adds amount to the rule's running total under the rule's active
// guard. deltaKey makes the application idempotent: re-applying the same key
// is a no-op. A rule deactivated underneath the caller yields a STALE error.
func (s *Service) ApplyDelta(ctx context.Context, r *Rule, amount decimal.Decimal, deltaKey string, at time.Time) error {
	affected, err := s.repo.ApplyDelta(ctx, r.ID, amount, deltaKey, at.UTC())
	if err != nil {
		return err
	}
	if affected == 0 {
		current, findErr := s.repo.FindByID(ctx, r.ID)
		if findErr == nil && current.LastDeltaKey != nil && *current.LastDeltaKey == deltaKey {
			// Already applied under this key.
			*r = *current
			return nil
		}
		return staleError(ctx, r)
	}

	r.CurrentTotal = r.CurrentTotal.Add(amount)
	r.LastDeltaKey = &deltaKey
	r.LastUpdated = at.UTC()
	return nil
}

// Refresh reloads the rule from storage.
func (s *Service) Refresh(ctx context.Context, r *Rule) (*Rule, error) {
	return s.repo.FindByID(ctx, r.ID)
}

// Deactivate soft-deletes the rule. Repeated calls are no-ops.
func (s *Service) Deactivate(ctx context.Context, r *Rule) error {
	if err := s.repo.Deactivate(ctx, r.ID); err != nil {
		return err
	}
	r.Active = false
	return nil
}

// DeactivateForCategory removes every active rule on a category, returning
// how many were deactivated.
func (s *Service) DeactivateForCategory(ctx context.Context, userID, categoryID uint) (int, error) {
	rules, err := s.repo.FindActiveByUserAndCategory(ctx, userID, categoryID)
	if err != nil {
		return 0, err
	}
	for _, r := range rules {
		if err := s.Deactivate(ctx, r); err != nil {
			return 0, err
		}
	}
	return len(rules), nil
}

// IsStale reports whether err is the concurrency conflict raised when a rule
// changed underneath a guarded update.
func IsStale(err error) bool {
	return platformerrors.IsErrorType(err, platformerrors.ErrorTypeStale)
}

func staleError(ctx context.Context, r *Rule) error {
	return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeStale,
		"limit rule changed underneath update", nil, "7c8e1b2a-3d4f-4a5b-8c9d-e0f1a2b3c005",
		map[string]any{"rule_id": r.PublicID, "category": r.CategoryName})
}
