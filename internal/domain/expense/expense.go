// Package expense provides the expense transaction models and behaviors.
package expense

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jarvishq/jarvis-server/internal/utils/idgen"
	"github.com/jarvishq/jarvis-server/internal/utils/platformerrors"
)

// Expense is a single recorded spend. CreatedAt is authoritative for all
// period math; records are immutable except for explicit deletion.
type Expense struct {
	ID           uint
	PublicID     string
	UserID       uint
	CategoryID   uint
	CategoryName string
	Amount       decimal.Decimal
	Description  string
	CreatedAt    time.Time
}

// Period identifies a reporting window for spend queries.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

// ParsePeriod maps a wire string onto a known period.
func ParsePeriod(raw string) (Period, bool) {
	switch Period(strings.ToLower(strings.TrimSpace(raw))) {
	case PeriodDay:
		return PeriodDay, true
	case PeriodWeek:
		return PeriodWeek, true
	case PeriodMonth:
		return PeriodMonth, true
	case PeriodAll, "":
		return PeriodAll, true
	}
	return "", false
}

// Range converts the period into a concrete [from, to) window anchored at now.
// PeriodAll returns zero times meaning unbounded.
func (p Period) Range(now time.Time) (time.Time, time.Time) {
	switch p {
	case PeriodDay:
		from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return from, from.AddDate(0, 0, 1)
	case PeriodWeek:
		// Weeks start on Monday.
		offset := (int(now.Weekday()) + 6) % 7
		from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -offset)
		return from, from.AddDate(0, 0, 7)
	case PeriodMonth:
		from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return from, from.AddDate(0, 1, 0)
	default:
		return time.Time{}, time.Time{}
	}
}

// Filter narrows expense queries.
type Filter struct {
	UserID     uint
	CategoryID *uint
	From       time.Time
	To         time.Time
	Limit      int
}

// CategoryTotal aggregates spend per category for summary replies.
type CategoryTotal struct {
	CategoryID   uint
	CategoryName string
	Total        decimal.Decimal
	Count        int64
}

// Repository defines storage operations for expenses.
type Repository interface {
	Create(ctx context.Context, e *Expense) error
	FindByPublicID(ctx context.Context, userID uint, publicID string) (*Expense, error)
	FindLastByUser(ctx context.Context, userID uint) (*Expense, error)
	List(ctx context.Context, filter Filter) ([]*Expense, error)
	Sum(ctx context.Context, filter Filter) (decimal.Decimal, int64, error)
	SumByCategory(ctx context.Context, filter Filter) ([]CategoryTotal, error)
	CountByCategory(ctx context.Context, userID, categoryID uint) (int64, error)
	Delete(ctx context.Context, id uint) error
}

// Service records and queries expenses.
type Service struct {
	repo Repository
}

// NewService constructs a Service with required dependencies.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record persists a new expense. Amount must be positive.
func (s *Service) Record(ctx context.Context, userID, categoryID uint, amount decimal.Decimal, description string, at time.Time) (*Expense, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"expense amount must be positive", nil, "9a1fca44-7e1c-4e5f-8d3e-20bb51aa2001")
	}

	publicID, err := idgen.GenerateSecureID("txn", 16)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"generate expense id", err, "9a1fca44-7e1c-4e5f-8d3e-20bb51aa2002")
	}

	e := &Expense{
		PublicID:    publicID,
		UserID:      userID,
		CategoryID:  categoryID,
		Amount:      amount,
		Description: strings.TrimSpace(description),
		CreatedAt:   at.UTC(),
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Last returns the most recent expense for the user.
func (s *Service) Last(ctx context.Context, userID uint) (*Expense, error) {
	return s.repo.FindLastByUser(ctx, userID)
}

// TotalForPeriod sums spend inside the period anchored at now.
func (s *Service) TotalForPeriod(ctx context.Context, userID uint, period Period, now time.Time) (decimal.Decimal, int64, error) {
	from, to := period.Range(now)
	return s.repo.Sum(ctx, Filter{UserID: userID, From: from, To: to})
}

// TotalForRange sums spend inside an explicit [from, to) window.
func (s *Service) TotalForRange(ctx context.Context, userID uint, from, to time.Time) (decimal.Decimal, int64, error) {
	return s.repo.Sum(ctx, Filter{UserID: userID, From: from, To: to})
}

// TotalsByCategory aggregates per-category spend inside the period.
func (s *Service) TotalsByCategory(ctx context.Context, userID uint, period Period, now time.Time) ([]CategoryTotal, error) {
	from, to := period.Range(now)
	return s.repo.SumByCategory(ctx, Filter{UserID: userID, From: from, To: to})
}

// CategoryTotalForPeriod sums spend for one category inside the period.
func (s *Service) CategoryTotalForPeriod(ctx context.Context, userID, categoryID uint, period Period, now time.Time) (decimal.Decimal, int64, error) {
	from, to := period.Range(now)
	return s.repo.Sum(ctx, Filter{UserID: userID, CategoryID: &categoryID, From: from, To: to})
}

// DeleteLast removes the most recent expense and returns it.
func (s *Service) DeleteLast(ctx context.Context, userID uint) (*Expense, error) {
	last, err := s.repo.FindLastByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, last.ID); err != nil {
		return nil, err
	}
	return last, nil
}

// DeleteByPublicID removes an expense the user owns by its public id.
func (s *Service) DeleteByPublicID(ctx context.Context, userID uint, publicID string) (*Expense, error) {
	e, err := s.repo.FindByPublicID(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, e.ID); err != nil {
		return nil, err
	}
	return e, nil
}

// Recent lists the latest expenses for the user, newest first.
func (s *Service) Recent(ctx context.Context, userID uint, limit int) ([]*Expense, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.repo.List(ctx, Filter{UserID: userID, Limit: limit})
}
