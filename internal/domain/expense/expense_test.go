package expense_test

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jarvishq/jarvis-server/internal/domain/expense"
	"github.com/jarvishq/jarvis-server/internal/utils/platformerrors"
)

type mockRepository struct {
	byID   map[uint]*expense.Expense
	nextID uint
}

func newMockRepository() *mockRepository {
	return &mockRepository{byID: map[uint]*expense.Expense{}, nextID: 1}
}

func (m *mockRepository) Create(_ context.Context, e *expense.Expense) error {
	e.ID = m.nextID
	m.nextID++
	cp := *e
	m.byID[e.ID] = &cp
	return nil
}

func (m *mockRepository) FindByPublicID(ctx context.Context, userID uint, publicID string) (*expense.Expense, error) {
	for _, e := range m.byID {
		if e.UserID == userID && e.PublicID == publicID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, notFound(ctx)
}

func (m *mockRepository) FindLastByUser(ctx context.Context, userID uint) (*expense.Expense, error) {
	var last *expense.Expense
	for _, e := range m.byID {
		if e.UserID == userID && (last == nil || e.ID > last.ID) {
			last = e
		}
	}
	if last == nil {
		return nil, notFound(ctx)
	}
	cp := *last
	return &cp, nil
}

func (m *mockRepository) matches(e *expense.Expense, f expense.Filter) bool {
	if e.UserID != f.UserID {
		return false
	}
	if f.CategoryID != nil && e.CategoryID != *f.CategoryID {
		return false
	}
	if !f.From.IsZero() && e.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !e.CreatedAt.Before(f.To) {
		return false
	}
	return true
}

func (m *mockRepository) List(_ context.Context, f expense.Filter) ([]*expense.Expense, error) {
	var out []*expense.Expense
	for _, e := range m.byID {
		if m.matches(e, f) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *mockRepository) Sum(_ context.Context, f expense.Filter) (decimal.Decimal, int64, error) {
	total := decimal.Zero
	var count int64
	for _, e := range m.byID {
		if m.matches(e, f) {
			total = total.Add(e.Amount)
			count++
		}
	}
	return total, count, nil
}

func (m *mockRepository) SumByCategory(_ context.Context, f expense.Filter) ([]expense.CategoryTotal, error) {
	byCat := map[uint]*expense.CategoryTotal{}
	for _, e := range m.byID {
		if !m.matches(e, f) {
			continue
		}
		ct, ok := byCat[e.CategoryID]
		if !ok {
			ct = &expense.CategoryTotal{CategoryID: e.CategoryID, CategoryName: e.CategoryName, Total: decimal.Zero}
			byCat[e.CategoryID] = ct
		}
		ct.Total = ct.Total.Add(e.Amount)
		ct.Count++
	}
	var out []expense.CategoryTotal
	for _, ct := range byCat {
		out = append(out, *ct)
	}
	return out, nil
}

func (m *mockRepository) CountByCategory(_ context.Context, userID, categoryID uint) (int64, error) {
	var count int64
	for _, e := range m.byID {
		if e.UserID == userID && e.CategoryID == categoryID {
			count++
		}
	}
	return count, nil
}

func (m *mockRepository) Delete(_ context.Context, id uint) error {
	delete(m.byID, id)
	return nil
}

func notFound(ctx context.Context) error {
	return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
		platformerrors.ErrorTypeNotFound, "expense not found", nil, "")
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in     string
		want   expense.Period
		wantOK bool
	}{
		{"day", expense.PeriodDay, true},
		{"week", expense.PeriodWeek, true},
		{"month", expense.PeriodMonth, true},
		{" MONTH ", expense.PeriodMonth, true},
		{"all", expense.PeriodAll, true},
		{"", expense.PeriodAll, true},
		{"year", "", false},
		{"semana", "", false},
	}

	for _, tt := range tests {
		got, ok := expense.ParsePeriod(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParsePeriod(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestPeriodRange(t *testing.T) {
	// A Thursday.
	now := time.Date(2026, 3, 5, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		period   expense.Period
		wantFrom time.Time
		wantTo   time.Time
	}{
		{expense.PeriodDay,
			time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)},
		{expense.PeriodWeek,
			time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)},
		{expense.PeriodMonth,
			time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
		{expense.PeriodAll, time.Time{}, time.Time{}},
	}

	for _, tt := range tests {
		from, to := tt.period.Range(now)
		if !from.Equal(tt.wantFrom) || !to.Equal(tt.wantTo) {
			t.Errorf("%s.Range = [%v, %v), want [%v, %v)", tt.period, from, to, tt.wantFrom, tt.wantTo)
		}
	}
}

func TestPeriodRange_SundayBelongsToMondayWeek(t *testing.T) {
	sunday := time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC)

	from, to := expense.PeriodWeek.Range(sunday)
	if !from.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("week start = %v, want Monday 2026-03-02", from)
	}
	if !to.Equal(time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("week end = %v, want Monday 2026-03-09", to)
	}
}

func TestRecord(t *testing.T) {
	svc := expense.NewService(newMockRepository())
	ctx := context.Background()
	at := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)

	e, err := svc.Record(ctx, 1, 2, decimal.NewFromInt(50), "  mercado  ", at)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !strings.HasPrefix(e.PublicID, "txn_") {
		t.Errorf("public id = %q, want txn_ prefix", e.PublicID)
	}
	if e.Description != "mercado" {
		t.Errorf("description = %q, want trimmed", e.Description)
	}
	if !e.CreatedAt.Equal(at) {
		t.Errorf("created at = %v, want %v", e.CreatedAt, at)
	}
}

func TestRecord_RejectsNonPositiveAmounts(t *testing.T) {
	svc := expense.NewService(newMockRepository())
	ctx := context.Background()

	for _, amount := range []int64{0, -10} {
		_, err := svc.Record(ctx, 1, 2, decimal.NewFromInt(amount), "", time.Now())
		if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
			t.Errorf("Record(%d) error = %v, want validation", amount, err)
		}
	}
}

func TestTotalForPeriod_FiltersByWindow(t *testing.T) {
	repo := newMockRepository()
	svc := expense.NewService(repo)
	ctx := context.Background()

	inMarch := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	inFebruary := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	for _, e := range []struct {
		amount int64
		at     time.Time
	}{
		{100, inMarch},
		{40, inMarch},
		{999, inFebruary},
	} {
		if _, err := svc.Record(ctx, 1, 2, decimal.NewFromInt(e.amount), "", e.at); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	total, count, err := svc.TotalForPeriod(ctx, 1, expense.PeriodMonth, inMarch)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if !total.Equal(decimal.NewFromInt(140)) || count != 2 {
		t.Errorf("march total = (%s, %d), want (140, 2)", total, count)
	}

	total, count, err = svc.TotalForPeriod(ctx, 1, expense.PeriodAll, inMarch)
	if err != nil {
		t.Fatalf("total all: %v", err)
	}
	if !total.Equal(decimal.NewFromInt(1139)) || count != 3 {
		t.Errorf("all-time total = (%s, %d), want (1139, 3)", total, count)
	}
}

func TestDeleteLast(t *testing.T) {
	repo := newMockRepository()
	svc := expense.NewService(repo)
	ctx := context.Background()

	if _, err := svc.DeleteLast(ctx, 1); !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Fatalf("delete with no expenses error = %v, want not found", err)
	}

	first, err := svc.Record(ctx, 1, 2, decimal.NewFromInt(10), "primeiro", time.Now())
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	second, err := svc.Record(ctx, 1, 2, decimal.NewFromInt(20), "segundo", time.Now())
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	removed, err := svc.DeleteLast(ctx, 1)
	if err != nil {
		t.Fatalf("delete last: %v", err)
	}
	if removed.PublicID != second.PublicID {
		t.Errorf("removed %q, want the most recent %q", removed.PublicID, second.PublicID)
	}
	if _, ok := repo.byID[second.ID]; ok {
		t.Error("deleted expense still stored")
	}
	if _, ok := repo.byID[first.ID]; !ok {
		t.Error("older expense should remain")
	}
}

func TestDeleteByPublicID_ScopedToOwner(t *testing.T) {
	svc := expense.NewService(newMockRepository())
	ctx := context.Background()

	mine, err := svc.Record(ctx, 1, 2, decimal.NewFromInt(10), "", time.Now())
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	if _, err := svc.DeleteByPublicID(ctx, 2, mine.PublicID); !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Errorf("cross-user delete error = %v, want not found", err)
	}

	removed, err := svc.DeleteByPublicID(ctx, 1, mine.PublicID)
	if err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if removed.PublicID != mine.PublicID {
		t.Errorf("removed %q, want %q", removed.PublicID, mine.PublicID)
	}
}
