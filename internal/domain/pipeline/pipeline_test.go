package pipeline

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jarvishq/jarvis-server/internal/domain/alert"
	"github.com/jarvishq/jarvis-server/internal/domain/category"
	"github.com/jarvishq/jarvis-server/internal/domain/convo"
	"github.com/jarvishq/jarvis-server/internal/domain/expense"
	"github.com/jarvishq/jarvis-server/internal/domain/limitrule"
	"github.com/jarvishq/jarvis-server/internal/domain/nlu"
	"github.com/jarvishq/jarvis-server/internal/domain/user"
	"github.com/jarvishq/jarvis-server/internal/utils/platformerrors"
)

func notFound(msg string) error {
	return platformerrors.NewError(context.Background(), platformerrors.LayerInfrastructure,
		platformerrors.ErrorTypeNotFound, msg, nil, "")
}

type mockUserRepo struct {
	byID   map[uint]*user.User
	nextID uint
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{byID: map[uint]*user.User{}, nextID: 1}
}

func (m *mockUserRepo) Create(_ context.Context, u *user.User) error {
	u.ID = m.nextID
	m.nextID++
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) FindByIdentity(_ context.Context, identity string) (*user.User, error) {
	for _, u := range m.byID {
		if u.Identity == identity {
			cp := *u
			return &cp, nil
		}
	}
	return nil, notFound("user not found")
}

func (m *mockUserRepo) FindByID(_ context.Context, id uint) (*user.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, notFound("user not found")
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) Update(_ context.Context, u *user.User) error {
	if _, ok := m.byID[u.ID]; !ok {
		return notFound("user not found")
	}
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

type mockCategoryRepo struct {
	byID   map[uint]*category.Category
	nextID uint
}

func newMockCategoryRepo() *mockCategoryRepo {
	return &mockCategoryRepo{byID: map[uint]*category.Category{}, nextID: 1}
}

func (m *mockCategoryRepo) Create(_ context.Context, c *category.Category) error {
	c.ID = m.nextID
	m.nextID++
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *mockCategoryRepo) FindByID(_ context.Context, id uint) (*category.Category, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, notFound("category not found")
	}
	cp := *c
	return &cp, nil
}

func (m *mockCategoryRepo) FindByUserAndName(_ context.Context, userID uint, name string) (*category.Category, error) {
	for _, c := range m.byID {
		if c.UserID == userID && strings.EqualFold(c.Name, name) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, notFound("category not found")
}

func (m *mockCategoryRepo) ListByUser(_ context.Context, userID uint) ([]*category.Category, error) {
	var out []*category.Category
	for _, c := range m.byID {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockCategoryRepo) Delete(_ context.Context, id uint) error {
	delete(m.byID, id)
	return nil
}

type mockExpenseRepo struct {
	byID   map[uint]*expense.Expense
	nextID uint
}

func newMockExpenseRepo() *mockExpenseRepo {
	return &mockExpenseRepo{byID: map[uint]*expense.Expense{}, nextID: 1}
}

func (m *mockExpenseRepo) Create(_ context.Context, e *expense.Expense) error {
	e.ID = m.nextID
	m.nextID++
	cp := *e
	m.byID[e.ID] = &cp
	return nil
}

func (m *mockExpenseRepo) FindByPublicID(_ context.Context, userID uint, publicID string) (*expense.Expense, error) {
	for _, e := range m.byID {
		if e.UserID == userID && e.PublicID == publicID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, notFound("expense not found")
}

func (m *mockExpenseRepo) FindLastByUser(_ context.Context, userID uint) (*expense.Expense, error) {
	var last *expense.Expense
	for _, e := range m.byID {
		if e.UserID != userID {
			continue
		}
		if last == nil || e.ID > last.ID {
			last = e
		}
	}
	if last == nil {
		return nil, notFound("expense not found")
	}
	cp := *last
	return &cp, nil
}

func (m *mockExpenseRepo) matches(e *expense.Expense, f expense.Filter) bool {
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

func (m *mockExpenseRepo) List(_ context.Context, f expense.Filter) ([]*expense.Expense, error) {
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

func (m *mockExpenseRepo) Sum(_ context.Context, f expense.Filter) (decimal.Decimal, int64, error) {
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

func (m *mockExpenseRepo) SumByCategory(_ context.Context, f expense.Filter) ([]expense.CategoryTotal, error) {
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
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out, nil
}

func (m *mockExpenseRepo) CountByCategory(_ context.Context, userID, categoryID uint) (int64, error) {
	var count int64
	for _, e := range m.byID {
		if e.UserID == userID && e.CategoryID == categoryID {
			count++
		}
	}
	return count, nil
}

func (m *mockExpenseRepo) Delete(_ context.Context, id uint) error {
	delete(m.byID, id)
	return nil
}

type mockRuleRepo struct {
	byID   map[uint]*limitrule.Rule
	nextID uint
}

func newMockRuleRepo() *mockRuleRepo {
	return &mockRuleRepo{byID: map[uint]*limitrule.Rule{}, nextID: 1}
}

func (m *mockRuleRepo) Create(_ context.Context, r *limitrule.Rule) error {
	r.ID = m.nextID
	m.nextID++
	cp := *r
	m.byID[r.ID] = &cp
	return nil
}

func (m *mockRuleRepo) FindByID(_ context.Context, id uint) (*limitrule.Rule, error) {
	r, ok := m.byID[id]
	if !ok {
		return nil, notFound("limit rule not found")
	}
	cp := *r
	return &cp, nil
}

func (m *mockRuleRepo) FindActiveByUser(_ context.Context, userID uint) ([]*limitrule.Rule, error) {
	var out []*limitrule.Rule
	for _, r := range m.byID {
		if r.UserID == userID && r.Active {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRuleRepo) FindActiveByUserAndCategory(_ context.Context, userID, categoryID uint) ([]*limitrule.Rule, error) {
	var out []*limitrule.Rule
	for _, r := range m.byID {
		if r.UserID == userID && r.CategoryID == categoryID && r.Active {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRuleRepo) FindActiveByUserCategoryKind(_ context.Context, userID, categoryID uint, kind limitrule.PeriodKind) (*limitrule.Rule, error) {
	for _, r := range m.byID {
		if r.UserID == userID && r.CategoryID == categoryID && r.PeriodKind == kind && r.Active {
			cp := *r
			return &cp, nil
		}
	}
	return nil, notFound("limit rule not found")
}

func (m *mockRuleRepo) ApplyDelta(_ context.Context, ruleID uint, delta decimal.Decimal, deltaKey string, at time.Time) (int64, error) {
	r, ok := m.byID[ruleID]
	if !ok || !r.Active {
		return 0, nil
	}
	if r.LastDeltaKey != nil && *r.LastDeltaKey == deltaKey {
		return 0, nil
	}
	r.CurrentTotal = r.CurrentTotal.Add(delta)
	key := deltaKey
	r.LastDeltaKey = &key
	r.LastUpdated = at
	return 1, nil
}

func (m *mockRuleRepo) ResetWindow(_ context.Context, ruleID uint, newStart time.Time, newEnd *time.Time, at time.Time) (int64, error) {
	r, ok := m.byID[ruleID]
	if !ok || !r.Active {
		return 0, nil
	}
	r.PeriodStart = newStart
	r.PeriodEnd = newEnd
	r.CurrentTotal = decimal.Zero
	r.LastDeltaKey = nil
	r.LastUpdated = at
	return 1, nil
}

func (m *mockRuleRepo) Deactivate(_ context.Context, ruleID uint) error {
	if r, ok := m.byID[ruleID]; ok {
		r.Active = false
	}
	return nil
}

type mockTurnRepo struct {
	turns []*convo.Turn
}

func (m *mockTurnRepo) Append(_ context.Context, t *convo.Turn) error {
	cp := *t
	cp.ID = uint(len(m.turns) + 1)
	m.turns = append(m.turns, &cp)
	return nil
}

func (m *mockTurnRepo) ListRecent(_ context.Context, userID uint, limit int) ([]*convo.Turn, error) {
	var out []*convo.Turn
	for i := len(m.turns) - 1; i >= 0 && len(out) < limit; i-- {
		if m.turns[i].UserID == userID {
			cp := *m.turns[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

type mockContextStore struct {
	byIdentity map[string]*convo.Context
}

func newMockContextStore() *mockContextStore {
	return &mockContextStore{byIdentity: map[string]*convo.Context{}}
}

func (m *mockContextStore) Load(_ context.Context, identity string) (*convo.Context, error) {
	c, ok := m.byIdentity[identity]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *mockContextStore) Save(_ context.Context, identity string, c *convo.Context) error {
	cp := *c
	m.byIdentity[identity] = &cp
	return nil
}

func (m *mockContextStore) Clear(_ context.Context, identity string) error {
	delete(m.byIdentity, identity)
	return nil
}

// scriptedClassifier replays prepared readings in order. An exhausted queue
// or a forced error surfaces like a provider failure.
type scriptedClassifier struct {
	classifications []*nlu.Classification
	resolutions     []*nlu.Classification
	classifyErr     error
	resolveErr      error
	classifyCalls   int
	resolveCalls    int
	lastPending     *convo.PendingClarification
}

func (s *scriptedClassifier) Classify(ctx context.Context, _ string, _ []*convo.Turn) (*nlu.Classification, error) {
	s.classifyCalls++
	if s.classifyErr != nil {
		return nil, s.classifyErr
	}
	if len(s.classifications) == 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeExternal, "no scripted classification left", nil, "")
	}
	next := s.classifications[0]
	s.classifications = s.classifications[1:]
	return next, nil
}

func (s *scriptedClassifier) ResolveClarification(ctx context.Context, _ string, pending *convo.PendingClarification) (*nlu.Classification, error) {
	s.resolveCalls++
	s.lastPending = pending
	if s.resolveErr != nil {
		return nil, s.resolveErr
	}
	if len(s.resolutions) == 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeExternal, "no scripted resolution left", nil, "")
	}
	next := s.resolutions[0]
	s.resolutions = s.resolutions[1:]
	return next, nil
}

type harness struct {
	pipeline   *Pipeline
	users      *mockUserRepo
	categories *mockCategoryRepo
	expenses   *mockExpenseRepo
	rules      *mockRuleRepo
	turns      *mockTurnRepo
	store      *mockContextStore
	classifier *scriptedClassifier

	userSvc     *user.Service
	categorySvc *category.Service
	expenseSvc  *expense.Service
	ledger      *limitrule.Service
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()

	h := &harness{
		users:      newMockUserRepo(),
		categories: newMockCategoryRepo(),
		expenses:   newMockExpenseRepo(),
		rules:      newMockRuleRepo(),
		turns:      &mockTurnRepo{},
		store:      newMockContextStore(),
		classifier: &scriptedClassifier{},
	}

	h.userSvc = user.NewService(h.users)
	h.categorySvc = category.NewService(h.categories, h.expenses, "Geral")
	h.expenseSvc = expense.NewService(h.expenses)
	h.ledger = limitrule.NewService(h.rules)
	evaluator := alert.NewEvaluator(h.ledger, 0.9, zerolog.Nop())
	turnSvc := convo.NewService(h.turns)

	if len(opts.DefaultCategories) == 0 {
		opts.DefaultCategories = []category.Seed{
			{Name: "Alimentação"},
			{Name: "Transporte"},
		}
	}

	h.pipeline = NewPipeline(h.userSvc, h.categorySvc, h.expenseSvc, h.ledger,
		evaluator, turnSvc, h.store, h.classifier, opts, zerolog.Nop())
	return h
}

// completedUser creates a user past onboarding, with seeded categories.
func (h *harness) completedUser(t *testing.T, identity, name string) *user.User {
	t.Helper()
	ctx := context.Background()

	u, _, err := h.userSvc.EnsureUser(ctx, identity)
	if err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	if err := h.userSvc.SetDisplayName(ctx, u, name); err != nil {
		t.Fatalf("set display name: %v", err)
	}
	if err := h.userSvc.AdvanceSetup(ctx, u, user.SetupStageComplete); err != nil {
		t.Fatalf("advance setup: %v", err)
	}
	if err := h.categorySvc.SeedDefaults(ctx, u.ID, h.pipeline.opts.DefaultCategories); err != nil {
		t.Fatalf("seed categories: %v", err)
	}
	return u
}

func (h *harness) handle(t *testing.T, identity, text string) string {
	t.Helper()
	reply, err := h.pipeline.HandleMessage(context.Background(), identity, text)
	if err != nil {
		t.Fatalf("handle %q: %v", text, err)
	}
	return reply
}

func amountOf(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}
