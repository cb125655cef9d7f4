package category_test

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/jarvishq/jarvis-server/internal/domain/category"
	"github.com/jarvishq/jarvis-server/internal/utils/platformerrors"
)

type mockRepository struct {
	byID   map[uint]*category.Category
	nextID uint
}

func newMockRepository() *mockRepository {
	return &mockRepository{byID: map[uint]*category.Category{}, nextID: 1}
}

func (m *mockRepository) Create(_ context.Context, c *category.Category) error {
	c.ID = m.nextID
	m.nextID++
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *mockRepository) FindByID(ctx context.Context, id uint) (*category.Category, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, notFound(ctx)
	}
	cp := *c
	return &cp, nil
}

func (m *mockRepository) FindByUserAndName(ctx context.Context, userID uint, name string) (*category.Category, error) {
	for _, c := range m.byID {
		if c.UserID == userID && strings.EqualFold(c.Name, name) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, notFound(ctx)
}

func (m *mockRepository) ListByUser(_ context.Context, userID uint) ([]*category.Category, error) {
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

func (m *mockRepository) Delete(_ context.Context, id uint) error {
	delete(m.byID, id)
	return nil
}

func notFound(ctx context.Context) error {
	return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
		platformerrors.ErrorTypeNotFound, "category not found", nil, "")
}

// mockCounter reports fixed transaction counts per category id.
type mockCounter struct {
	counts map[uint]int64
}

func (m *mockCounter) CountByCategory(_ context.Context, _, categoryID uint) (int64, error) {
	return m.counts[categoryID], nil
}

func newService(counts map[uint]int64) (*category.Service, *mockRepository) {
	repo := newMockRepository()
	return category.NewService(repo, &mockCounter{counts: counts}, "Geral"), repo
}

func TestSeedDefaults_AlwaysIncludesFallback(t *testing.T) {
	svc, _ := newService(nil)
	ctx := context.Background()

	seeds := []category.Seed{{Name: "Alimentação"}, {Name: "Transporte"}}
	if err := svc.SeedDefaults(ctx, 1, seeds); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cats, err := svc.List(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	want := []string{"Alimentação", "Transporte", "Geral"}
	if len(names) != len(want) {
		t.Fatalf("seeded %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("seeded %v, want %v", names, want)
		}
	}
}

func TestSeedDefaults_SkipsExistingAndIsIdempotent(t *testing.T) {
	svc, _ := newService(nil)
	ctx := context.Background()

	if _, err := svc.Add(ctx, 1, "Transporte", ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	seeds := []category.Seed{{Name: "Alimentação"}, {Name: "transporte"}}
	if err := svc.SeedDefaults(ctx, 1, seeds); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := svc.SeedDefaults(ctx, 1, seeds); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	cats, _ := svc.List(ctx, 1)
	if len(cats) != 3 {
		t.Fatalf("got %d categories, want 3", len(cats))
	}
}

func TestAdd_RejectsDuplicatesAndBlankNames(t *testing.T) {
	svc, _ := newService(nil)
	ctx := context.Background()

	if _, err := svc.Add(ctx, 1, "Pets", ""); err != nil {
		t.Fatalf("add: %v", err)
	}

	_, err := svc.Add(ctx, 1, "pets", "")
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
		t.Errorf("duplicate add error = %v, want conflict", err)
	}

	_, err = svc.Add(ctx, 1, "   ", "")
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
		t.Errorf("blank add error = %v, want validation", err)
	}

	// Same name under another user is fine.
	if _, err := svc.Add(ctx, 2, "Pets", ""); err != nil {
		t.Errorf("add for other user: %v", err)
	}
}

func TestResolve_MatchesProgressivelyLooser(t *testing.T) {
	svc, _ := newService(nil)
	ctx := context.Background()

	for _, name := range []string{"Alimentação", "Transporte", "Contas Fixas"} {
		if _, err := svc.Add(ctx, 1, name, ""); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}

	tests := []struct {
		in   string
		want string
	}{
		{"Alimentação", "Alimentação"},
		{"alimentação", "Alimentação"},
		{"alim", "Alimentação"},
		{"transp", "Transporte"},
		{"fixas", "Contas Fixas"},
	}
	for _, tt := range tests {
		c, err := svc.Resolve(ctx, 1, tt.in)
		if err != nil {
			t.Errorf("Resolve(%q): %v", tt.in, err)
			continue
		}
		if c.Name != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.in, c.Name, tt.want)
		}
	}

	if _, err := svc.Resolve(ctx, 1, "inexistente"); !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Errorf("unknown name error = %v, want not found", err)
	}
}

func TestResolveOrFallback_CreatesCatchAll(t *testing.T) {
	svc, _ := newService(nil)
	ctx := context.Background()

	c, err := svc.ResolveOrFallback(ctx, 1, "")
	if err != nil {
		t.Fatalf("fallback: %v", err)
	}
	if c.Name != "Geral" {
		t.Errorf("fallback category = %q, want Geral", c.Name)
	}

	again, err := svc.ResolveOrFallback(ctx, 1, "desconhecida")
	if err != nil {
		t.Fatalf("fallback for unknown name: %v", err)
	}
	if again.ID != c.ID {
		t.Errorf("fallback created twice: ids %d and %d", c.ID, again.ID)
	}
}

func TestRemove_BlockedWhileTransactionsReferenceIt(t *testing.T) {
	svc, repo := newService(map[uint]int64{1: 2})
	ctx := context.Background()

	if _, err := svc.Add(ctx, 1, "Pets", ""); err != nil {
		t.Fatalf("add: %v", err)
	}

	err := svc.Remove(ctx, 1, "Pets")
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
		t.Fatalf("remove with transactions error = %v, want conflict", err)
	}
	if len(repo.byID) != 1 {
		t.Fatal("category was deleted despite the referential guard")
	}
}

func TestRemove_DeletesUnreferencedCategory(t *testing.T) {
	svc, repo := newService(nil)
	ctx := context.Background()

	if _, err := svc.Add(ctx, 1, "Pets", ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.Remove(ctx, 1, "pets"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(repo.byID) != 0 {
		t.Error("category row still present after removal")
	}
}
