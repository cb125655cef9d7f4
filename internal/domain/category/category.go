// Package category provides expense category models and behaviors.
package category

import (
	"context"
	"strings"
	"time"

	"github.com/jarvishq/jarvis-server/internal/utils/platformerrors"
)

// Category is a per-user spending bucket. Names are unique within a user,
// compared case-insensitively.
type Category struct {
	ID          uint
	UserID      uint
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Seed is a category created for every new user during onboarding.
type Seed struct {
	Name        string
	Description string
}

// Repository defines storage operations for categories.
type Repository interface {
	Create(ctx context.Context, c *Category) error
	FindByID(ctx context.Context, id uint) (*Category, error)
	FindByUserAndName(ctx context.Context, userID uint, name string) (*Category, error)
	ListByUser(ctx context.Context, userID uint) ([]*Category, error)
	Delete(ctx context.Context, id uint) error
}

// TransactionCounter reports how many transactions reference a category.
// Satisfied by the transaction repository.
type TransactionCounter interface {
	CountByCategory(ctx context.Context, userID, categoryID uint) (int64, error)
}

// Service owns category lifecycle including the referential guard on delete.
type Service struct {
	repo     Repository
	txnCount TransactionCounter
	fallback string
}

// NewService constructs a Service with required dependencies. fallbackName is
// the category an expense lands in when no other category matches.
func NewService(repo Repository, txnCount TransactionCounter, fallbackName string) *Service {
	if strings.TrimSpace(fallbackName) == "" {
		fallbackName = "Geral"
	}
	return &Service{repo: repo, txnCount: txnCount, fallback: fallbackName}
}

// FallbackName returns the name of the catch-all category.
func (s *Service) FallbackName() string {
	return s.fallback
}

// SeedDefaults creates the default category set for a new user, skipping any
// name that already exists. The fallback category is always included.
func (s *Service) SeedDefaults(ctx context.Context, userID uint, seeds []Seed) error {
	all := make([]Seed, 0, len(seeds)+1)
	all = append(all, seeds...)
	hasFallback := false
	for _, seed := range seeds {
		if strings.EqualFold(seed.Name, s.fallback) {
			hasFallback = true
			break
		}
	}
	if !hasFallback {
		all = append(all, Seed{Name: s.fallback, Description: "Gastos sem categoria definida"})
	}

	for _, seed := range all {
		_, err := s.repo.FindByUserAndName(ctx, userID, seed.Name)
		if err == nil {
			continue
		}
		if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return err
		}
		c := &Category{UserID: userID, Name: seed.Name, Description: seed.Description}
		if err := s.repo.Create(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// Add creates a category for the user, rejecting duplicates.
func (s *Service) Add(ctx context.Context, userID uint, name, description string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"category name is required", nil, "4f2f2a6e-0f4f-4c8e-9f7d-52a9b14c7001")
	}

	if _, err := s.repo.FindByUserAndName(ctx, userID, name); err == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict,
			"category already exists", nil, "4f2f2a6e-0f4f-4c8e-9f7d-52a9b14c7002")
	} else if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		return nil, err
	}

	c := &Category{UserID: userID, Name: name, Description: strings.TrimSpace(description)}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Remove deletes a category by name. Removal is blocked while transactions
// still reference it; the caller must delete or re-categorize them first.
func (s *Service) Remove(ctx context.Context, userID uint, name string) error {
	c, err := s.Resolve(ctx, userID, name)
	if err != nil {
		return err
	}

	count, err := s.txnCount.CountByCategory(ctx, userID, c.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict,
			"category still has transactions", nil, "4f2f2a6e-0f4f-4c8e-9f7d-52a9b14c7003",
			map[string]any{"category": c.Name, "transaction_count": count})
	}

	return s.repo.Delete(ctx, c.ID)
}

// List returns the user's categories.
func (s *Service) List(ctx context.Context, userID uint) ([]*Category, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Resolve finds a category by name with progressively looser matching:
// exact (case-insensitive), then prefix, then substring.
func (s *Service) Resolve(ctx context.Context, userID uint, name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"category name is required", nil, "4f2f2a6e-0f4f-4c8e-9f7d-52a9b14c7004")
	}

	if c, err := s.repo.FindByUserAndName(ctx, userID, name); err == nil {
		return c, nil
	} else if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		return nil, err
	}

	all, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	lowered := strings.ToLower(name)
	for _, c := range all {
		if strings.HasPrefix(strings.ToLower(c.Name), lowered) {
			return c, nil
		}
	}
	for _, c := range all {
		if strings.Contains(strings.ToLower(c.Name), lowered) {
			return c, nil
		}
	}

	return nil, platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
		"category not found", nil, "4f2f2a6e-0f4f-4c8e-9f7d-52a9b14c7005",
		map[string]any{"category": name})
}

// ResolveOrFallback resolves a category name, landing on the catch-all
// category when the name is empty or unknown.
func (s *Service) ResolveOrFallback(ctx context.Context, userID uint, name string) (*Category, error) {
	if strings.TrimSpace(name) != "" {
		c, err := s.Resolve(ctx, userID, name)
		if err == nil {
			return c, nil
		}
		if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return nil, err
		}
	}

	c, err := s.repo.FindByUserAndName(ctx, userID, s.fallback)
	if err == nil {
		return c, nil
	}
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		return nil, err
	}

	created := &Category{UserID: userID, Name: s.fallback, Description: "Gastos sem categoria definida"}
	if err := s.repo.Create(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}
