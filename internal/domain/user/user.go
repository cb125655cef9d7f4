// Package user provides user domain models and behaviors.
package user

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/jarvishq/jarvis-server/internal/utils/platformerrors"
)

// SetupStage is the onboarding sub-state a user sits in. A nil stage on the
// record means onboarding has completed.
type SetupStage string

const (
	SetupStageStart      SetupStage = "start"
	SetupStageGetName    SetupStage = "get_name"
	SetupStageCategories SetupStage = "categories"
	SetupStageLimits     SetupStage = "limits"
	SetupStageComplete   SetupStage = "complete"
)

// ParseSetupStage maps the stored string form back to the typed stage.
func ParseSetupStage(raw string) (SetupStage, bool) {
	switch SetupStage(raw) {
	case SetupStageStart, SetupStageGetName, SetupStageCategories, SetupStageLimits, SetupStageComplete:
		return SetupStage(raw), true
	}
	return "", false
}

// User models a person talking to the assistant, keyed by the opaque identity
// the messaging channel assigns (a Telegram chat id, a phone number).
type User struct {
	ID            uint
	Identity      string
	DisplayName   *string
	SetupStage    *SetupStage
	LastMessageAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SetupComplete reports whether the user finished onboarding.
func (u *User) SetupComplete() bool {
	return u.SetupStage == nil
}

// Repository defines storage operations for users.
type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByIdentity(ctx context.Context, identity string) (*User, error)
	FindByID(ctx context.Context, id uint) (*User, error)
	Update(ctx context.Context, user *User) error
}

var digitsOnly = regexp.MustCompile(`^[\d\s]+$`)

// ambiguousNames are confirmation words users type when asked for their name.
var ambiguousNames = map[string]bool{
	"sim": true, "não": true, "nao": true, "ok": true,
	"pronto": true, "continuar": true, "n": true, "s": true,
}

// ValidateDisplayName rejects inputs that cannot plausibly be a person's
// name: too short, digits only, or a bare confirmation word.
func ValidateDisplayName(ctx context.Context, raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if len([]rune(name)) < 2 {
		return "", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"display name too short", nil, "b6b8f0de-8dd6-4a1f-9c0e-1a4f66d3a001")
	}
	if digitsOnly.MatchString(name) {
		return "", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"display name cannot be only digits", nil, "b6b8f0de-8dd6-4a1f-9c0e-1a4f66d3a002")
	}
	if ambiguousNames[strings.ToLower(name)] {
		return "", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"display name looks like a confirmation word", nil, "b6b8f0de-8dd6-4a1f-9c0e-1a4f66d3a003")
	}
	return name, nil
}

// Service resolves and mutates user records.
type Service struct {
	repo Repository
}

// NewService constructs a Service with required dependencies.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// EnsureUser returns the user for an identity, creating a fresh record in the
// first onboarding stage on first contact. The second return reports whether
// the user was just created.
func (s *Service) EnsureUser(ctx context.Context, identity string) (*User, bool, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, false, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"user identity is required", nil, "b6b8f0de-8dd6-4a1f-9c0e-1a4f66d3a004")
	}

	existing, err := s.repo.FindByIdentity(ctx, identity)
	if err == nil {
		return existing, false, nil
	}
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		return nil, false, err
	}

	stage := SetupStageStart
	created := &User{
		Identity:      identity,
		SetupStage:    &stage,
		LastMessageAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, created); err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// TouchLastMessage records message activity for the user.
func (s *Service) TouchLastMessage(ctx context.Context, u *User, at time.Time) error {
	u.LastMessageAt = at.UTC()
	return s.repo.Update(ctx, u)
}

// AdvanceSetup moves the user to the given onboarding stage; the complete
// stage clears it, which is the only path out of onboarding.
func (s *Service) AdvanceSetup(ctx context.Context, u *User, stage SetupStage) error {
	if stage == SetupStageComplete {
		u.SetupStage = nil
	} else {
		u.SetupStage = &stage
	}
	return s.repo.Update(ctx, u)
}

// SetDisplayName validates and stores the user's name.
func (s *Service) SetDisplayName(ctx context.Context, u *User, raw string) error {
	name, err := ValidateDisplayName(ctx, raw)
	if err != nil {
		return err
	}
	u.DisplayName = &name
	return s.repo.Update(ctx, u)
}
