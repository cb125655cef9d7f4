package dbschema

import (
	"time"

	"github.com/jarvishq/jarvis-server/internal/domain/user"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(User{})
}

// User represents the persisted user schema keyed by the channel identity.
type User struct {
	BaseModel
	Identity      string    `gorm:"type:varchar(128);not null;uniqueIndex:ux_users_identity"`
	DisplayName   *string   `gorm:"type:varchar(255)"`
	SetupStage    *string   `gorm:"type:varchar(20)"`
	LastMessageAt time.Time `gorm:"not null"`
}

// NewSchemaUser converts a domain user into a schema instance.
func NewSchemaUser(u *user.User) *User {
	if u == nil {
		return nil
	}

	var stage *string
	if u.SetupStage != nil {
		s := string(*u.SetupStage)
		stage = &s
	}

	return &User{
		BaseModel: BaseModel{
			ID:        u.ID,
			CreatedAt: u.CreatedAt,
			UpdatedAt: u.UpdatedAt,
		},
		Identity:      u.Identity,
		DisplayName:   u.DisplayName,
		SetupStage:    stage,
		LastMessageAt: u.LastMessageAt,
	}
}

// EtoD converts a schema user back to the domain representation.
func (u *User) EtoD() *user.User {
	if u == nil {
		return nil
	}

	var stage *user.SetupStage
	if u.SetupStage != nil {
		if parsed, ok := user.ParseSetupStage(*u.SetupStage); ok {
			stage = &parsed
		}
	}

	return &user.User{
		ID:            u.ID,
		Identity:      u.Identity,
		DisplayName:   u.DisplayName,
		SetupStage:    stage,
		LastMessageAt: u.LastMessageAt,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}
