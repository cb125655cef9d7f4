package dbschema

import (
	"time"

	"github.com/jarvishq/jarvis-server/internal/domain/convo"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(ConvoTurn{})
}

// ConvoTurn represents one persisted conversation exchange. Append-only.
type ConvoTurn struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	UserID    uint      `gorm:"not null;index:idx_convo_turns_user_created"`
	User      User      `gorm:"foreignKey:UserID"`
	Inbound   string    `gorm:"type:text;not null"`
	Outbound  string    `gorm:"type:text;not null"`
	Intent    string    `gorm:"type:varchar(40)"`
	CreatedAt time.Time `gorm:"not null;index:idx_convo_turns_user_created"`
}

// NewSchemaConvoTurn converts a domain turn into a schema instance.
func NewSchemaConvoTurn(t *convo.Turn) *ConvoTurn {
	if t == nil {
		return nil
	}

	return &ConvoTurn{
		ID:        t.ID,
		UserID:    t.UserID,
		Inbound:   t.Inbound,
		Outbound:  t.Outbound,
		Intent:    t.Intent,
		CreatedAt: t.CreatedAt,
	}
}

// EtoD converts a schema turn back to the domain representation.
func (t *ConvoTurn) EtoD() *convo.Turn {
	if t == nil {
		return nil
	}

	return &convo.Turn{
		ID:        t.ID,
		UserID:    t.UserID,
		Inbound:   t.Inbound,
		Outbound:  t.Outbound,
		Intent:    t.Intent,
		CreatedAt: t.CreatedAt,
	}
}
