package dbschema

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jarvishq/jarvis-server/internal/domain/limitrule"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(LimitRule{})
}

// LimitRule represents the persisted limit rule schema. The partial unique
// index enforces one active rule per user, category and period kind;
// deactivated rows fall out of it.
type LimitRule struct {
	BaseModel
	PublicID     string          `gorm:"type:varchar(50);uniqueIndex;not null"`
	UserID       uint            `gorm:"not null;index:idx_limit_rules_user_active;uniqueIndex:ux_limit_rules_scope,where:active"`
	User         User            `gorm:"foreignKey:UserID"`
	CategoryID   uint            `gorm:"not null;uniqueIndex:ux_limit_rules_scope,where:active"`
	Category     Category        `gorm:"foreignKey:CategoryID"`
	PeriodKind   string          `gorm:"type:varchar(20);not null;uniqueIndex:ux_limit_rules_scope,where:active"`
	PeriodStart  time.Time       `gorm:"not null"`
	PeriodEnd    *time.Time      `gorm:""`
	LimitAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CurrentTotal decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	LastDeltaKey *string         `gorm:"type:varchar(80)"`
	LastUpdated  time.Time       `gorm:"not null"`
	Active       bool            `gorm:"not null;default:true;index:idx_limit_rules_user_active"`
}

// NewSchemaLimitRule converts a domain rule into a schema instance.
func NewSchemaLimitRule(r *limitrule.Rule) *LimitRule {
	if r == nil {
		return nil
	}

	return &LimitRule{
		BaseModel: BaseModel{
			ID:        r.ID,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		PublicID:     r.PublicID,
		UserID:       r.UserID,
		CategoryID:   r.CategoryID,
		PeriodKind:   string(r.PeriodKind),
		PeriodStart:  r.PeriodStart,
		PeriodEnd:    r.PeriodEnd,
		LimitAmount:  r.LimitAmount,
		CurrentTotal: r.CurrentTotal,
		LastDeltaKey: r.LastDeltaKey,
		LastUpdated:  r.LastUpdated,
		Active:       r.Active,
	}
}

// EtoD converts a schema rule back to the domain representation. The
// category name is filled when the Category association was preloaded.
func (r *LimitRule) EtoD() *limitrule.Rule {
	if r == nil {
		return nil
	}

	return &limitrule.Rule{
		ID:           r.ID,
		PublicID:     r.PublicID,
		UserID:       r.UserID,
		CategoryID:   r.CategoryID,
		CategoryName: r.Category.Name,
		PeriodKind:   limitrule.PeriodKind(r.PeriodKind),
		PeriodStart:  r.PeriodStart,
		PeriodEnd:    r.PeriodEnd,
		LimitAmount:  r.LimitAmount,
		CurrentTotal: r.CurrentTotal,
		LastDeltaKey: r.LastDeltaKey,
		LastUpdated:  r.LastUpdated,
		Active:       r.Active,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
