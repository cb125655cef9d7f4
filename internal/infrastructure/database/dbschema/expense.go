package dbschema

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jarvishq/jarvis-server/internal/domain/expense"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(Expense{})
}

// Expense represents the persisted expense schema. CreatedAt is set by the
// domain, not the database, because it drives period accounting. Rows are
// immutable so no UpdatedAt is kept.
type Expense struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"`
	PublicID    string          `gorm:"type:varchar(50);uniqueIndex;not null"`
	UserID      uint            `gorm:"not null;index:idx_expenses_user_created"`
	User        User            `gorm:"foreignKey:UserID"`
	CategoryID  uint            `gorm:"not null;index:idx_expenses_category"`
	Category    Category        `gorm:"foreignKey:CategoryID"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Description string          `gorm:"type:varchar(255)"`
	CreatedAt   time.Time       `gorm:"not null;index:idx_expenses_user_created"`
}

// NewSchemaExpense converts a domain expense into a schema instance.
func NewSchemaExpense(e *expense.Expense) *Expense {
	if e == nil {
		return nil
	}

	return &Expense{
		ID:          e.ID,
		PublicID:    e.PublicID,
		UserID:      e.UserID,
		CategoryID:  e.CategoryID,
		Amount:      e.Amount,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
	}
}

// EtoD converts a schema expense back to the domain representation. The
// category name is filled when the Category association was preloaded.
func (e *Expense) EtoD() *expense.Expense {
	if e == nil {
		return nil
	}

	return &expense.Expense{
		ID:           e.ID,
		PublicID:     e.PublicID,
		UserID:       e.UserID,
		CategoryID:   e.CategoryID,
		CategoryName: e.Category.Name,
		Amount:       e.Amount,
		Description:  e.Description,
		CreatedAt:    e.CreatedAt,
	}
}
