package dbschema

import (
	"github.com/jarvishq/jarvis-server/internal/domain/category"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(Category{})
}

// Category represents the persisted category schema. Names are unique per
// user.
type Category struct {
	BaseModel
	UserID      uint   `gorm:"not null;uniqueIndex:ux_categories_user_name"`
	User        User   `gorm:"foreignKey:UserID"`
	Name        string `gorm:"type:varchar(100);not null;uniqueIndex:ux_categories_user_name"`
	Description string `gorm:"type:varchar(255)"`
}

// NewSchemaCategory converts a domain category into a schema instance.
func NewSchemaCategory(c *category.Category) *Category {
	if c == nil {
		return nil
	}

	return &Category{
		BaseModel: BaseModel{
			ID:        c.ID,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		},
		UserID:      c.UserID,
		Name:        c.Name,
		Description: c.Description,
	}
}

// EtoD converts a schema category back to the domain representation.
func (c *Category) EtoD() *category.Category {
	if c == nil {
		return nil
	}

	return &category.Category{
		ID:          c.ID,
		UserID:      c.UserID,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
