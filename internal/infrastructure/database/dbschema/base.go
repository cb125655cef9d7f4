package dbschema

import "time"

// BaseModel carries the surrogate key and row timestamps shared by every
// schema struct.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
