package models

import (
	"time"

	"gorm.io/gorm"
)

// Contact 联系表单留言
type Contact struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:200;not null;index" json:"email"`
	Subject   string    `gorm:"size:200" json:"subject"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Handled   bool      `gorm:"default:false;index" json:"handled"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *Contact) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
