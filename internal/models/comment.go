package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment is a flat comment under a blog post.
type Comment struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PostID    string    `gorm:"size:36;not null;index" json:"post_id"`
	UserID    string    `gorm:"size:36;not null;index" json:"user_id"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
