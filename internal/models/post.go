package models

import (
	"time"

	"gorm.io/gorm"
)

type Post struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Slug       string    `gorm:"uniqueIndex;size:120;not null" json:"slug"`
	Title      string    `gorm:"not null" json:"title"`
	Summary    string    `gorm:"size:500" json:"summary"`
	Content    string    `gorm:"type:text" json:"content"` // Markdown
	CoverImage string    `json:"cover_image"`
	Published  bool      `gorm:"default:false;index" json:"published"`
	SourceURL  *string   `gorm:"uniqueIndex" json:"source_url"` // 由 feed 导入时记录原文链接
	Tags       []Tag     `gorm:"many2many:post_tags;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"tags"`
	Comments   []Comment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comments,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// 非数据库字段，用于查询时填充
	CommentCount int `gorm:"-" json:"comment_count"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

type Tag struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:50;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
