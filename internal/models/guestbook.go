package models

import (
	"time"

	"gorm.io/gorm"
)

// GuestbookEntry is either a root post (ParentID and RootID nil) or a reply.
// A reply's RootID points at its top-most ancestor and is fixed at creation.
type GuestbookEntry struct {
	ID              string          `gorm:"primaryKey;size:36" json:"id"`
	Message         string          `gorm:"size:280;not null" json:"message"`
	AuthorID        string          `gorm:"size:36;not null;index" json:"authorId"`
	User            User            `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	ParentID        *string         `gorm:"size:36;index" json:"parentId"`
	Parent          *GuestbookEntry `gorm:"foreignKey:ParentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	RootID          *string         `gorm:"size:36;index" json:"rootId"`
	Root            *GuestbookEntry `gorm:"foreignKey:RootID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	MentionedUserID *string         `gorm:"size:36;index" json:"mentionedUserId"`
	MentionedUser   *User           `gorm:"foreignKey:MentionedUserID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"mentionedUser,omitempty"`
	Likes           []Like          `gorm:"foreignKey:GuestbookID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"likes"`
	CreatedAt       time.Time       `gorm:"index" json:"createdAt"`

	// 非数据库字段，ListEntries 填充
	Replies []GuestbookEntry `gorm:"-" json:"replies"`
}

func (GuestbookEntry) TableName() string {
	return "guestbook_entries"
}

func (e *GuestbookEntry) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

func (e *GuestbookEntry) IsRoot() bool {
	return e.ParentID == nil
}

// LikedBy reports whether a like from the given email is present.
func (e *GuestbookEntry) LikedBy(email string) bool {
	for _, l := range e.Likes {
		if l.User.Email == email {
			return true
		}
	}
	return false
}

// Like is unique per (user, entry).
type Like struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"size:36;not null;uniqueIndex:idx_like_user_entry" json:"userId"`
	User        User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	GuestbookID string    `gorm:"size:36;not null;index;uniqueIndex:idx_like_user_entry" json:"guestbookId"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (l *Like) BeforeCreate(tx *gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
