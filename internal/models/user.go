package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is owned by the OAuth login flow; the guestbook only reads it.
type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"index" json:"name"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Image     string    `json:"image"`
	Role      string    `gorm:"size:20;default:'user';not null" json:"role"`
	Accounts  []Account `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"accounts,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Account links a User to an OAuth provider identity.
type Account struct {
	ID                string    `gorm:"primaryKey;size:36" json:"id"`
	UserID            string    `gorm:"size:36;not null;index" json:"userId"`
	Provider          string    `gorm:"size:20;not null;uniqueIndex:idx_provider_account" json:"provider"`
	ProviderAccountID string    `gorm:"not null;uniqueIndex:idx_provider_account" json:"providerAccountId"`
	CreatedAt         time.Time `json:"createdAt"`
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
