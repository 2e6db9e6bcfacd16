package types

import (
	"time"

	"github.com/google/uuid"
)

// LoginToken backs the emailed single-use login links. Only a SHA-256 hash
// of the secret is stored; ConsumedAt marks the token as spent.
type LoginToken struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User       *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	TokenHash  string     `gorm:"uniqueIndex;not null;column:token_hash" json:"-"`
	ExpiresAt  time.Time  `gorm:"not null" json:"expires_at"`
	ConsumedAt *time.Time `gorm:"column:consumed_at" json:"consumed_at,omitempty"`
	CreatedAt  time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null" json:"updated_at"`
}

func (LoginToken) TableName() string { return "login_token" }
