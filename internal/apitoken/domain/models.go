package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// APIToken is a bearer credential for a marketplace user. Only the sha256
// hash of the raw token is stored.
type APIToken struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	UserID    string       `gorm:"type:text;not null;index"`
	TokenHash string       `gorm:"type:text;not null;uniqueIndex:ux_api_tokens_hash"`
	Role      string       `gorm:"type:text;not null;default:'sponsor'"`
	IsActive  bool         `gorm:"not null;default:true"`
	ExpiresAt *time.Time   `gorm:""`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (APIToken) TableName() string { return "api_tokens" }
