package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ContactFee is the one-row-per-pair record that makes contacting a maid a
// one-time charge for a given sponsor.
type ContactFee struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	SponsorID      string       `gorm:"type:text;not null;uniqueIndex:ux_contact_fees_pair"`
	MaidID         string       `gorm:"type:text;not null;uniqueIndex:ux_contact_fees_pair"`
	CreditsCharged int64        `gorm:"not null"`
	ContactMessage string       `gorm:"type:text"`
	TransactionID  snowflake.ID `gorm:"not null"`
	CreatedAt      time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (ContactFee) TableName() string { return "contact_fees" }
