package types

import (
	"time"

	"github.com/google/uuid"
)

// Guest is one invited person. Attending is tri-state: nil means the guest
// has not answered yet. The two confirmation flags are monotonic; only the
// dispatch workflow sets them, and only to true.
type Guest struct {
	ID                        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PartyID                   *uuid.UUID `gorm:"type:uuid;index" json:"party_id,omitempty"`
	Party                     *Party     `gorm:"constraint:OnDelete:SET NULL;foreignKey:PartyID;references:ID" json:"party,omitempty"`
	FirstName                 string     `gorm:"column:first_name;not null" json:"first_name"`
	LastName                  string     `gorm:"column:last_name" json:"last_name"`
	Email                     *string    `gorm:"column:email" json:"email,omitempty"`
	Phone                     *string    `gorm:"column:phone" json:"phone,omitempty"`
	Attending                 *bool      `gorm:"column:attending" json:"attending"`
	PlusOne                   bool       `gorm:"column:plus_one;not null;default:false" json:"plus_one"`
	PlusOneName               string     `gorm:"column:plus_one_name" json:"plus_one_name,omitempty"`
	DietaryRestrictions       string     `gorm:"column:dietary_restrictions" json:"dietary_restrictions,omitempty"`
	Message                   string     `gorm:"column:message" json:"message,omitempty"`
	EmailConfirmationSent     bool       `gorm:"column:email_confirmation_sent;not null;default:false" json:"email_confirmation_sent"`
	MessagingConfirmationSent bool       `gorm:"column:messaging_confirmation_sent;not null;default:false" json:"messaging_confirmation_sent"`
	CreatedAt                 time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt                 time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (Guest) TableName() string { return "guest" }

// DisplayName is what the notification templates address the guest by.
func (g *Guest) DisplayName() string {
	if g.LastName == "" {
		return g.FirstName
	}
	return g.FirstName + " " + g.LastName
}
