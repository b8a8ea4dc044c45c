package types

import (
	"time"

	"github.com/google/uuid"
)

// Party groups guests whose attendance is tallied together for seating.
type Party struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name       string    `gorm:"column:name;not null" json:"name"`
	InviteCode string    `gorm:"column:invite_code;uniqueIndex" json:"invite_code,omitempty"`
	CreatedAt  time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;default:now()" json:"updated_at"`

	Guests []*Guest `gorm:"foreignKey:PartyID;references:ID" json:"guests,omitempty"`
}

func (Party) TableName() string { return "party" }
