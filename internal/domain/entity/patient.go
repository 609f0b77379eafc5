package entity

import (
	"time"

	"github.com/google/uuid"
)

// Patient represents the requesting party, resolved by email at initiation
type Patient struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FirstName string    `gorm:"type:varchar(30)" json:"first_name"`
	LastName  string    `gorm:"type:varchar(30)" json:"last_name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Patient) TableName() string {
	return "patients"
}
