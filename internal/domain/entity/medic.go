package entity

import (
	"time"

	"github.com/google/uuid"
)

// Medic represents the care provider being booked.
// Available is the booking mutual-exclusion flag: false exactly while a
// non-terminal booking targets the medic. While a booking holds the medic,
// the flag is mutated only by the booking state machine.
type Medic struct {
	ID             uuid.UUID              `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name           string                 `gorm:"type:varchar(255);not null" json:"name"`
	Email          string                 `gorm:"type:varchar(255);not null;index" json:"email"`
	PhoneNumber    string                 `gorm:"type:varchar(20);not null" json:"phone_number"`
	Description    string                 `gorm:"type:text" json:"description"`
	Verified       bool                   `gorm:"not null;default:false" json:"verified"`
	Available      bool                   `gorm:"not null;default:true;index" json:"available"`
	AreaCoverageKM *float64               `json:"area_coverage_km"`
	ExtraFields    map[string]interface{} `gorm:"serializer:json" json:"extra_fields"`
	CreatedAt      time.Time              `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time              `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Medic) TableName() string {
	return "medics"
}
