package repository

import (
	"nursera-booking-server/internal/domain/entity"

	"gorm.io/gorm"
)

type PatientRepository interface {
	FindByEmail(db *gorm.DB, email string) (*entity.Patient, error)
}
