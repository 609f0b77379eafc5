package repository

import (
	"nursera-booking-server/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MedicRepository interface {
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Medic, error)
	// FindByIDForUpdate takes a row lock on the medic; must run inside a transaction.
	FindByIDForUpdate(db *gorm.DB, id uuid.UUID) (*entity.Medic, error)
	FindByIDAndEmail(db *gorm.DB, id uuid.UUID, email string) (*entity.Medic, error)
	FindAll(db *gorm.DB) ([]entity.Medic, error)
	UpdateAvailability(db *gorm.DB, id uuid.UUID, available bool) error
}
