package repository

import (
	"time"

	"nursera-booking-server/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingRepository interface {
	Create(db *gorm.DB, booking *entity.Booking) error
	Save(db *gorm.DB, booking *entity.Booking) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Booking, error)
	// FindByIDForUpdate takes a row lock on the booking; must run inside a transaction.
	FindByIDForUpdate(db *gorm.DB, id uuid.UUID) (*entity.Booking, error)
	FindAll(db *gorm.DB) ([]entity.Booking, error)
	// FindActiveByPatientEmail returns active bookings for a patient, newest first.
	FindActiveByPatientEmail(db *gorm.DB, email string) ([]entity.Booking, error)
	// FindActiveByMedicEmail returns active bookings for a medic, newest first.
	FindActiveByMedicEmail(db *gorm.DB, email string) ([]entity.Booking, error)
	// CountActiveByMedicID counts non-terminal bookings currently targeting a medic.
	CountActiveByMedicID(db *gorm.DB, medicID uuid.UUID) (int64, error)
	// FindExpiredIDs returns ids of non-terminal bookings past their timeout.
	FindExpiredIDs(db *gorm.DB, now time.Time, limit int) ([]uuid.UUID, error)
}
