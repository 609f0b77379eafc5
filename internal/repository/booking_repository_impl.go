package repository

import (
	"errors"
	"time"

	"nursera-booking-server/internal/domain/entity"
	domainRepo "nursera-booking-server/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type bookingRepository struct{}

func NewBookingRepository() domainRepo.BookingRepository {
	return &bookingRepository{}
}

func (r *bookingRepository) Create(db *gorm.DB, booking *entity.Booking) error {
	return db.Create(booking).Error
}

func (r *bookingRepository) Save(db *gorm.DB, booking *entity.Booking) error {
	return db.Save(booking).Error
}

func (r *bookingRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Booking, error) {
	var booking entity.Booking
	err := db.Preload("Patient").Preload("Medic").Preload("CareType").
		Where("id = ?", id).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &booking, nil
}

// FindByIDForUpdate locks the booking row so racing transitions on the same
// booking serialize. No preloads: locked reads stay on the bookings table.
func (r *bookingRepository) FindByIDForUpdate(db *gorm.DB, id uuid.UUID) (*entity.Booking, error) {
	var booking entity.Booking
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindAll(db *gorm.DB) ([]entity.Booking, error) {
	var bookings []entity.Booking
	err := db.Preload("Patient").Preload("Medic").Preload("CareType").
		Order("created_at DESC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) FindActiveByPatientEmail(db *gorm.DB, email string) ([]entity.Booking, error) {
	var bookings []entity.Booking
	err := db.Preload("Patient").Preload("Medic").Preload("CareType").
		Joins("JOIN patients ON patients.id = bookings.patient_id").
		Where("patients.email = ? AND bookings.status IN ?", email, entity.ActiveBookingStatuses).
		Order("bookings.created_at DESC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) FindActiveByMedicEmail(db *gorm.DB, email string) ([]entity.Booking, error) {
	var bookings []entity.Booking
	err := db.Preload("Patient").Preload("Medic").Preload("CareType").
		Joins("JOIN medics ON medics.id = bookings.medic_id").
		Where("medics.email = ? AND bookings.status IN ?", email, entity.ActiveBookingStatuses).
		Order("bookings.created_at DESC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) CountActiveByMedicID(db *gorm.DB, medicID uuid.UUID) (int64, error) {
	var count int64
	err := db.Model(&entity.Booking{}).
		Where("medic_id = ? AND status NOT IN ?", medicID,
			[]entity.BookingStatus{entity.BookingStatusCompleted, entity.BookingStatusCancelled}).
		Count(&count).Error
	return count, err
}

func (r *bookingRepository) FindExpiredIDs(db *gorm.DB, now time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := db.Model(&entity.Booking{}).
		Where("timeout_at IS NOT NULL AND timeout_at < ? AND status NOT IN ?", now,
			[]entity.BookingStatus{entity.BookingStatusCompleted, entity.BookingStatusCancelled}).
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
