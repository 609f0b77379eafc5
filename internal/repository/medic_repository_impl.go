package repository

import (
	"errors"

	"nursera-booking-server/internal/domain/entity"
	domainRepo "nursera-booking-server/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type medicRepository struct{}

func NewMedicRepository() domainRepo.MedicRepository {
	return &medicRepository{}
}

func (r *medicRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Medic, error) {
	var medic entity.Medic
	err := db.Where("id = ?", id).First(&medic).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &medic, nil
}

func (r *medicRepository) FindByIDForUpdate(db *gorm.DB, id uuid.UUID) (*entity.Medic, error) {
	var medic entity.Medic
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&medic).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &medic, nil
}

func (r *medicRepository) FindByIDAndEmail(db *gorm.DB, id uuid.UUID, email string) (*entity.Medic, error) {
	var medic entity.Medic
	err := db.Where("id = ? AND email = ?", id, email).First(&medic).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &medic, nil
}

func (r *medicRepository) FindAll(db *gorm.DB) ([]entity.Medic, error) {
	var medics []entity.Medic
	err := db.Find(&medics).Error
	if err != nil {
		return nil, err
	}
	return medics, nil
}

func (r *medicRepository) UpdateAvailability(db *gorm.DB, id uuid.UUID, available bool) error {
	return db.Model(&entity.Medic{}).
		Where("id = ?", id).
		Update("available", available).Error
}
