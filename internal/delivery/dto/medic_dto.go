package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type UpdateAvailabilityRequest struct {
	MedicID   uuid.UUID `json:"medic_id" validate:"required"`
	Email     string    `json:"email" validate:"required,email"`
	Available *bool     `json:"available" validate:"required"`
}

// Response DTOs

type MedicResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	Verified    bool      `json:"verified"`
	Available   bool      `json:"available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type PatientResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
}
