package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type InitiateBookingRequest struct {
	MedicID      uuid.UUID `json:"medic_id" validate:"required"`
	PatientEmail string    `json:"patient_email" validate:"required,email"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	CareTypeID   *int      `json:"care_type_id"`
}

type ShareLocationRequest struct {
	Latitude    *float64               `json:"latitude" validate:"required"`
	Longitude   *float64               `json:"longitude" validate:"required"`
	CareTypeID  *int                   `json:"care_type_id"`
	ExtraFields map[string]interface{} `json:"extra_fields"`
}

type ConfirmBookingRequest struct {
	OTP string `json:"otp" validate:"required,len=4,numeric"`
}

type RecentBookingRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Response DTOs

type BookingResponse struct {
	ID          uuid.UUID              `json:"id"`
	Status      string                 `json:"status"`
	PatientID   uuid.UUID              `json:"patient_id"`
	MedicID     uuid.UUID              `json:"medic_id"`
	CareTypeID  *int                   `json:"care_type_id"`
	OTP         *string                `json:"otp"`
	Latitude    *float64               `json:"latitude"`
	Longitude   *float64               `json:"longitude"`
	ExtraFields map[string]interface{} `json:"extra_fields"`
	Patient     *PatientResponse       `json:"patient,omitempty"`
	Medic       *MedicResponse         `json:"medic,omitempty"`
	CareType    *string                `json:"care_type,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	TimeoutAt   *time.Time             `json:"timeout_at"`
}

type BookingListResponse struct {
	Bookings []BookingResponse `json:"bookings"`
	Total    int               `json:"total"`
}

type BookingStatusResponse struct {
	Status string `json:"status"`
}
