package entity

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the lifecycle status of a booking
type BookingStatus string

const (
	BookingStatusInitiated      BookingStatus = "initiated"
	BookingStatusLocationShared BookingStatus = "location_shared"
	BookingStatusOTPSent        BookingStatus = "otp_sent"
	BookingStatusInProgress     BookingStatus = "in_progress"
	BookingStatusConfirmed      BookingStatus = "confirmed"
	BookingStatusCompleted      BookingStatus = "completed"
	BookingStatusCancelled      BookingStatus = "cancelled"
)

// ActiveBookingStatuses are the statuses counted as "active" by the
// recent-booking resolution. in_progress is a declared placeholder: no
// transition currently produces it, but a row carrying it still counts as
// active. otp_sent is also a placeholder and is deliberately not in the set.
var ActiveBookingStatuses = []BookingStatus{
	BookingStatusInitiated,
	BookingStatusLocationShared,
	BookingStatusInProgress,
	BookingStatusConfirmed,
}

// Booking tracks one patient-to-medic care engagement end-to-end.
// The medic's availability flag is held false for the whole non-terminal
// lifetime of the booking, starting at initiation.
type Booking struct {
	ID          uuid.UUID              `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Status      BookingStatus          `gorm:"type:varchar(20);not null;default:'initiated';index" json:"status"`
	PatientID   uuid.UUID              `gorm:"type:uuid;not null;index" json:"patient_id"`
	MedicID     uuid.UUID              `gorm:"type:uuid;not null;index" json:"medic_id"`
	CareTypeID  *int                   `gorm:"index" json:"care_type_id"`
	OTP         *string                `gorm:"type:varchar(4)" json:"otp"`
	Latitude    *float64               `json:"latitude"`
	Longitude   *float64               `json:"longitude"`
	ExtraFields map[string]interface{} `gorm:"serializer:json" json:"extra_fields"`
	CreatedAt   time.Time              `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time              `gorm:"autoUpdateTime" json:"updated_at"`
	TimeoutAt   *time.Time             `gorm:"index" json:"timeout_at"`

	// Relationships
	Patient  Patient   `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Medic    Medic     `gorm:"foreignKey:MedicID" json:"medic,omitempty"`
	CareType *CareType `gorm:"foreignKey:CareTypeID" json:"care_type,omitempty"`
}

func (Booking) TableName() string {
	return "bookings"
}

// IsTerminal reports whether the booking has reached a final status
func (b *Booking) IsTerminal() bool {
	return b.Status == BookingStatusCompleted || b.Status == BookingStatusCancelled
}

// IsActive reports whether the booking counts against the active set
func (b *Booking) IsActive() bool {
	for _, s := range ActiveBookingStatuses {
		if b.Status == s {
			return true
		}
	}
	return false
}

// CanShareLocation guards the initiated -> location_shared transition
func (b *Booking) CanShareLocation() bool {
	return b.Status == BookingStatusInitiated
}

// CanConfirm guards the location_shared -> confirmed transition
func (b *Booking) CanConfirm() bool {
	return b.Status == BookingStatusLocationShared
}

// CanComplete guards the confirmed -> completed transition
func (b *Booking) CanComplete() bool {
	return b.Status == BookingStatusConfirmed
}

// ShareLocation issues the OTP and moves the booking to location_shared
func (b *Booking) ShareLocation(otp string) {
	b.OTP = &otp
	b.Status = BookingStatusLocationShared
}

// MatchesOTP compares the supplied code against the stored one.
// Plain string equality, no normalization.
func (b *Booking) MatchesOTP(otp string) bool {
	return b.OTP != nil && *b.OTP == otp
}

// Confirm moves the booking to confirmed. The OTP value stays on the row
// for history but is no longer authoritative.
func (b *Booking) Confirm() {
	b.Status = BookingStatusConfirmed
}

// Complete moves the booking to completed
func (b *Booking) Complete() {
	b.Status = BookingStatusCompleted
}

// Cancel moves the booking to cancelled
func (b *Booking) Cancel() {
	b.Status = BookingStatusCancelled
}

// Expired reports whether the booking has passed its timeout
func (b *Booking) Expired(now time.Time) bool {
	return b.TimeoutAt != nil && !b.IsTerminal() && b.TimeoutAt.Before(now)
}
