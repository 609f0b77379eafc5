package converter

import (
	"nursera-booking-server/internal/delivery/dto"
	"nursera-booking-server/internal/domain/entity"

	"github.com/google/uuid"
)

// BookingToResponse converts a Booking entity to BookingResponse DTO
func BookingToResponse(booking *entity.Booking) *dto.BookingResponse {
	if booking == nil {
		return nil
	}

	response := &dto.BookingResponse{
		ID:          booking.ID,
		Status:      string(booking.Status),
		PatientID:   booking.PatientID,
		MedicID:     booking.MedicID,
		CareTypeID:  booking.CareTypeID,
		OTP:         booking.OTP,
		Latitude:    booking.Latitude,
		Longitude:   booking.Longitude,
		ExtraFields: booking.ExtraFields,
		CreatedAt:   booking.CreatedAt,
		UpdatedAt:   booking.UpdatedAt,
		TimeoutAt:   booking.TimeoutAt,
	}

	if booking.Patient.ID != uuid.Nil {
		response.Patient = PatientToResponse(&booking.Patient)
	}
	if booking.Medic.ID != uuid.Nil {
		response.Medic = MedicToResponse(&booking.Medic)
	}
	if booking.CareType != nil {
		response.CareType = &booking.CareType.Name
	}

	return response
}

// BookingsToResponses converts a slice of Booking entities to response DTOs
func BookingsToResponses(bookings []entity.Booking) []dto.BookingResponse {
	responses := make([]dto.BookingResponse, len(bookings))
	for i, booking := range bookings {
		resp := BookingToResponse(&booking)
		if resp != nil {
			responses[i] = *resp
		}
	}
	return responses
}
