package converter

import (
	"nursera-booking-server/internal/delivery/dto"
	"nursera-booking-server/internal/domain/entity"
)

// MedicToResponse converts a Medic entity to MedicResponse DTO
func MedicToResponse(medic *entity.Medic) *dto.MedicResponse {
	if medic == nil {
		return nil
	}

	return &dto.MedicResponse{
		ID:          medic.ID,
		Name:        medic.Name,
		Email:       medic.Email,
		PhoneNumber: medic.PhoneNumber,
		Verified:    medic.Verified,
		Available:   medic.Available,
		CreatedAt:   medic.CreatedAt,
		UpdatedAt:   medic.UpdatedAt,
	}
}

// PatientToResponse converts a Patient entity to PatientResponse DTO
func PatientToResponse(patient *entity.Patient) *dto.PatientResponse {
	if patient == nil {
		return nil
	}

	return &dto.PatientResponse{
		ID:        patient.ID,
		Email:     patient.Email,
		FirstName: patient.FirstName,
		LastName:  patient.LastName,
	}
}
