package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"nursera-booking-server/internal/delivery/dto"
	"nursera-booking-server/internal/usecase"
	"nursera-booking-server/pkg/response"
	"nursera-booking-server/pkg/validator"
)

type MedicHandler struct {
	medicUsecase usecase.MedicUsecase
	validator    *validator.CustomValidator
}

func NewMedicHandler(medicUsecase usecase.MedicUsecase, validator *validator.CustomValidator) *MedicHandler {
	return &MedicHandler{
		medicUsecase: medicUsecase,
		validator:    validator,
	}
}

// UpdateAvailability is the manual toggle for medics outside any engagement.
// It is rejected while a live booking holds the medic.
func (h *MedicHandler) UpdateAvailability(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	err := h.medicUsecase.SetAvailability(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrMedicNotFound):
			response.NotFound(w, "Medic not found")
		case errors.Is(err, usecase.ErrMedicEngaged):
			response.Error(w, http.StatusConflict, "Medic has an active booking", nil)
		default:
			response.InternalServerError(w, "Failed to update availability")
		}
		return
	}

	response.Success(w, http.StatusOK, "Availability updated successfully", nil)
}
