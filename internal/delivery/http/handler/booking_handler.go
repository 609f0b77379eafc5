package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"nursera-booking-server/internal/delivery/dto"
	"nursera-booking-server/internal/usecase"
	"nursera-booking-server/pkg/response"
	"nursera-booking-server/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type BookingHandler struct {
	bookingUsecase usecase.BookingUsecase
	validator      *validator.CustomValidator
}

func NewBookingHandler(bookingUsecase usecase.BookingUsecase, validator *validator.CustomValidator) *BookingHandler {
	return &BookingHandler{
		bookingUsecase: bookingUsecase,
		validator:      validator,
	}
}

func (h *BookingHandler) InitiateBooking(w http.ResponseWriter, r *http.Request) {
	var req dto.InitiateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	booking, err := h.bookingUsecase.InitiateBooking(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrMedicNotFound):
			response.NotFound(w, "Medic not found")
		case errors.Is(err, usecase.ErrPatientNotFound):
			response.NotFound(w, "Patient not found")
		case errors.Is(err, usecase.ErrMedicUnavailable):
			response.Error(w, http.StatusBadRequest, "Medic is not available for booking.", nil)
		default:
			response.InternalServerError(w, "Failed to initiate booking")
		}
		return
	}

	response.Success(w, http.StatusCreated, "Booking initiated successfully", booking)
}

func (h *BookingHandler) GetBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookingUsecase.GetBookings(r.Context())
	if err != nil {
		response.InternalServerError(w, "Failed to get bookings")
		return
	}

	response.Success(w, http.StatusOK, "Bookings retrieved successfully", bookings)
}

func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := h.bookingID(w, r)
	if !ok {
		return
	}

	booking, err := h.bookingUsecase.GetBooking(r.Context(), bookingID)
	if err != nil {
		if errors.Is(err, usecase.ErrBookingNotFound) {
			response.NotFound(w, "Booking not found")
			return
		}
		response.InternalServerError(w, "Failed to get booking")
		return
	}

	response.Success(w, http.StatusOK, "Booking retrieved successfully", booking)
}

func (h *BookingHandler) ShareLocation(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := h.bookingID(w, r)
	if !ok {
		return
	}

	var req dto.ShareLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	booking, err := h.bookingUsecase.ShareLocation(r.Context(), bookingID, &req)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrBookingNotFound):
			response.NotFound(w, "Booking not found")
		case errors.Is(err, usecase.ErrInvalidBookingState):
			response.Error(w, http.StatusBadRequest, "Invalid booking status.", nil)
		default:
			response.InternalServerError(w, "Failed to share location")
		}
		return
	}

	response.Success(w, http.StatusOK, "Location shared successfully", booking)
}

func (h *BookingHandler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := h.bookingID(w, r)
	if !ok {
		return
	}

	var req dto.ConfirmBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	err := h.bookingUsecase.ConfirmBooking(r.Context(), bookingID, req.OTP)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrBookingNotFound):
			response.NotFound(w, "Booking not found")
		case errors.Is(err, usecase.ErrInvalidOTP):
			response.Error(w, http.StatusBadRequest, "OTP is incorrect.", nil)
		case errors.Is(err, usecase.ErrInvalidBookingState):
			response.Error(w, http.StatusBadRequest, "Invalid booking status.", nil)
		default:
			response.InternalServerError(w, "Failed to confirm booking")
		}
		return
	}

	response.Success(w, http.StatusOK, "Booking confirmed successfully", dto.BookingStatusResponse{Status: "confirmed"})
}

func (h *BookingHandler) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := h.bookingID(w, r)
	if !ok {
		return
	}

	err := h.bookingUsecase.CompleteBooking(r.Context(), bookingID)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrBookingNotFound):
			response.NotFound(w, "Booking not found")
		case errors.Is(err, usecase.ErrInvalidBookingState):
			response.Error(w, http.StatusBadRequest, "Invalid booking status.", nil)
		default:
			response.InternalServerError(w, "Failed to complete booking")
		}
		return
	}

	response.Success(w, http.StatusOK, "Booking completed successfully", dto.BookingStatusResponse{Status: "completed"})
}

func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := h.bookingID(w, r)
	if !ok {
		return
	}

	err := h.bookingUsecase.CancelBooking(r.Context(), bookingID)
	if err != nil {
		if errors.Is(err, usecase.ErrBookingNotFound) {
			response.NotFound(w, "Booking not found")
			return
		}
		response.InternalServerError(w, "Failed to cancel booking")
		return
	}

	response.Success(w, http.StatusOK, "Booking cancelled successfully", dto.BookingStatusResponse{Status: "cancelled"})
}

func (h *BookingHandler) RecentPatientBooking(w http.ResponseWriter, r *http.Request) {
	h.recentBooking(w, r, usecase.PartyPatient)
}

func (h *BookingHandler) RecentMedicBooking(w http.ResponseWriter, r *http.Request) {
	h.recentBooking(w, r, usecase.PartyMedic)
}

func (h *BookingHandler) recentBooking(w http.ResponseWriter, r *http.Request, party usecase.BookingParty) {
	var req dto.RecentBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	booking, err := h.bookingUsecase.ResolveRecentActive(r.Context(), req.Email, party)
	if err != nil {
		if errors.Is(err, usecase.ErrNoActiveBookings) {
			response.NotFound(w, "No active bookings found")
			return
		}
		response.InternalServerError(w, "Failed to resolve recent booking")
		return
	}

	response.Success(w, http.StatusOK, "Recent booking retrieved successfully", booking)
}

func (h *BookingHandler) bookingID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	vars := mux.Vars(r)
	bookingID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid booking ID", nil)
		return uuid.Nil, false
	}
	return bookingID, true
}
