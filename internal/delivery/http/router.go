package http

import (
	"net/http"

	"nursera-booking-server/internal/delivery/http/handler"
	"nursera-booking-server/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
)

type Router struct {
	router         *mux.Router
	bookingHandler *handler.BookingHandler
	medicHandler   *handler.MedicHandler
	wsHandler      *handler.WSHandler
	corsMiddleware *middleware.CORSMiddleware
}

func NewRouter(
	bookingHandler *handler.BookingHandler,
	medicHandler *handler.MedicHandler,
	wsHandler *handler.WSHandler,
	corsMiddleware *middleware.CORSMiddleware,
) *Router {
	return &Router{
		router:         mux.NewRouter(),
		bookingHandler: bookingHandler,
		medicHandler:   medicHandler,
		wsHandler:      wsHandler,
		corsMiddleware: corsMiddleware,
	}
}

func (r *Router) Setup() *mux.Router {
	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Booking lifecycle
	bookings := api.PathPrefix("/bookings").Subrouter()
	bookings.HandleFunc("", r.bookingHandler.InitiateBooking).Methods(http.MethodPost)
	bookings.HandleFunc("", r.bookingHandler.GetBookings).Methods(http.MethodGet)
	bookings.HandleFunc("/recent/patient", r.bookingHandler.RecentPatientBooking).Methods(http.MethodPost)
	bookings.HandleFunc("/recent/medic", r.bookingHandler.RecentMedicBooking).Methods(http.MethodPost)
	bookings.HandleFunc("/{id}", r.bookingHandler.GetBooking).Methods(http.MethodGet)
	bookings.HandleFunc("/{id}/location", r.bookingHandler.ShareLocation).Methods(http.MethodPut)
	bookings.HandleFunc("/{id}/confirm", r.bookingHandler.ConfirmBooking).Methods(http.MethodPost)
	bookings.HandleFunc("/{id}/complete", r.bookingHandler.CompleteBooking).Methods(http.MethodPost)
	bookings.HandleFunc("/{id}/cancel", r.bookingHandler.CancelBooking).Methods(http.MethodPost)

	// Medic availability toggle (outside any engagement)
	api.HandleFunc("/medics/availability", r.medicHandler.UpdateAvailability).Methods(http.MethodPost)

	// Real-time channel, one topic per booking
	r.router.HandleFunc("/ws/bookings/{id}", r.wsHandler.Subscribe).Methods(http.MethodGet)

	// Add CORS middleware
	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
