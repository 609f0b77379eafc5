package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nursera-booking-server/config"
	"nursera-booking-server/internal/converter"
	"nursera-booking-server/internal/delivery/dto"
	"nursera-booking-server/internal/domain/entity"
	"nursera-booking-server/internal/domain/repository"
	"nursera-booking-server/internal/service"
	"nursera-booking-server/pkg/otp"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrBookingNotFound     = errors.New("booking not found")
	ErrMedicNotFound       = errors.New("medic not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrMedicUnavailable    = errors.New("medic is not available for booking")
	ErrInvalidBookingState = errors.New("invalid booking status")
	ErrInvalidOTP          = errors.New("otp is incorrect")
	ErrNoActiveBookings    = errors.New("no active bookings found")
)

// otpSMSTemplate is sent to the medic's phone, not the patient's
const otpSMSTemplate = "Your booking has been confirmed, Please use this OTP %s once the provider arrives. Thank You! Nursera Team."

// BookingParty selects which side of a booking an email identifies
type BookingParty string

const (
	PartyPatient BookingParty = "patient"
	PartyMedic   BookingParty = "medic"
)

type BookingUsecase interface {
	InitiateBooking(ctx context.Context, req *dto.InitiateBookingRequest) (*dto.BookingResponse, error)
	ShareLocation(ctx context.Context, bookingID uuid.UUID, req *dto.ShareLocationRequest) (*dto.BookingResponse, error)
	ConfirmBooking(ctx context.Context, bookingID uuid.UUID, otp string) error
	CompleteBooking(ctx context.Context, bookingID uuid.UUID) error
	CancelBooking(ctx context.Context, bookingID uuid.UUID) error
	GetBookings(ctx context.Context) (*dto.BookingListResponse, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID) (*dto.BookingResponse, error)
	ResolveRecentActive(ctx context.Context, email string, party BookingParty) (*dto.BookingResponse, error)
	FindExpiredBookingIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

// bookingUsecase is the booking state machine. It exclusively owns writes to
// booking status, otp, and the medic availability flag: every transition runs
// in one transaction with row locks on the booking (and medic where flipped),
// so racing operations on the same booking serialize. Notification publish and
// SMS delivery happen after commit, outside the critical section.
type bookingUsecase struct {
	conn        dbConn
	log         *logrus.Logger
	cfg         config.BookingConfig
	bookingRepo repository.BookingRepository
	medicRepo   repository.MedicRepository
	patientRepo repository.PatientRepository
	ledger      *service.AvailabilityLedger
	notifier    service.Notifier
	smsSender   service.SMSSender
}

func NewBookingUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	cfg config.BookingConfig,
	bookingRepo repository.BookingRepository,
	medicRepo repository.MedicRepository,
	patientRepo repository.PatientRepository,
	ledger *service.AvailabilityLedger,
	notifier service.Notifier,
	smsSender service.SMSSender,
) BookingUsecase {
	return &bookingUsecase{
		conn:        gormConn{db: db},
		log:         log,
		cfg:         cfg,
		bookingRepo: bookingRepo,
		medicRepo:   medicRepo,
		patientRepo: patientRepo,
		ledger:      ledger,
		notifier:    notifier,
		smsSender:   smsSender,
	}
}

// InitiateBooking creates a booking and reserves the medic.
//
// Flow:
// 1. Resolve patient (by email) and medic
// 2. Ledger Acquire (atomic slot reservation in Redis)
// 3. DB transaction: re-check flag under row lock, insert booking, flip flag false
// 4. If DB fails -> compensate: Release the ledger slot
func (u *bookingUsecase) InitiateBooking(ctx context.Context, req *dto.InitiateBookingRequest) (*dto.BookingResponse, error) {
	patient, err := u.patientRepo.FindByEmail(u.conn.Session(ctx), req.PatientEmail)
	if err != nil {
		u.log.Warnf("Failed to find patient %s: %+v", req.PatientEmail, err)
		return nil, err
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}

	medic, err := u.medicRepo.FindByID(u.conn.Session(ctx), req.MedicID)
	if err != nil {
		u.log.Warnf("Failed to find medic %s: %+v", req.MedicID, err)
		return nil, err
	}
	if medic == nil {
		return nil, ErrMedicNotFound
	}

	// Fast gate: concurrent initiations against the same medic race on Redis,
	// not on DB locks. Exactly one wins.
	if err := u.ledger.Acquire(ctx, req.MedicID); err != nil {
		if errors.Is(err, service.ErrMedicLocked) {
			return nil, ErrMedicUnavailable
		}
		u.log.Warnf("Failed ledger acquire for medic %s: %+v", req.MedicID, err)
		return nil, err
	}

	booking := &entity.Booking{
		Status:     entity.BookingStatusInitiated,
		PatientID:  patient.ID,
		MedicID:    medic.ID,
		CareTypeID: req.CareTypeID,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
	}
	if u.cfg.TTL > 0 {
		timeoutAt := time.Now().UTC().Add(u.cfg.TTL)
		booking.TimeoutAt = &timeoutAt
	}

	err = u.conn.Transaction(ctx, func(tx *gorm.DB) error {
		lockedMedic, err := u.medicRepo.FindByIDForUpdate(tx, req.MedicID)
		if err != nil {
			return err
		}
		if lockedMedic == nil || !lockedMedic.Available {
			return ErrMedicUnavailable
		}
		if err := u.bookingRepo.Create(tx, booking); err != nil {
			return err
		}
		return u.medicRepo.UpdateAvailability(tx, req.MedicID, false)
	})
	if err != nil {
		if errors.Is(err, ErrMedicUnavailable) {
			// The row-locked flag disagreed with Redis. The flag is
			// authoritative, so mirror it instead of freeing the slot.
			u.mirrorSlot(req.MedicID, false)
			return nil, ErrMedicUnavailable
		}
		// Compensate: the slot was claimed in Redis but the booking never landed
		u.releaseSlot(req.MedicID)
		u.log.Errorf("Failed to insert booking, ledger slot released: %+v", err)
		return nil, err
	}

	u.log.Infof("Booking initiated: id=%s, medic=%s, patient=%s", booking.ID, medic.ID, patient.ID)
	return u.reload(ctx, booking)
}

// ShareLocation moves an initiated booking to location_shared, issuing a
// fresh OTP. The OTP SMS goes to the medic and is fire-and-forget.
func (u *bookingUsecase) ShareLocation(ctx context.Context, bookingID uuid.UUID, req *dto.ShareLocationRequest) (*dto.BookingResponse, error) {
	var booking *entity.Booking

	err := u.conn.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		booking, err = u.bookingRepo.FindByIDForUpdate(tx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return ErrBookingNotFound
		}
		if !booking.CanShareLocation() {
			return ErrInvalidBookingState
		}

		booking.Latitude = req.Latitude
		booking.Longitude = req.Longitude
		if req.CareTypeID != nil {
			booking.CareTypeID = req.CareTypeID
		}
		if len(req.ExtraFields) > 0 {
			booking.ExtraFields = req.ExtraFields
		}
		booking.ShareLocation(otp.Generate())

		// Re-affirm the lock: the medic stays reserved through the handshake
		if err := u.medicRepo.UpdateAvailability(tx, booking.MedicID, false); err != nil {
			return err
		}
		return u.bookingRepo.Save(tx, booking)
	})
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) || errors.Is(err, ErrInvalidBookingState) {
			return nil, err
		}
		u.log.Warnf("Failed to share location for booking %s: %+v", bookingID, err)
		return nil, err
	}

	u.publish(bookingID, "Location shared by patient")
	u.sendOTPToMedic(booking)

	u.log.Infof("Location shared: booking=%s", bookingID)
	return u.reload(ctx, booking)
}

// ConfirmBooking verifies the OTP handed to the medic in person and releases
// the medic. Requires location_shared; the permissive any-state confirm of
// earlier deployments was a bug and is intentionally rejected here.
func (u *bookingUsecase) ConfirmBooking(ctx context.Context, bookingID uuid.UUID, code string) error {
	var medicID uuid.UUID

	err := u.conn.Transaction(ctx, func(tx *gorm.DB) error {
		booking, err := u.bookingRepo.FindByIDForUpdate(tx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return ErrBookingNotFound
		}
		if !booking.CanConfirm() {
			return ErrInvalidBookingState
		}
		if !booking.MatchesOTP(code) {
			return ErrInvalidOTP
		}

		booking.Confirm()
		medicID = booking.MedicID

		if err := u.medicRepo.UpdateAvailability(tx, booking.MedicID, true); err != nil {
			return err
		}
		return u.bookingRepo.Save(tx, booking)
	})
	if err != nil {
		return err
	}

	u.releaseSlot(medicID)
	u.publish(bookingID, "Booking confirmed and completed.")

	u.log.Infof("Booking confirmed: booking=%s", bookingID)
	return nil
}

// CompleteBooking finishes a confirmed booking. Completing an already
// completed booking is a no-op.
func (u *bookingUsecase) CompleteBooking(ctx context.Context, bookingID uuid.UUID) error {
	var medicID uuid.UUID

	err := u.conn.Transaction(ctx, func(tx *gorm.DB) error {
		booking, err := u.bookingRepo.FindByIDForUpdate(tx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return ErrBookingNotFound
		}
		if booking.Status == entity.BookingStatusCompleted {
			return nil
		}
		if !booking.CanComplete() {
			return ErrInvalidBookingState
		}

		booking.Complete()
		medicID = booking.MedicID

		if err := u.medicRepo.UpdateAvailability(tx, booking.MedicID, true); err != nil {
			return err
		}
		return u.bookingRepo.Save(tx, booking)
	})
	if err != nil {
		return err
	}

	if medicID != uuid.Nil {
		u.releaseSlot(medicID)
	}

	u.log.Infof("Booking completed: booking=%s", bookingID)
	return nil
}

// CancelBooking is reachable from any state. Cancelling a terminal booking
// is a no-op; a live one releases the medic.
func (u *bookingUsecase) CancelBooking(ctx context.Context, bookingID uuid.UUID) error {
	var medicID uuid.UUID

	err := u.conn.Transaction(ctx, func(tx *gorm.DB) error {
		booking, err := u.bookingRepo.FindByIDForUpdate(tx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return ErrBookingNotFound
		}
		if booking.IsTerminal() {
			return nil
		}

		booking.Cancel()
		medicID = booking.MedicID

		if err := u.medicRepo.UpdateAvailability(tx, booking.MedicID, true); err != nil {
			return err
		}
		return u.bookingRepo.Save(tx, booking)
	})
	if err != nil {
		return err
	}

	if medicID != uuid.Nil {
		u.releaseSlot(medicID)
	}

	u.log.Infof("Booking cancelled: booking=%s", bookingID)
	return nil
}

// GetBookings lists every booking, newest first
func (u *bookingUsecase) GetBookings(ctx context.Context) (*dto.BookingListResponse, error) {
	bookings, err := u.bookingRepo.FindAll(u.conn.Session(ctx))
	if err != nil {
		u.log.Warnf("Failed to list bookings: %+v", err)
		return nil, err
	}

	return &dto.BookingListResponse{
		Bookings: converter.BookingsToResponses(bookings),
		Total:    len(bookings),
	}, nil
}

func (u *bookingUsecase) GetBooking(ctx context.Context, bookingID uuid.UUID) (*dto.BookingResponse, error) {
	booking, err := u.bookingRepo.FindByID(u.conn.Session(ctx), bookingID)
	if err != nil {
		u.log.Warnf("Failed to find booking %s: %+v", bookingID, err)
		return nil, err
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	return converter.BookingToResponse(booking), nil
}

// ResolveRecentActive returns the party's single most recent active booking.
// When more than one is active, older ones are superseded: each goes through
// the normal cancel transition so its medic's availability is restored.
func (u *bookingUsecase) ResolveRecentActive(ctx context.Context, email string, party BookingParty) (*dto.BookingResponse, error) {
	var bookings []entity.Booking
	var err error

	switch party {
	case PartyMedic:
		bookings, err = u.bookingRepo.FindActiveByMedicEmail(u.conn.Session(ctx), email)
	default:
		bookings, err = u.bookingRepo.FindActiveByPatientEmail(u.conn.Session(ctx), email)
	}
	if err != nil {
		u.log.Warnf("Failed to find active bookings for %s: %+v", email, err)
		return nil, err
	}
	if len(bookings) == 0 {
		return nil, ErrNoActiveBookings
	}

	// Newest first; everything older is superseded
	mostRecent := bookings[0]
	for _, stale := range bookings[1:] {
		if err := u.CancelBooking(ctx, stale.ID); err != nil {
			u.log.Warnf("Failed to supersede stale booking %s: %+v", stale.ID, err)
		}
	}

	return converter.BookingToResponse(&mostRecent), nil
}

// FindExpiredBookingIDs feeds the timeout sweeper
func (u *bookingUsecase) FindExpiredBookingIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	return u.bookingRepo.FindExpiredIDs(u.conn.Session(ctx), now, limit)
}

// reload fetches the booking with relations for the response
func (u *bookingUsecase) reload(ctx context.Context, booking *entity.Booking) (*dto.BookingResponse, error) {
	full, err := u.bookingRepo.FindByID(u.conn.Session(ctx), booking.ID)
	if err != nil || full == nil {
		u.log.Warnf("Failed to reload booking %s: %+v", booking.ID, err)
		return converter.BookingToResponse(booking), nil
	}
	return converter.BookingToResponse(full), nil
}

// releaseSlot frees the Redis availability slot outside the request context
func (u *bookingUsecase) releaseSlot(medicID uuid.UUID) {
	releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := u.ledger.Release(releaseCtx, medicID); err != nil {
		// Non-fatal: the ledger is re-synced from the DB on next startup
		u.log.Warnf("Failed to release ledger slot for medic %s (non-fatal): %+v", medicID, err)
	}
}

// mirrorSlot writes the DB-decided flag value into the ledger
func (u *bookingUsecase) mirrorSlot(medicID uuid.UUID, available bool) {
	mirrorCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := u.ledger.Set(mirrorCtx, medicID, available); err != nil {
		u.log.Warnf("Failed to mirror availability for medic %s into ledger (non-fatal): %+v", medicID, err)
	}
}

// publish emits a booking_update after commit. Best effort: subscribers that
// are not connected simply miss the event.
func (u *bookingUsecase) publish(bookingID uuid.UUID, message string) {
	pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := u.notifier.PublishBookingUpdate(pubCtx, bookingID, service.EventTypeBookingUpdate, message); err != nil {
		u.log.Warnf("Failed to publish booking update for %s (non-fatal): %+v", bookingID, err)
	}
}

// sendOTPToMedic delivers the confirmation code out of band. Failure is
// logged and never fails the transition that triggered it.
func (u *bookingUsecase) sendOTPToMedic(booking *entity.Booking) {
	if booking.OTP == nil {
		return
	}
	code := *booking.OTP
	medicID := booking.MedicID

	go func() {
		smsCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		medic, err := u.medicRepo.FindByID(u.conn.Session(smsCtx), medicID)
		if err != nil || medic == nil {
			u.log.Warnf("Failed to resolve medic %s for OTP delivery: %+v", medicID, err)
			return
		}
		if err := u.smsSender.Send(smsCtx, medic.PhoneNumber, fmt.Sprintf(otpSMSTemplate, code)); err != nil {
			u.log.Warnf("Failed to deliver OTP SMS for booking %s (non-fatal): %+v", booking.ID, err)
		}
	}()
}
