package usecase

import (
	"context"
	"errors"

	"nursera-booking-server/internal/delivery/dto"
	"nursera-booking-server/internal/domain/repository"
	"nursera-booking-server/internal/service"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrMedicEngaged is returned when a manual availability toggle targets a
// medic currently held by a live booking
var ErrMedicEngaged = errors.New("medic has an active booking")

type MedicUsecase interface {
	SetAvailability(ctx context.Context, req *dto.UpdateAvailabilityRequest) error
}

// medicUsecase covers the manual availability toggle medics use outside any
// engagement. While a non-terminal booking holds the medic, the flag belongs
// to the booking state machine and the toggle is rejected.
type medicUsecase struct {
	conn        dbConn
	log         *logrus.Logger
	medicRepo   repository.MedicRepository
	bookingRepo repository.BookingRepository
	ledger      *service.AvailabilityLedger
}

func NewMedicUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	medicRepo repository.MedicRepository,
	bookingRepo repository.BookingRepository,
	ledger *service.AvailabilityLedger,
) MedicUsecase {
	return &medicUsecase{
		conn:        gormConn{db: db},
		log:         log,
		medicRepo:   medicRepo,
		bookingRepo: bookingRepo,
		ledger:      ledger,
	}
}

func (u *medicUsecase) SetAvailability(ctx context.Context, req *dto.UpdateAvailabilityRequest) error {
	medic, err := u.medicRepo.FindByIDAndEmail(u.conn.Session(ctx), req.MedicID, req.Email)
	if err != nil {
		u.log.Warnf("Failed to find medic %s: %+v", req.MedicID, err)
		return err
	}
	if medic == nil {
		return ErrMedicNotFound
	}

	err = u.conn.Transaction(ctx, func(tx *gorm.DB) error {
		// Row lock first so a racing initiation can't slip a booking in
		// between the active count and the flag write
		if _, err := u.medicRepo.FindByIDForUpdate(tx, req.MedicID); err != nil {
			return err
		}

		active, err := u.bookingRepo.CountActiveByMedicID(tx, req.MedicID)
		if err != nil {
			return err
		}
		if active > 0 {
			return ErrMedicEngaged
		}

		return u.medicRepo.UpdateAvailability(tx, req.MedicID, *req.Available)
	})
	if err != nil {
		return err
	}

	// Mirror the new flag into the ledger
	if err := u.ledger.Set(ctx, req.MedicID, *req.Available); err != nil {
		u.log.Warnf("Failed to mirror availability for medic %s into ledger (non-fatal): %+v", req.MedicID, err)
	}

	u.log.Infof("Medic availability updated: medic=%s, available=%t", req.MedicID, *req.Available)
	return nil
}
