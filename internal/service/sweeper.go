package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const sweepBatchSize = 100

// ExpiredBookingCanceller is implemented by the booking state machine.
// Cancelling through it keeps the availability invariant: the sweep must
// never bulk-update statuses behind the ledger's back.
type ExpiredBookingCanceller interface {
	FindExpiredBookingIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	CancelBooking(ctx context.Context, bookingID uuid.UUID) error
}

// BookingSweeper cancels bookings past their timeout_at on a fixed interval
type BookingSweeper struct {
	canceller ExpiredBookingCanceller
	interval  time.Duration
	log       *logrus.Logger

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewBookingSweeper(canceller ExpiredBookingCanceller, interval time.Duration, log *logrus.Logger) *BookingSweeper {
	return &BookingSweeper{
		canceller: canceller,
		interval:  interval,
		log:       log,
		stopChan:  make(chan struct{}),
	}
}

// Start launches the sweep loop in a background goroutine
func (s *BookingSweeper) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.Sweep(context.Background())
			case <-s.stopChan:
				return
			}
		}
	}()
	s.log.Infof("Booking sweeper started (interval %s)", s.interval)
}

// Stop signals the loop to exit and waits for the in-flight sweep
func (s *BookingSweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
}

// Sweep cancels every expired booking it can find in one pass
func (s *BookingSweeper) Sweep(ctx context.Context) {
	ids, err := s.canceller.FindExpiredBookingIDs(ctx, time.Now().UTC(), sweepBatchSize)
	if err != nil {
		s.log.Warnf("Sweep failed to list expired bookings: %+v", err)
		return
	}

	for _, id := range ids {
		if err := s.canceller.CancelBooking(ctx, id); err != nil {
			s.log.Warnf("Sweep failed to cancel expired booking %s: %+v", id, err)
			continue
		}
		s.log.Infof("Cancelled expired booking %s", id)
	}
}
