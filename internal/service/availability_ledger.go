package service

import (
	"context"
	"errors"
	"fmt"

	"nursera-booking-server/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrMedicLocked is returned when the medic's availability slot is already held
var ErrMedicLocked = errors.New("medic is not available for booking")

// acquireSlotScript atomically claims a medic's availability slot.
// The Redis Go client switches to EVALSHA after the first call, so under
// load only the script hash travels over the wire.
//
// Logic:
// 1. GET the slot key
// 2. If it is "1" (available) → SET to "0" and return 1 (acquired)
// 3. Otherwise return 0 (someone else holds the medic)
var acquireSlotScript = redis.NewScript(`
	local available = redis.call('GET', KEYS[1])
	if available == '1' then
		redis.call('SET', KEYS[1], '0')
		return 1
	end
	return 0
`)

const (
	// Redis key prefix for per-medic availability slots
	RedisAvailabilityKeyPrefix = "medic:available:"

	// Batch size for the startup sync pipeline
	ledgerSyncBatchSize = 500
)

// AvailabilityLedger is the fast mutual-exclusion gate in front of the
// medics.available column. Redis answers "can this medic be booked right
// now" atomically under concurrent initiations; Postgres stays the durable
// truth and is written in the same transaction as the booking itself.
// Callers that acquire a slot and then fail to commit must Release it.
type AvailabilityLedger struct {
	db          *gorm.DB
	redisClient *redis.Client
	log         *logrus.Logger
}

func NewAvailabilityLedger(db *gorm.DB, redisClient *redis.Client, log *logrus.Logger) *AvailabilityLedger {
	return &AvailabilityLedger{
		db:          db,
		redisClient: redisClient,
		log:         log,
	}
}

func availabilityKey(medicID uuid.UUID) string {
	return fmt.Sprintf("%s%s", RedisAvailabilityKeyPrefix, medicID)
}

// Acquire claims the medic's slot. Returns ErrMedicLocked when the slot is
// held or the medic is unknown to the ledger.
func (s *AvailabilityLedger) Acquire(ctx context.Context, medicID uuid.UUID) error {
	acquired, err := acquireSlotScript.Run(ctx, s.redisClient, []string{availabilityKey(medicID)}).Int()
	if err != nil {
		return fmt.Errorf("failed to acquire availability slot: %w", err)
	}
	if acquired != 1 {
		return ErrMedicLocked
	}
	return nil
}

// Release frees the medic's slot. Used on confirm/complete/cancel and as
// compensation when a DB write fails after a successful Acquire.
func (s *AvailabilityLedger) Release(ctx context.Context, medicID uuid.UUID) error {
	return s.redisClient.Set(ctx, availabilityKey(medicID), "1", 0).Err()
}

// Set mirrors an externally decided flag value into the ledger.
// Used by the manual availability toggle once the DB write has landed.
func (s *AvailabilityLedger) Set(ctx context.Context, medicID uuid.UUID, available bool) error {
	val := "0"
	if available {
		val = "1"
	}
	return s.redisClient.Set(ctx, availabilityKey(medicID), val, 0).Err()
}

// IsAvailable reads the slot without claiming it
func (s *AvailabilityLedger) IsAvailable(ctx context.Context, medicID uuid.UUID) (bool, error) {
	val, err := s.redisClient.Get(ctx, availabilityKey(medicID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return val == "1", nil
}

// SyncAll seeds Redis from the medics table at startup. The pipeline is
// created and executed per batch so a large directory cannot blow memory.
func (s *AvailabilityLedger) SyncAll(ctx context.Context) error {
	var medics []entity.Medic
	var synced int

	err := s.db.WithContext(ctx).Model(&entity.Medic{}).
		FindInBatches(&medics, ledgerSyncBatchSize, func(tx *gorm.DB, batch int) error {
			pipe := s.redisClient.Pipeline()
			for _, medic := range medics {
				val := "0"
				if medic.Available {
					val = "1"
				}
				pipe.Set(ctx, availabilityKey(medic.ID), val, 0)
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return fmt.Errorf("failed to sync availability batch %d: %w", batch, err)
			}
			synced += len(medics)
			return nil
		}).Error
	if err != nil {
		return err
	}

	s.log.Infof("Availability ledger synced: %d medics", synced)
	return nil
}
