package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	// Redis channel prefix for per-booking event streams
	BookingChannelPrefix = "booking:"

	// BookingChannelPattern matches every booking channel for the bridge subscriber
	BookingChannelPattern = BookingChannelPrefix + "*"

	// EventTypeBookingUpdate is the only event type the state machine emits today
	EventTypeBookingUpdate = "booking_update"
)

// BookingEvent is the wire shape pushed to real-time subscribers
type BookingEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Notifier is the abstract publish side of the real-time channel. The state
// machine calls it after commit; delivery is at-most-once with no replay.
type Notifier interface {
	PublishBookingUpdate(ctx context.Context, bookingID uuid.UUID, eventType, message string) error
}

// RedisNotifier publishes booking events over Redis pub/sub, one channel per
// booking id, so every API replica's WebSocket clients see every event.
type RedisNotifier struct {
	redisClient *redis.Client
	log         *logrus.Logger
}

func NewRedisNotifier(redisClient *redis.Client, log *logrus.Logger) *RedisNotifier {
	return &RedisNotifier{
		redisClient: redisClient,
		log:         log,
	}
}

// BookingChannel builds the pub/sub channel name for a booking
func BookingChannel(bookingID uuid.UUID) string {
	return fmt.Sprintf("%s%s", BookingChannelPrefix, bookingID)
}

func (n *RedisNotifier) PublishBookingUpdate(ctx context.Context, bookingID uuid.UUID, eventType, message string) error {
	payload, err := json.Marshal(BookingEvent{Type: eventType, Message: message})
	if err != nil {
		return err
	}

	if err := n.redisClient.Publish(ctx, BookingChannel(bookingID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish booking event: %w", err)
	}

	n.log.Debugf("Published %s for booking %s: %s", eventType, bookingID, message)
	return nil
}
