package ws

import (
	"context"
	"strings"
	"sync"

	"nursera-booking-server/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisBridge subscribes to every booking channel on Redis and replays the
// events into the in-process hub, so WebSocket clients attached to any API
// replica see publishes made by any other replica.
type RedisBridge struct {
	redisClient *redis.Client
	hub         *Hub
	log         *logrus.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRedisBridge(redisClient *redis.Client, hub *Hub, log *logrus.Logger) *RedisBridge {
	return &RedisBridge{
		redisClient: redisClient,
		hub:         hub,
		log:         log,
	}
}

// Start opens the pattern subscription and pumps events until Stop
func (b *RedisBridge) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel

	pubsub := b.redisClient.PSubscribe(ctx, service.BookingChannelPattern)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				bookingID := strings.TrimPrefix(msg.Channel, service.BookingChannelPrefix)
				b.hub.Broadcast(bookingID, []byte(msg.Payload))
			case <-ctx.Done():
				return
			}
		}
	}()

	b.log.Info("Real-time bridge subscribed to booking channels")
}

// Stop tears down the subscription and waits for the pump to exit
func (b *RedisBridge) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
}
