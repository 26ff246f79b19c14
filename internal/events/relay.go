package events

import (
	"context"
	"encoding/json"
	"fmt"

	"portfolio/internal/config"
	"portfolio/internal/logging"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// envelope is the Redis wire format; Origin lets an instance skip its own
// messages.
type envelope struct {
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

// RedisRelay mirrors a local Bus onto a Redis channel so that stream
// connections held by other server instances see the same events.
type RedisRelay struct {
	bus         *Bus
	client      *redis.Client
	channel     string
	instanceID  string
	unsubscribe func()
	pubsub      *redis.PubSub
}

// NewRedisRelay connects to Redis and verifies the connection.
func NewRedisRelay(bus *Bus, cfg config.RedisConfig) (*RedisRelay, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	channel := cfg.Channel
	if channel == "" {
		channel = "portfolio:guestbook"
	}

	return &RedisRelay{
		bus:        bus,
		client:     client,
		channel:    channel,
		instanceID: uuid.NewString(),
	}, nil
}

// Start begins forwarding in both directions until ctx is done or Close is
// called. The Redis subscription is confirmed before Start returns.
func (r *RedisRelay) Start(ctx context.Context) error {
	r.pubsub = r.client.Subscribe(ctx, r.channel)
	if _, err := r.pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}

	r.unsubscribe = r.bus.Subscribe(func(ev Event) {
		if ev.Origin != "" {
			return
		}
		r.publish(ev)
	})

	go r.consume(ctx, r.pubsub.Channel())
	return nil
}

func (r *RedisRelay) publish(ev Event) {
	data, err := json.Marshal(envelope{Origin: r.instanceID, Event: ev})
	if err != nil {
		logger := logging.L()
		logger.Error().Err(err).Str(logging.FieldEventType, ev.Type).Msg("failed to marshal relay event")
		return
	}
	// Publish happens on the emitting goroutine; keep it off the request path.
	go func() {
		if err := r.client.Publish(context.Background(), r.channel, data).Err(); err != nil {
			logger := logging.L()
			logger.Warn().Err(err).Str(logging.FieldEventType, ev.Type).Msg("failed to publish relay event")
		}
	}()
}

func (r *RedisRelay) consume(ctx context.Context, ch <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				continue
			}
			if env.Origin == r.instanceID || env.Origin == "" {
				continue
			}
			ev := env.Event
			ev.Origin = env.Origin
			r.bus.Emit(ev)
		}
	}
}

// Close stops forwarding and releases the Redis client.
func (r *RedisRelay) Close() error {
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
	if r.pubsub != nil {
		r.pubsub.Close()
	}
	return r.client.Close()
}
