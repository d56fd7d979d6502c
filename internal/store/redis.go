package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the Redis connection and naming settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string // snapshot key
	Channel  string // change notification channel
}

// Default Redis names.
const (
	DefaultRedisKey     = "vtransform:options"
	DefaultRedisChannel = "vtransform:options:changed"
)

// Redis stores the snapshot under one key and announces saves on a channel.
type Redis struct {
	client  *redis.Client
	key     string
	channel string
	origin  string
	logger  *slog.Logger
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*Redis, error) {
	if cfg.Key == "" {
		cfg.Key = DefaultRedisKey
	}
	if cfg.Channel == "" {
		cfg.Channel = DefaultRedisChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return &Redis{
		client:  client,
		key:     cfg.Key,
		channel: cfg.Channel,
		origin:  NewOrigin(),
		logger:  logger,
	}, nil
}

func (r *Redis) Origin() string { return r.origin }

func (r *Redis) Load(ctx context.Context) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", r.key, err)
	}
	return data, nil
}

func (r *Redis) Save(ctx context.Context, data []byte) error {
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	msg, err := encodeChange(Change{Origin: r.origin, At: time.Now()})
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, msg).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", r.channel, err)
	}
	return nil
}

// Watch subscribes to the change channel. The subscription is confirmed
// before Watch returns, so no save made afterwards is missed.
func (r *Redis) Watch(ctx context.Context) (<-chan Change, error) {
	sub := r.client.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", r.channel, err)
	}

	out := make(chan Change, 1)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				c, err := decodeChange(m.Payload)
				if err != nil {
					r.logger.Warn("ignoring malformed change notification", "channel", m.Channel, "error", err)
					continue
				}
				notify(out, c)
			}
		}
	}()
	return out, nil
}

func encodeChange(c Change) ([]byte, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal change: %w", err)
	}
	return b, nil
}

// decodeChange reads a published notification. Payloads that are not a JSON
// object are rejected; a missing origin decodes as a foreign change.
func decodeChange(payload string) (Change, error) {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return Change{}, fmt.Errorf("decode change: %w", err)
	}
	return c, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
