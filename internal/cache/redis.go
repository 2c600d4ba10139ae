package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"anjoman/internal/models"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	EventTTL time.Duration
}

// Client caches read-only event snapshots. Events are owned by the content
// subsystem and change rarely, so a short TTL is enough; nothing mutable
// (capacity counters, registrations) ever goes through here.
type Client struct {
	rdb      *redis.Client
	eventTTL time.Duration
}

func NewClient(cfg Config) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := cfg.EventTTL
	if ttl == 0 {
		ttl = time.Minute
	}

	return &Client{rdb: rdb, eventTTL: ttl}, nil
}

// NewClientWith wraps an existing redis client. Used by tests.
func NewClientWith(rdb *redis.Client, eventTTL time.Duration) *Client {
	return &Client{rdb: rdb, eventTTL: eventTTL}
}

func eventKey(id int64) string {
	return fmt.Sprintf("event:%d", id)
}

// GetEvent returns a cached event snapshot or redis.Nil-wrapped miss.
func (c *Client) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	data, err := c.rdb.Get(ctx, eventKey(id)).Bytes()
	if err != nil {
		return nil, err
	}

	var event models.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("corrupt cached event %d: %w", id, err)
	}
	return &event, nil
}

// SetEvent stores an event snapshot with the configured TTL.
func (c *Client) SetEvent(ctx context.Context, event *models.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return c.rdb.Set(ctx, eventKey(event.ID), data, c.eventTTL).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
