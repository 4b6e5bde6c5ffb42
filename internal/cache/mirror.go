// Package cache mirrors the live fleet into redis so other processes can
// read it and a restarted server can pick it up again.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/technopolitica/fleet-live/internal/domain"
	"github.com/technopolitica/fleet-live/internal/events"
	"github.com/technopolitica/fleet-live/internal/log"
)

// RedisClient is the subset of redis operations the mirror uses.
type RedisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Close() error
}

// Mirror keeps one hash field per live vehicle, holding its JSON record.
type Mirror struct {
	client RedisClient
	key    string
	ttl    time.Duration
	logger log.Logger
}

// New connects to redis and checks the connection.
func New(ctx context.Context, opts *Options) (*Mirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewWithClient(client, opts), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client RedisClient, opts *Options) *Mirror {
	return &Mirror{
		client: client,
		key:    opts.Key,
		ttl:    opts.TTL,
		logger: log.WithName("cache"),
	}
}

func (m *Mirror) Close() error {
	return m.client.Close()
}

func (m *Mirror) Name() string { return "redis" }

// Handle applies one fleet event to the mirror.
func (m *Mirror) Handle(ctx context.Context, event events.Event) error {
	switch event.Kind {
	case events.KindUpdate:
		if event.Record == nil {
			return fmt.Errorf("update event for %s has no record", event.VehicleID)
		}
		return m.Store(ctx, *event.Record)
	case events.KindOffline:
		return m.Delete(ctx, event.VehicleID)
	default:
		return fmt.Errorf("unknown event kind %q", event.Kind)
	}
}

func (m *Mirror) Store(ctx context.Context, record domain.VehicleTelemetry) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal vehicle record: %w", err)
	}
	if err := m.client.HSet(ctx, m.key, record.VehicleID, data).Err(); err != nil {
		return fmt.Errorf("failed to store vehicle %s: %w", record.VehicleID, err)
	}
	if m.ttl > 0 {
		if err := m.client.Expire(ctx, m.key, m.ttl).Err(); err != nil {
			return fmt.Errorf("failed to refresh mirror expiry: %w", err)
		}
	}
	return nil
}

func (m *Mirror) Delete(ctx context.Context, vehicleID string) error {
	if err := m.client.HDel(ctx, m.key, vehicleID).Err(); err != nil {
		return fmt.Errorf("failed to delete vehicle %s: %w", vehicleID, err)
	}
	return nil
}

// Load returns every mirrored record ordered by vehicle id. Records that no
// longer decode are skipped.
func (m *Mirror) Load(ctx context.Context) ([]domain.VehicleTelemetry, error) {
	entries, err := m.client.HGetAll(ctx, m.key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load mirrored fleet: %w", err)
	}

	records := make([]domain.VehicleTelemetry, 0, len(entries))
	for vehicleID, data := range entries {
		var record domain.VehicleTelemetry
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			m.logger.Warn("skipping undecodable mirrored record", "vehicleId", vehicleID, "error", err)
			continue
		}
		record.VehicleID = vehicleID
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].VehicleID < records[j].VehicleID
	})
	return records, nil
}
