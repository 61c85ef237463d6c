package decisionlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cass-sched/cass/pkg/clock"
	"github.com/cass-sched/cass/pkg/decision"
	"github.com/cass-sched/cass/pkg/dispatch"
)

// DefaultRedisKey is the list records are pushed onto.
const DefaultRedisKey = "cass:decisions"

// listClient is the subset of *redis.Client the log needs.
type listClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	Close() error
}

// RedisConfig configures a RedisLog.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	Key        string
	MaxEntries int
	Clock      clock.Clock
}

// RedisLog stores records as JSON in a capped Redis list, newest at the head.
type RedisLog struct {
	client listClient
	key    string
	max    int
	clock  clock.Clock
}

// NewRedisLog connects to Redis and verifies the connection.
func NewRedisLog(ctx context.Context, cfg RedisConfig) (*RedisLog, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return newRedisLog(rdb, cfg), nil
}

func newRedisLog(client listClient, cfg RedisConfig) *RedisLog {
	key := cfg.Key
	if key == "" {
		key = DefaultRedisKey
	}
	max := cfg.MaxEntries
	if max <= 0 {
		max = DefaultMaxEntries
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &RedisLog{client: client, key: key, max: max, clock: clk}
}

// Append pushes the record and trims the list to MaxEntries.
func (l *RedisLog) Append(ctx context.Context, d *decision.Decision, r *dispatch.Result) error {
	data, err := json.Marshal(NewRecord(d, r, l.clock.Now()))
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := l.client.LPush(ctx, l.key, data).Err(); err != nil {
		return fmt.Errorf("failed to push record: %w", err)
	}
	if err := l.client.LTrim(ctx, l.key, 0, int64(l.max-1)).Err(); err != nil {
		return fmt.Errorf("failed to trim decision log: %w", err)
	}
	return nil
}

// Recent returns up to n records, newest first. Undecodable entries are
// skipped.
func (l *RedisLog) Recent(ctx context.Context, n int) ([]Record, error) {
	stop := int64(n - 1)
	if n <= 0 {
		stop = -1
	}
	data, err := l.client.LRange(ctx, l.key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read decision log: %w", err)
	}
	out := make([]Record, 0, len(data))
	for _, item := range data {
		var rec Record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Since returns records at or after t, newest first.
func (l *RedisLog) Since(ctx context.Context, t time.Time) ([]Record, error) {
	all, err := l.Recent(ctx, 0)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(all))
	for _, rec := range all {
		if !rec.Timestamp.Before(t) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Close closes the Redis client.
func (l *RedisLog) Close() error {
	return l.client.Close()
}
