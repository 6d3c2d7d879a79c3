package tracestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Jalkey-Chen/InterLines/internal/blackboard"
)

// DefaultKeyPrefix namespaces every trace list.
const DefaultKeyPrefix = "interlines"

const recordTimeout = 5 * time.Second

// TraceKey returns the Redis list holding a run's snapshots.
// Pattern: {prefix}:{run_id}:traces
func TraceKey(prefix, runID string) string {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return fmt.Sprintf("%s:%s:traces", prefix, runID)
}

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Prefix string
	// TTL expires a run's list after its last write; zero keeps it forever.
	TTL time.Duration
}

// RedisStore writes and reads trace lists. It is safe for concurrent use.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects a store with redisOpts.
func NewRedisStore(redisOpts *redis.Options, opts RedisOptions) (*RedisStore, error) {
	if redisOpts == nil || redisOpts.Addr == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{rdb: redis.NewClient(redisOpts), prefix: prefix, ttl: opts.TTL}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Ping verifies Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Sink returns a blackboard.Sink appending to runID's list.
func (s *RedisStore) Sink(runID string) blackboard.Sink {
	return blackboard.SinkFunc(func(snapshot blackboard.TraceSnapshot) error {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		return s.Append(ctx, runID, snapshot)
	})
}

// Append pushes snapshot onto runID's list and refreshes its TTL.
func (s *RedisStore) Append(ctx context.Context, runID string, snapshot blackboard.TraceSnapshot) error {
	if runID == "" {
		return errors.New("run id cannot be empty")
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot %d: %w", snapshot.Seq, err)
	}

	key := TraceKey(s.prefix, runID)
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, key, payload)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push snapshot to Redis: %w", err)
	}
	return nil
}

// Load returns runID's snapshots in capture order. A missing run yields redis.Nil.
func (s *RedisStore) Load(ctx context.Context, runID string) ([]blackboard.TraceSnapshot, error) {
	raw, err := s.rdb.LRange(ctx, TraceKey(s.prefix, runID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read traces from Redis: %w", err)
	}
	if len(raw) == 0 {
		return nil, redis.Nil
	}

	snapshots := make([]blackboard.TraceSnapshot, 0, len(raw))
	for i, item := range raw {
		var snapshot blackboard.TraceSnapshot
		if err := json.Unmarshal([]byte(item), &snapshot); err != nil {
			return nil, fmt.Errorf("decode snapshot %d: %w", i, err)
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

// Runs lists run ids that have a trace list, sorted.
func (s *RedisStore) Runs(ctx context.Context) ([]string, error) {
	pattern := TraceKey(s.prefix, "*")
	head, tail := s.prefix+":", ":traces"

	var runs []string
	iter := s.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		runs = append(runs, strings.TrimSuffix(strings.TrimPrefix(key, head), tail))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan trace keys: %w", err)
	}
	sort.Strings(runs)
	return runs, nil
}

// IsNotFound reports whether err means the run has no traces.
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
