package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"hermes/internal/scenario"
	"hermes/pkg/errors"
)

// Trace records are kept for a week; replays of old runs are a debugging
// aid, not an archive.
const traceTTL = 7 * 24 * time.Hour

// TraceStore implements scenario.Store on a Redis list per run.
type TraceStore struct {
	client *redis.Client
}

// NewTraceStore creates a Redis-backed trace store.
func NewTraceStore(client *redis.Client) *TraceStore {
	return &TraceStore{client: client}
}

// Append pushes the record onto the run's list and refreshes its TTL.
func (s *TraceStore) Append(ctx context.Context, run string, rec scenario.Record) error {
	key := s.key(run)

	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrapf(err, "marshal trace record seq=%d", rec.Seq)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, traceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "append trace record to redis: run=%s seq=%d", run, rec.Seq)
	}

	return nil
}

// Load returns every record persisted for a run, in sequence order. A run
// with no records yields an empty slice.
func (s *TraceStore) Load(ctx context.Context, run string) ([]scenario.Record, error) {
	key := s.key(run)

	raw, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "load trace from redis: run=%s", run)
	}

	records := make([]scenario.Record, 0, len(raw))
	for i, item := range raw {
		var rec scenario.Record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, errors.Wrapf(err, "unmarshal trace record %d: run=%s", i, run)
		}
		records = append(records, rec)
	}

	return records, nil
}

// Delete drops a run's trace.
func (s *TraceStore) Delete(ctx context.Context, run string) error {
	if err := s.client.Del(ctx, s.key(run)).Err(); err != nil {
		return errors.Wrapf(err, "delete trace from redis: run=%s", run)
	}
	return nil
}

func (s *TraceStore) key(run string) string {
	return fmt.Sprintf("hermes:trace:%s", run)
}
