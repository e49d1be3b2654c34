// Package streambus provides append-only ordered streams with
// consumer-group semantics on top of Redis Streams: at-least-once
// delivery, per-group acknowledgement, and redelivery of records a
// consumer failed to ack within its idle timeout.
package streambus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/riskpipe/supplychain/internal/config"
	"github.com/riskpipe/supplychain/internal/errkind"
)

// Stream and consumer-group names fixed by the specification.
const (
	RawEvents        = "raw_events"
	NormalizedEvents = "normalized_events"
	RiskEntities     = "risk_entities"
	RiskScores       = "risk_scores"
	NewAlerts        = "new_alerts"

	RiskExtractionGroup = "risk_extraction_group"
	RiskScoringGroup    = "risk_scoring_group"
	AlertGenerationGroup = "alert_generation_group"
)

// Record is one entry read from a stream: its bus-assigned ID and a flat
// key→string payload (complex values are JSON-encoded by the producer).
type Record struct {
	ID     string
	Fields map[string]string
}

// String extracts a field, defaulting to "" if absent.
func (r Record) String(key string) string { return r.Fields[key] }

// JSON unmarshals a JSON-encoded field into dst.
func (r Record) JSON(key string, dst interface{}) error {
	v, ok := r.Fields[key]
	if !ok {
		return fmt.Errorf("field %q missing", key)
	}
	return json.Unmarshal([]byte(v), dst)
}

// Bus wraps a Redis client with the stream operations the pipeline needs.
type Bus struct {
	client      *redis.Client
	logger      zerolog.Logger
	idleTimeout time.Duration
}

// New connects to Redis using the configured URL.
func New(cfg *config.Config, logger zerolog.Logger) (*Bus, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, errkind.Wrap(errkind.ConfigError, fmt.Errorf("invalid REDIS_URL: %w", err))
	}
	client := redis.NewClient(opt)
	return &Bus{
		client:      client,
		logger:      logger.With().Str("component", "streambus").Logger(),
		idleTimeout: cfg.ConsumerIdleTimeout,
	}, nil
}

// NewWithClient wraps an already-constructed client — used by tests against
// miniredis.
func NewWithClient(client *redis.Client, idleTimeout time.Duration, logger zerolog.Logger) *Bus {
	return &Bus{client: client, logger: logger.With().Str("component", "streambus").Logger(), idleTimeout: idleTimeout}
}

// Ping verifies connectivity.
func (b *Bus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Append serializes fields (JSON-encoding any map/slice values) and pushes
// them onto stream, returning the assigned record ID.
func (b *Bus) Append(ctx context.Context, stream string, fields map[string]interface{}) (string, error) {
	serialized := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		switch v.(type) {
		case string, int, int64, float64, bool:
			serialized[k] = v
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				return "", fmt.Errorf("encode field %q: %w", k, err)
			}
			serialized[k] = string(encoded)
		}
	}

	id, err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: serialized,
	}).Result()
	if err != nil {
		return "", errkind.Wrap(errkind.TransientExternal, fmt.Errorf("append to %s: %w", stream, err))
	}
	return id, nil
}

// Subscribe ensures a consumer group exists on stream, creating both the
// stream and the group on first use.
func (b *Bus) Subscribe(ctx context.Context, stream, group string) error {
	err := b.client.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return errkind.Wrap(errkind.TransientExternal, fmt.Errorf("create group %s/%s: %w", stream, group, err))
	}
	return nil
}

// Read first claims, for consumer, up to max records that have been idle
// longer than the bus's idle timeout and returns them if there are any,
// implementing at-least-once redelivery. Otherwise it returns up to max
// new records (not yet delivered to this group), blocking up to blockMs
// for new data.
func (b *Bus) Read(ctx context.Context, stream, group, consumer string, max int64, blockMs int) ([]Record, error) {
	if records, err := b.claimStale(ctx, stream, group, consumer, max); err != nil {
		return nil, err
	} else if len(records) > 0 {
		return records, nil
	}

	res, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    max,
		Block:    time.Duration(blockMs) * time.Millisecond,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || err.Error() == "redis: nil" {
			return nil, nil
		}
		return nil, errkind.Wrap(errkind.TransientExternal, fmt.Errorf("read %s/%s: %w", stream, group, err))
	}

	var out []Record
	for _, s := range res {
		for _, msg := range s.Messages {
			out = append(out, toRecord(msg))
		}
	}
	return out, nil
}

// claimStale uses XAUTOCLAIM to pick up records that another consumer in
// the group read but never acked within the idle timeout.
func (b *Bus) claimStale(ctx context.Context, stream, group, consumer string, max int64) ([]Record, error) {
	msgs, _, err := b.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   stream,
		Group:    group,
		Consumer: consumer,
		MinIdle:  b.idleTimeout,
		Start:    "0",
		Count:    max,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errkind.Wrap(errkind.TransientExternal, fmt.Errorf("autoclaim %s/%s: %w", stream, group, err))
	}
	out := make([]Record, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, toRecord(msg))
	}
	return out, nil
}

func toRecord(msg redis.XMessage) Record {
	fields := make(map[string]string, len(msg.Values))
	for k, v := range msg.Values {
		fields[k] = fmt.Sprintf("%v", v)
	}
	return Record{ID: msg.ID, Fields: fields}
}

// Ack acknowledges a record, removing it from the group's pending list. A
// handler must only call this after successfully processing the record —
// failing to ack lets the bus redeliver it.
func (b *Bus) Ack(ctx context.Context, stream, group, id string) error {
	if err := b.client.XAck(ctx, stream, group, id).Err(); err != nil {
		return errkind.Wrap(errkind.TransientExternal, fmt.Errorf("ack %s/%s/%s: %w", stream, group, id, err))
	}
	return nil
}

// Trim caps stream to approximately maxLen entries, discarding the oldest.
func (b *Bus) Trim(ctx context.Context, stream string, maxLen int64) error {
	if err := b.client.XTrimMaxLenApprox(ctx, stream, maxLen, 0).Err(); err != nil {
		return errkind.Wrap(errkind.TransientExternal, fmt.Errorf("trim %s: %w", stream, err))
	}
	return nil
}

// Close releases the underlying Redis connection.
func (b *Bus) Close() error { return b.client.Close() }
