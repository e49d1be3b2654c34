// Package worker implements the three competing-consumer stage loops
// (risk extraction, scoring, alert synthesis) that pull records off
// StreamBus, run one pipeline stage, and push the result to the next
// stream, per spec.md §4 and §5. Each stage is its own consumer group so
// multiple processes can run the same stage as true competing consumers.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/riskpipe/supplychain/internal/errkind"
	"github.com/riskpipe/supplychain/internal/metrics"
	"github.com/riskpipe/supplychain/pkg/streambus"
)

// readBatchSize and readBlockMs bound each XREADGROUP call.
const (
	readBatchSize = 10
	readBlockMs   = 5000
)

// Handler processes one stream record. Returning an error wrapped with
// errkind.TransientExternal, or one wrapping context.DeadlineExceeded,
// leaves the record unacked for redelivery; any other error (or nil)
// acks it — matching spec.md §7's retry policy
// (only transient failures are retried; malformed/invalid input is
// dropped and acked since retrying cannot fix it).
type Handler func(ctx context.Context, rec streambus.Record) error

// Run subscribes consumer to stream/group and processes records with
// handler until ctx is cancelled, ack'ing or leaving unacked per the
// Handler contract above. handlerTimeout bounds each individual handler
// invocation (spec.md §5's 25-minute handler budget); a timed-out
// handler's record is left unacked for redelivery, same as any other
// transient failure. handlerTimeout <= 0 disables the bound.
func Run(ctx context.Context, bus *streambus.Bus, stream, group, consumer, stage string, m *metrics.Metrics, logger zerolog.Logger, handlerTimeout time.Duration, handler Handler) error {
	if err := bus.Subscribe(ctx, stream, group); err != nil {
		return err
	}

	log := logger.With().Str("stage", stage).Str("stream", stream).Str("consumer", consumer).Logger()
	log.Info().Msg("worker stage starting")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("worker stage stopping")
			return nil
		default:
		}

		records, err := bus.Read(ctx, stream, group, consumer, readBatchSize, readBlockMs)
		if err != nil {
			log.Error().Err(err).Msg("read failed, backing off")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		for _, rec := range records {
			handleOne(ctx, bus, stream, group, stage, m, log, handlerTimeout, handler, rec)
		}
	}
}

func handleOne(ctx context.Context, bus *streambus.Bus, stream, group, stage string, m *metrics.Metrics, log zerolog.Logger, handlerTimeout time.Duration, handler Handler, rec streambus.Record) {
	handlerCtx := ctx
	if handlerTimeout > 0 {
		var cancel context.CancelFunc
		handlerCtx, cancel = context.WithTimeout(ctx, handlerTimeout)
		defer cancel()
	}

	err := handler(handlerCtx, rec)
	if err == nil {
		if ackErr := bus.Ack(ctx, stream, group, rec.ID); ackErr != nil {
			log.Error().Err(ackErr).Str("record_id", rec.ID).Msg("ack failed")
		}
		if m != nil {
			m.RecordProcessed(stage)
		}
		return
	}

	if errors.Is(err, errkind.TransientExternal) || errors.Is(err, context.DeadlineExceeded) {
		log.Warn().Err(err).Str("record_id", rec.ID).Msg("transient failure, leaving unacked for redelivery")
		if m != nil {
			m.RecordFailed(stage, "transient_external")
		}
		return
	}

	// Malformed/validation/not-found/invariant errors are not retryable:
	// ack so the record does not loop forever.
	log.Warn().Err(err).Str("record_id", rec.ID).Msg("non-retryable failure, dropping record")
	if ackErr := bus.Ack(ctx, stream, group, rec.ID); ackErr != nil {
		log.Error().Err(ackErr).Str("record_id", rec.ID).Msg("ack failed")
	}
	if m != nil {
		m.RecordFailed(stage, errKindLabel(err))
	}
}

func errKindLabel(err error) string {
	switch {
	case errors.Is(err, errkind.MalformedExternal):
		return "malformed_external"
	case errors.Is(err, errkind.ValidationError):
		return "validation_error"
	case errors.Is(err, errkind.NotFound):
		return "not_found"
	case errors.Is(err, errkind.InvariantViolation):
		return "invariant_violation"
	default:
		return "unknown"
	}
}
