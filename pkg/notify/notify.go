// Package notify delivers an Alert to best-effort external channels
// (Slack, email). Delivery failures are logged, never propagated: alert
// persistence is the source of truth, notification is a convenience that
// must never block or fail the alert pipeline, per spec.md §6
// (optional keys disable their channel).
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/riskpipe/supplychain/pkg/model"
)

// Notifier delivers an Alert to one external channel.
type Notifier interface {
	Notify(ctx context.Context, alert model.Alert) error
	Name() string
}

// Dispatcher fans an Alert out to every configured Notifier, logging
// (not returning) individual channel failures.
type Dispatcher struct {
	channels []Notifier
	logger   zerolog.Logger
}

// NewDispatcher builds a Dispatcher from the configured channels. Pass
// only non-nil Notifiers whose credentials were actually provided.
func NewDispatcher(logger zerolog.Logger, channels ...Notifier) *Dispatcher {
	return &Dispatcher{channels: channels, logger: logger.With().Str("component", "notify_dispatcher").Logger()}
}

// DispatchResult counts the channels a dispatch attempted and how many
// of them failed.
type DispatchResult struct {
	Attempted int
	Failed    int
}

// Dispatch sends alert to every configured channel, continuing past
// individual failures.
func (d *Dispatcher) Dispatch(ctx context.Context, alert model.Alert) DispatchResult {
	result := DispatchResult{}
	for _, ch := range d.channels {
		result.Attempted++
		if err := ch.Notify(ctx, alert); err != nil {
			result.Failed++
			d.logger.Warn().Err(err).Str("channel", ch.Name()).Str("alert_id", alert.ID).Msg("notification delivery failed")
		}
	}
	return result
}
