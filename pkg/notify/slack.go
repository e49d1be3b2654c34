package notify

import (
	"context"
	"fmt"
	"time"

	goslack "github.com/slack-go/slack"

	"github.com/riskpipe/supplychain/internal/errkind"
	"github.com/riskpipe/supplychain/pkg/model"
)

// SlackNotifier posts an Alert as a Block Kit message to a single
// configured channel, grounded on the teacher's slack package's
// Client/PostMessage shape (webhook URL wrapping rather than the
// bot-token API, since the pipeline has no need for thread lookups).
type SlackNotifier struct {
	webhookURL string
	timeout    time.Duration
}

// NewSlackNotifier builds a notifier posting to webhookURL. Returns nil
// if webhookURL is empty, matching spec.md §6's "optional keys disable
// that channel."
func NewSlackNotifier(webhookURL string, timeout time.Duration) *SlackNotifier {
	if webhookURL == "" {
		return nil
	}
	return &SlackNotifier{webhookURL: webhookURL, timeout: timeout}
}

func (s *SlackNotifier) Name() string { return "slack" }

func (s *SlackNotifier) Notify(ctx context.Context, alert model.Alert) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	msg := &goslack.WebhookMessage{
		Blocks: &goslack.Blocks{BlockSet: buildAlertBlocks(alert)},
	}

	if err := goslack.PostWebhookContext(ctx, s.webhookURL, msg); err != nil {
		return errkind.Wrap(errkind.TransientExternal, fmt.Errorf("slack webhook post: %w", err))
	}
	return nil
}

func buildAlertBlocks(alert model.Alert) []goslack.Block {
	emoji := severityEmoji(alert.SeverityBand)
	header := fmt.Sprintf("%s *%s*\n%s", emoji, alert.Title, alert.Description)

	blocks := []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, header, false, false),
			nil, nil,
		),
	}

	fields := fmt.Sprintf(
		"*Risk score:* %.2f (%s)\n*Supplier:* %s\n*Material:* %s",
		alert.RiskScore, alert.SeverityBand, alert.AffectedSupplier, alert.AffectedMaterial,
	)
	blocks = append(blocks, goslack.NewSectionBlock(
		goslack.NewTextBlockObject(goslack.MarkdownType, fields, false, false),
		nil, nil,
	))

	if alert.RecommendationText != "" {
		blocks = append(blocks, goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, alert.RecommendationText, false, false),
			nil, nil,
		))
	}

	return blocks
}

func severityEmoji(band model.Severity) string {
	switch band {
	case model.SeverityCritical:
		return ":rotating_light:"
	case model.SeverityHigh:
		return ":warning:"
	case model.SeverityMedium:
		return ":large_orange_diamond:"
	default:
		return ":information_source:"
	}
}
