package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/riskpipe/supplychain/internal/errkind"
	"github.com/riskpipe/supplychain/pkg/model"
)

// EmailNotifier emails the company's configured alert contacts via
// SendGrid when an Alert fires.
type EmailNotifier struct {
	client  *sendgrid.Client
	from    string
	to      []string
	timeout time.Duration
}

// NewEmailNotifier builds a notifier. Returns nil if apiKey is empty or
// no recipients are configured.
func NewEmailNotifier(apiKey, from string, to []string, timeout time.Duration) *EmailNotifier {
	if apiKey == "" || len(to) == 0 {
		return nil
	}
	return &EmailNotifier{client: sendgrid.NewSendClient(apiKey), from: from, to: to, timeout: timeout}
}

func (e *EmailNotifier) Name() string { return "email" }

func (e *EmailNotifier) Notify(ctx context.Context, alert model.Alert) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	subject := fmt.Sprintf("[%s] %s", alert.SeverityBand, alert.Title)
	body := emailBody(alert)

	fromAddr := mail.NewEmail("Supply Chain Risk Pipeline", e.from)
	message := mail.NewV3Mail()
	message.SetFrom(fromAddr)
	message.Subject = subject

	personalization := mail.NewPersonalization()
	for _, addr := range e.to {
		personalization.AddTos(mail.NewEmail("", addr))
	}
	message.AddPersonalizations(personalization)
	message.AddContent(mail.NewContent("text/plain", body))

	resp, err := e.client.SendWithContext(ctx, message)
	if err != nil {
		return errkind.Wrap(errkind.TransientExternal, fmt.Errorf("sendgrid send: %w", err))
	}
	if resp.StatusCode >= 300 {
		return errkind.Wrap(errkind.TransientExternal, fmt.Errorf("sendgrid returned status %d", resp.StatusCode))
	}
	return nil
}

func emailBody(alert model.Alert) string {
	text := alert.Description + "\n\n"
	text += fmt.Sprintf("Risk score: %.2f (%s)\n", alert.RiskScore, alert.SeverityBand)
	text += fmt.Sprintf("Affected supplier: %s\n", alert.AffectedSupplier)
	text += fmt.Sprintf("Affected material: %s\n\n", alert.AffectedMaterial)
	if alert.RecommendationText != "" {
		text += alert.RecommendationText + "\n\n"
	}
	for _, rec := range alert.Recommendations {
		text += fmt.Sprintf("- %s (score %.2f)\n", rec.SupplierName, rec.Score)
	}
	return text
}
