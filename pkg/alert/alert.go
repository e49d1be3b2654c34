// Package alert synthesizes actionable Alerts from qualifying RiskEvents:
// gating on score and affected-node presence, resolving the primary
// supplier, ranking alternates, and composing title/description/
// recommendation text, per spec.md §4.8 and the original alert_generator.py
// and recommendation_text.py.
package alert

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/riskpipe/supplychain/pkg/catalog"
	"github.com/riskpipe/supplychain/pkg/llm"
	"github.com/riskpipe/supplychain/pkg/model"
	"github.com/riskpipe/supplychain/pkg/ranker"
)

// maxAlternates bounds the ranked alternate-supplier list attached to an
// alert.
const maxAlternates = 5

// maxPromptAlternates is the number of alternates described in the
// recommendation-text prompt, mirroring the original's alternates[:3].
const maxPromptAlternates = 3

// maxDescriptionEntities bounds how many affected entities are named in
// the alert description.
const maxDescriptionEntities = 5

// ShouldCreateAlert reports whether a RiskEvent clears both gates of
// spec.md §4.8: risk_score at or above the alert threshold, and a
// non-empty affected-supply-chain-nodes list.
func ShouldCreateAlert(event model.RiskEvent, threshold float64) bool {
	if event.RiskScore < threshold {
		return false
	}
	return len(event.AffectedSupplyChainNodes) > 0
}

// Synth builds Alerts from qualifying RiskEvents.
type Synth struct {
	llmClient llm.Client
	logger    zerolog.Logger
	threshold float64
}

// New builds a Synth. llmClient may be nil, in which case recommendation
// text always falls back to the deterministic template.
func New(llmClient llm.Client, threshold float64, logger zerolog.Logger) *Synth {
	return &Synth{
		llmClient: llmClient,
		logger:    logger.With().Str("component", "alert_synth").Logger(),
		threshold: threshold,
	}
}

// Build composes an Alert from a RiskEvent and the current catalog
// snapshot. It returns (nil, nil) when the event does not qualify for an
// alert — that is not an error, just a no-op outcome the caller should ack.
func (s *Synth) Build(ctx context.Context, event model.RiskEvent, snap *catalog.Snapshot) (*model.Alert, error) {
	if !ShouldCreateAlert(event, s.threshold) {
		return nil, nil
	}

	primaryName := "Unknown"
	if len(event.AffectedSupplyChainNodes) > 0 {
		primaryName = event.AffectedSupplyChainNodes[0]
	}

	title := alertTitle(event, primaryName)
	description := alertDescription(event)

	supplier, found := snap.SupplierByName(primaryName)
	affectedMaterial := "unknown"

	var alternates []model.AlternateRec
	var recommendationText string

	if found {
		if len(supplier.Supplies) > 0 {
			affectedMaterial = supplier.Supplies[0]
		}

		candidates := ranker.Candidates(snap.Suppliers, supplier, affectedMaterial)
		requiredVolume := supplier.SupplyVolumePct
		alternates = ranker.Rank(candidates, supplier, requiredVolume, maxAlternates)

		recommendationText = s.recommendationText(ctx, event, title, primaryName, affectedMaterial, alternates, snap.Company)
	} else {
		s.logger.Warn().Str("supplier_name", primaryName).Msg("supplier not found in catalog, alert has no alternates")
	}

	return &model.Alert{
		RiskEventID:        event.ID,
		SeverityBand:       event.SeverityBand,
		RiskScore:          event.RiskScore,
		Title:              title,
		Description:        description,
		AffectedSupplier:   primaryName,
		AffectedMaterial:   affectedMaterial,
		Recommendations:    alternates,
		RecommendationText: recommendationText,
	}, nil
}

// alertTitle mirrors generate_alert_title: "<Risk Type Title Case> Risk:
// <primary affected node>".
func alertTitle(event model.RiskEvent, primaryName string) string {
	return fmt.Sprintf("%s Risk: %s", titleCaseRiskType(event.RiskType), primaryName)
}

func titleCaseRiskType(rt model.RiskType) string {
	words := strings.Split(string(rt), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// alertDescription mirrors generate_alert_description: the LLM's
// reasoning, plus up to 5 affected entities appended.
func alertDescription(event model.RiskEvent) string {
	reasoning := event.Reasoning
	if strings.TrimSpace(reasoning) == "" {
		reasoning = "Supply chain disruption detected"
	}

	description := reasoning
	if len(event.AffectedEntities) > 0 {
		entities := event.AffectedEntities
		if len(entities) > maxDescriptionEntities {
			entities = entities[:maxDescriptionEntities]
		}
		description += fmt.Sprintf(" Affected entities: %s.", strings.Join(entities, ", "))
	}
	return description
}

// recommendationText asks the LLM for 3-4 sentences of advisory text,
// falling back to the deterministic template on any failure or when no
// LLM client is configured, matching generate_recommendation_text.
func (s *Synth) recommendationText(ctx context.Context, event model.RiskEvent, title, supplierName, material string, alternates []model.AlternateRec, company model.CompanyProfile) string {
	if s.llmClient == nil || len(alternates) == 0 {
		return fallbackRecommendation(event, alternates)
	}

	prompt := buildRecommendationPrompt(company.Name, title, event, supplierName, material, alternates)
	text, err := s.llmClient.GenerateJSON(ctx, prompt, llm.TierFlash)
	if err != nil {
		s.logger.Warn().Err(err).Msg("recommendation text generation failed, using fallback template")
		return fallbackRecommendation(event, alternates)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return fallbackRecommendation(event, alternates)
	}
	return text
}

func buildRecommendationPrompt(companyName, title string, event model.RiskEvent, supplierName, material string, alternates []model.AlternateRec) string {
	top := alternates
	if len(top) > maxPromptAlternates {
		top = top[:maxPromptAlternates]
	}

	var b strings.Builder
	for i, alt := range top {
		fmt.Fprintf(&b, "  %d. %s - Score: %.1f/10\n", i+1, alt.SupplierName, alt.Score)
	}

	return fmt.Sprintf(`You are a supply chain advisor for %s.

ALERT DETAILS:
- Title: %s
- Risk Score: %.2f (%s)
- Affected Supplier: %s
- Affected Material: %s

TOP ALTERNATE SUPPLIERS:
%s

Write a concise (3-4 sentences) recommendation for the supply chain manager.
Include:
1. Urgency level and immediate action needed
2. Top recommended supplier and why
3. Risk mitigation strategy

Use professional but direct language. No bullet points, write flowing sentences.`,
		companyName, title, event.RiskScore, strings.ToUpper(string(event.SeverityBand)), supplierName, material, b.String())
}

// fallbackRecommendation is the deterministic template used when the LLM
// is unavailable or unconfigured, mirroring the original's except-branch.
func fallbackRecommendation(event model.RiskEvent, alternates []model.AlternateRec) string {
	if len(alternates) == 0 {
		return fmt.Sprintf(
			"This %s priority risk requires immediate attention. No pre-qualified alternates are available. "+
				"Recommend emergency supplier sourcing and increasing inventory buffer.",
			event.SeverityBand,
		)
	}
	top := alternates[0]
	return fmt.Sprintf(
		"This %s priority risk requires immediate attention. We recommend engaging %s as an alternate supplier, "+
			"with a score of %.1f/10. Begin qualification process immediately to mitigate supply disruption risk.",
		event.SeverityBand, top.SupplierName, top.Score,
	)
}
