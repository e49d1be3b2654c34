package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/riskpipe/supplychain/internal/errkind"
	"github.com/riskpipe/supplychain/pkg/model"
)

// Extractor builds the risk-extraction prompt and validates the LLM's
// response into a model.RiskExtraction, enforcing the post-parse rules
// from spec.md §4.5.
type Extractor struct {
	client Client
	logger zerolog.Logger
}

// NewExtractor wraps an LLM Client.
func NewExtractor(client Client, logger zerolog.Logger) *Extractor {
	return &Extractor{client: client, logger: logger.With().Str("component", "risk_extractor").Logger()}
}

// rawExtraction is the duck-typed shape the LLM returns; unknown/invalid
// enum values are coerced in Extract rather than failing the parse:
// risk_type to "other", is_confirmed to "uncertain", severity to "low"
// and time_horizon to "weeks".
type rawExtraction struct {
	IsRisk                   bool     `json:"is_risk"`
	RiskType                 string   `json:"risk_type"`
	AffectedEntities         []string `json:"affected_entities"`
	AffectedSupplyChainNodes []string `json:"affected_supply_chain_nodes"`
	Severity                 string   `json:"severity"`
	IsConfirmed              string   `json:"is_confirmed"`
	TimeHorizon              string   `json:"time_horizon"`
	Reasoning                string   `json:"reasoning"`
	RecommendedAction        string   `json:"recommended_action"`
}

// Extract builds the prompt, calls the LLM, and returns a validated
// RiskExtraction. useProTier selects the Pro-tier model for low-confidence
// or high-stakes articles (caller's judgment, e.g. relevance score near
// the admission threshold).
func (e *Extractor) Extract(ctx context.Context, article model.Article, company model.CompanyProfile, suppliers []model.Supplier, useProTier bool) (*model.RiskExtraction, error) {
	prompt := e.buildPrompt(article, company, suppliers)

	tier := TierFlash
	if useProTier {
		tier = TierPro
	}

	text, err := e.client.GenerateJSON(ctx, prompt, tier)
	if err != nil {
		return nil, errkind.Wrap(errkind.TransientExternal, fmt.Errorf("llm generate: %w", err))
	}

	var raw rawExtraction
	if err := json.Unmarshal([]byte(extractJSONObject(text)), &raw); err != nil {
		return nil, errkind.Wrap(errkind.MalformedExternal, fmt.Errorf("parse llm json: %w", err))
	}

	extraction := &model.RiskExtraction{
		IsRisk:                   raw.IsRisk,
		RiskType:                 coerceRiskType(raw.RiskType),
		AffectedEntities:         raw.AffectedEntities,
		AffectedSupplyChainNodes: matchKnownSuppliers(raw.AffectedSupplyChainNodes, suppliers),
		Severity:                 coerceSeverity(raw.Severity),
		IsConfirmed:              coerceConfirmation(raw.IsConfirmed),
		TimeHorizon:              coerceHorizon(raw.TimeHorizon),
		Reasoning:                raw.Reasoning,
		RecommendedAction:        raw.RecommendedAction,
	}
	return extraction, nil
}

// buildPrompt mirrors the original GeminiClient._build_extraction_prompt,
// generalized to accept an already-loaded supplier catalog slice.
func (e *Extractor) buildPrompt(article model.Article, company model.CompanyProfile, suppliers []model.Supplier) string {
	names := make([]string, 0, len(suppliers))
	for _, s := range suppliers {
		names = append(names, s.Name)
	}

	return fmt.Sprintf(`You are a supply chain risk analyst for %s.

Company's key suppliers: %s
Company's raw materials: %s
Key geographies: %s

Analyze the following news article and return a JSON object ONLY (no explanation):

Article:
%s

%s

JSON schema to follow:
{
  "is_risk": true or false,
  "risk_type": "geopolitical | natural_disaster | financial | regulatory | operational | cybersecurity | esg | other",
  "affected_entities": ["list of companies, countries, or materials mentioned"],
  "affected_supply_chain_nodes": ["names matching our supplier list or materials exactly"],
  "severity": "critical | high | medium | low",
  "is_confirmed": "true | false | uncertain",
  "time_horizon": "immediate | days | weeks | months",
  "reasoning": "one sentence explaining the link to our supply chain",
  "recommended_action": "one sentence immediate action"
}

Rules:
- Only set is_risk=true if this directly affects our suppliers, materials, or geographies
- affected_supply_chain_nodes must match names from the supplier list exactly (case-insensitive)
- Be conservative: if connection is weak or speculative, set is_risk=false
- severity should reflect potential operational impact to %s`,
		company.Name, strings.Join(names, ", "), strings.Join(company.RawMaterials, ", "),
		strings.Join(company.KeyGeographies, ", "), article.Headline, article.Body, company.Name)
}

// extractJSONObject trims any leading/trailing prose a model emits around
// the JSON body despite JSON-mode instructions, by slicing to the
// outermost brace pair.
func extractJSONObject(text string) string {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end == -1 || end < start {
		return text
	}
	return text[start : end+1]
}

// matchKnownSuppliers retains only node names that case-insensitively
// match a supplier name in the catalog, per spec.md §4.5.
func matchKnownSuppliers(names []string, suppliers []model.Supplier) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		for _, s := range suppliers {
			if strings.EqualFold(n, s.Name) {
				out = append(out, s.Name)
				break
			}
		}
	}
	return out
}

func coerceRiskType(v string) model.RiskType {
	switch model.RiskType(v) {
	case model.RiskGeopolitical, model.RiskNaturalDisaster, model.RiskFinancial,
		model.RiskRegulatory, model.RiskOperational, model.RiskCybersecurity, model.RiskESG:
		return model.RiskType(v)
	default:
		return model.RiskOther
	}
}

func coerceSeverity(v string) model.Severity {
	switch model.Severity(v) {
	case model.SeverityCritical, model.SeverityHigh, model.SeverityMedium, model.SeverityLow:
		return model.Severity(v)
	default:
		return model.SeverityLow
	}
}

func coerceConfirmation(v string) model.Confirmation {
	switch model.Confirmation(v) {
	case model.ConfirmedTrue, model.ConfirmedFalse, model.ConfirmedUncertain:
		return model.Confirmation(v)
	default:
		return model.ConfirmedUncertain
	}
}

func coerceHorizon(v string) model.TimeHorizon {
	switch model.TimeHorizon(v) {
	case model.HorizonImmediate, model.HorizonDays, model.HorizonWeeks, model.HorizonMonths:
		return model.TimeHorizon(v)
	default:
		return model.HorizonWeeks
	}
}
