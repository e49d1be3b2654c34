// Package llm speaks to the external LLM vendor for risk extraction and
// text embeddings. It narrows the general chat/embeddings surface a
// gateway would expose down to the two calls the pipeline needs:
// structured JSON extraction and single-vector embedding.
package llm

import "context"

// ModelTier selects between the cheap default model and the escalation
// model used for low-confidence or high-stakes articles (spec.md §4.5).
type ModelTier string

const (
	TierFlash ModelTier = "flash"
	TierPro   ModelTier = "pro"
)

// Client is the external collaborator contract for the vendor LLM.
// GenerateJSON must return a string containing a single JSON object
// (the vendor's JSON-mode response); Embed must return a single
// embedding vector for text.
type Client interface {
	GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error)
	Embed(ctx context.Context, text string) ([]float64, error)
}
