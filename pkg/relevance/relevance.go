// Package relevance implements the embedding-cosine gate that admits or
// rejects an Article before the (expensive) LLM risk extraction call,
// per spec.md §4.4 and the original relevance_filter.py.
package relevance

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/riskpipe/supplychain/pkg/model"
)

// DefaultThreshold is used when no threshold is configured.
const DefaultThreshold = 0.3

// FailOpenScore is returned (and the article admitted) when the
// embedding service fails, per spec.md §4.4's "fail-open" rule.
const FailOpenScore = 0.5

// maxTextLength bounds article/keyword text sent to the embedder.
const maxTextLength = 1000

// Embedder is the external collaborator contract: text in, vector out.
// pkg/llm's GeminiClient/AnthropicClient satisfy this structurally.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Filter computes a cosine-similarity relevance score for an Article
// against a company's keyword vector, caching keyword embeddings (which
// are stable per worker refresh) so repeated article checks don't
// re-embed the same keyword text.
type Filter struct {
	embedder     Embedder
	threshold    float64
	logger       zerolog.Logger
	cache        *embeddingCache
	embedTimeout time.Duration
}

// New builds a Filter. threshold <= 0 uses DefaultThreshold. embedTimeout
// bounds each outbound embedding call (spec.md §5's embedding timeout);
// <= 0 disables the bound.
func New(embedder Embedder, threshold float64, embedTimeout time.Duration, logger zerolog.Logger) *Filter {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Filter{
		embedder:     embedder,
		threshold:    threshold,
		logger:       logger.With().Str("component", "relevance_filter").Logger(),
		cache:        newEmbeddingCache(10 * time.Minute),
		embedTimeout: embedTimeout,
	}
}

// Score computes the relevance score for an article against the given
// keyword vector. On embedding failure it fails open (returns
// FailOpenScore) per spec.md §4.4, logging the underlying error.
func (f *Filter) Score(ctx context.Context, article model.Article, companyKeywords []string) float64 {
	articleText := truncate(article.Headline+" "+article.Body, maxTextLength)
	keywordText := truncate(strings.Join(companyKeywords, " "), maxTextLength)

	articleVec, err := f.embed(ctx, articleText)
	if err != nil {
		f.logger.Warn().Err(err).Msg("embedding failed for article text, failing open")
		return FailOpenScore
	}
	keywordVec, err := f.embed(ctx, keywordText)
	if err != nil {
		f.logger.Warn().Err(err).Msg("embedding failed for keyword text, failing open")
		return FailOpenScore
	}

	return cosineSimilarity(articleVec, keywordVec)
}

// IsRelevant reports whether score meets the admission threshold.
func (f *Filter) IsRelevant(score float64) bool {
	return score >= f.threshold
}

// Threshold returns the configured admission threshold.
func (f *Filter) Threshold() float64 {
	return f.threshold
}

func (f *Filter) embed(ctx context.Context, text string) ([]float64, error) {
	if vec, ok := f.cache.get(text); ok {
		return vec, nil
	}

	if f.embedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.embedTimeout)
		defer cancel()
	}

	vec, err := f.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	f.cache.put(text, vec)
	return vec, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// cosineSimilarity mirrors the original's pure-Python implementation and
// the teacher's caching.Engine semantic-cache similarity formula.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
