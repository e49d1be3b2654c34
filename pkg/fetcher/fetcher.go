// Package fetcher polls the external news source, normalizes and
// validates the results, and hands novel articles off to the dedup
// index and StreamBus, per spec.md §4.3 and the original NewsAPI
// connector + ingestion loop.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/riskpipe/supplychain/internal/errkind"
	"github.com/riskpipe/supplychain/pkg/catalog"
	"github.com/riskpipe/supplychain/pkg/dedup"
	"github.com/riskpipe/supplychain/pkg/model"
	"github.com/riskpipe/supplychain/pkg/normalizer"
	"github.com/riskpipe/supplychain/pkg/streambus"
)

const newsAPIBaseURL = "https://newsapi.org/v2/everything"

// topKeywordCount is N in "top-N keywords" (spec.md §4.3).
const topKeywordCount = 5

// Report summarizes one fetch cycle, per spec.md §4.3.
type Report struct {
	Fetched    int
	New        int
	Duplicates int
	Invalid    int
}

// Fetcher polls the news source on each Run call; Scheduler drives the
// interval (default 15 min).
type Fetcher struct {
	apiKey  string
	client  *http.Client
	bus     *streambus.Bus
	dedup   *dedup.Index
	dedupTTL time.Duration
	logger  zerolog.Logger
}

// New builds a Fetcher with a bounded-timeout HTTP client, matching the
// teacher's provider connector transport tuning (idle-conn reuse, per-call
// timeout rather than a client-wide one left unbounded).
func New(apiKey string, bus *streambus.Bus, dedupIdx *dedup.Index, dedupTTL time.Duration, timeout time.Duration, logger zerolog.Logger) *Fetcher {
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Fetcher{
		apiKey:   apiKey,
		client:   &http.Client{Transport: transport, Timeout: timeout},
		bus:      bus,
		dedup:    dedupIdx,
		dedupTTL: dedupTTL,
		logger:   logger.With().Str("component", "fetcher").Logger(),
	}
}

type newsAPIResponse struct {
	Status   string                       `json:"status"`
	Message  string                       `json:"message"`
	Articles []normalizer.NewsAPIArticle `json:"articles"`
}

// Run executes one fetch cycle: build the query from the catalog
// snapshot, call the news source, normalize+validate+dedup+append each
// result. Outbound HTTP failures are logged and the cycle ends cleanly —
// the next scheduler tick retries (spec.md §4.3).
func (f *Fetcher) Run(ctx context.Context, snap *catalog.Snapshot) Report {
	keywords := snap.TopKeywords(topKeywordCount)
	query := buildQuery(keywords)

	f.logger.Info().Str("query", query).Msg("starting fetch cycle")

	articles, err := f.search(ctx, query)
	if err != nil {
		f.logger.Error().Err(err).Msg("news fetch failed, will retry next cycle")
		return Report{}
	}

	report := Report{Fetched: len(articles)}

	for _, raw := range articles {
		article := normalizer.FromNewsAPI(raw)

		if err := normalizer.Validate(article); err != nil {
			report.Invalid++
			f.logger.Warn().Err(err).Str("headline", raw.Title).Msg("article failed validation")
			continue
		}

		fp := dedup.Fingerprint(article.Headline, article.Body)
		isNovel, err := f.dedup.TryInsert(ctx, fp, f.dedupTTL)
		if err != nil {
			f.logger.Error().Err(err).Msg("dedup check failed")
			continue
		}
		if !isNovel {
			report.Duplicates++
			continue
		}

		if _, err := f.bus.Append(ctx, streambus.NormalizedEvents, articleFields(article)); err != nil {
			f.logger.Error().Err(err).Str("event_id", article.EventID).Msg("failed to append normalized article")
			continue
		}
		report.New++
	}

	f.logger.Info().
		Int("fetched", report.Fetched).
		Int("new", report.New).
		Int("duplicates", report.Duplicates).
		Int("invalid", report.Invalid).
		Msg("fetch cycle complete")

	return report
}

// buildQuery joins the top keywords OR-wise, each quoted, mirroring the
// original NewsAPIConnector.fetch.
func buildQuery(keywords []string) string {
	quoted := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if strings.TrimSpace(k) == "" {
			continue
		}
		quoted = append(quoted, fmt.Sprintf("%q", k))
	}
	return strings.Join(quoted, " OR ")
}

func (f *Fetcher) search(ctx context.Context, query string) ([]normalizer.NewsAPIArticle, error) {
	if f.apiKey == "" {
		return nil, errkind.Wrap(errkind.ConfigError, fmt.Errorf("newsapi_key not configured"))
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("sortBy", "publishedAt")
	params.Set("language", "en")
	params.Set("pageSize", strconv.Itoa(100))
	params.Set("apiKey", f.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, newsAPIBaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errkind.Wrap(errkind.TransientExternal, fmt.Errorf("newsapi request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errkind.Wrap(errkind.TransientExternal, fmt.Errorf("newsapi returned status %d", resp.StatusCode))
	}

	var parsed newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errkind.Wrap(errkind.MalformedExternal, fmt.Errorf("decode newsapi response: %w", err))
	}
	if parsed.Status != "ok" {
		return nil, errkind.Wrap(errkind.TransientExternal, fmt.Errorf("newsapi error: %s", parsed.Message))
	}

	return parsed.Articles, nil
}

// articleFields flattens an Article into the string/interface map Bus.Append
// expects, matching the field names a downstream Normalizer/RiskExtractor
// consumer reads back via Record.String/Record.JSON.
func articleFields(a model.Article) map[string]interface{} {
	return map[string]interface{}{
		"event_id":       a.EventID,
		"timestamp":      a.Timestamp.Format(time.RFC3339),
		"source":         a.Source,
		"headline":       a.Headline,
		"body":           a.Body,
		"url":            a.URL,
		"processed":      a.Processed,
		"risk_extracted": a.RiskExtracted,
	}
}
