// Package normalizer converts source-specific raw news payloads into the
// canonical model.Article and validates the required fields, per
// spec.md §4.4 (Normalizer) and the original normalizer.py.
package normalizer

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/riskpipe/supplychain/internal/errkind"
	"github.com/riskpipe/supplychain/pkg/model"
)

// NewsAPIArticle is the raw shape returned by the configured news source
// (NewsAPI.org's /v2/everything "articles" entries).
type NewsAPIArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

// FromNewsAPI builds a canonical Article from one NewsAPI entry, mirroring
// the original normalize_newsapi_article.
func FromNewsAPI(raw NewsAPIArticle) model.Article {
	body := raw.Content
	if body == "" {
		body = raw.Description
	}
	return model.Article{
		EventID:   uuid.NewString(),
		Timestamp: parseTimestamp(raw.PublishedAt),
		Source:    "NewsAPI",
		Headline:  raw.Title,
		Body:      body,
		URL:       raw.URL,
	}
}

// Generic builds a canonical Article from already-split fields, for
// sources other than NewsAPI (mirrors normalize_generic_article).
func Generic(headline, body, url, source, publishedAt string) model.Article {
	return model.Article{
		EventID:   uuid.NewString(),
		Timestamp: parseTimestamp(publishedAt),
		Source:    source,
		Headline:  headline,
		Body:      body,
		URL:       url,
	}
}

func parseTimestamp(ts string) time.Time {
	if ts == "" {
		return time.Now().UTC()
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}

const minHeadlineLength = 10

// Validate enforces the required-field checks of spec.md §4.3/§4.4:
// event_id, timestamp, source, non-empty url, and headline >= 10 chars.
// It returns an errkind.ValidationError on the first violation.
func Validate(a model.Article) error {
	if strings.TrimSpace(a.EventID) == "" {
		return errkind.Wrap(errkind.ValidationError, fmt.Errorf("missing event_id"))
	}
	if a.Timestamp.IsZero() {
		return errkind.Wrap(errkind.ValidationError, fmt.Errorf("missing timestamp"))
	}
	if strings.TrimSpace(a.Source) == "" {
		return errkind.Wrap(errkind.ValidationError, fmt.Errorf("missing source"))
	}
	if strings.TrimSpace(a.URL) == "" {
		return errkind.Wrap(errkind.ValidationError, fmt.Errorf("missing url"))
	}
	if len(strings.TrimSpace(a.Headline)) < minHeadlineLength {
		return errkind.Wrap(errkind.ValidationError, fmt.Errorf("headline too short (<%d chars)", minHeadlineLength))
	}
	return nil
}
