package normalizer

import (
	"errors"
	"testing"
	"time"

	"github.com/riskpipe/supplychain/internal/errkind"
	"github.com/riskpipe/supplychain/pkg/model"
)

func TestFromNewsAPI_PrefersContentOverDescription(t *testing.T) {
	a := FromNewsAPI(NewsAPIArticle{
		Title:       "Headline text here",
		Description: "short description",
		Content:     "full content body",
		URL:         "https://example.com/a",
		PublishedAt: "2026-01-15T10:30:00Z",
	})

	if a.Body != "full content body" {
		t.Errorf("Body = %q, want full content", a.Body)
	}
	if a.Source != "NewsAPI" {
		t.Errorf("Source = %q, want NewsAPI", a.Source)
	}
	if a.EventID == "" {
		t.Error("expected a generated event_id")
	}
	if a.Timestamp.Year() != 2026 {
		t.Errorf("Timestamp = %v, want year 2026", a.Timestamp)
	}
}

func TestFromNewsAPI_FallsBackToDescriptionWhenContentEmpty(t *testing.T) {
	a := FromNewsAPI(NewsAPIArticle{Title: "Headline", Description: "the description", Content: "", URL: "https://x", PublishedAt: ""})
	if a.Body != "the description" {
		t.Errorf("Body = %q, want the description", a.Body)
	}
	// An unparseable/empty published-at falls back to "now" rather than
	// the zero time, so Validate doesn't reject it for a missing timestamp.
	if a.Timestamp.IsZero() {
		t.Error("Timestamp should never be zero")
	}
}

func TestValidate_RequiredFields(t *testing.T) {
	valid := model.Article{
		EventID:   "evt-1",
		Timestamp: time.Now(),
		Source:    "NewsAPI",
		Headline:  "This headline is long enough",
		URL:       "https://example.com",
	}
	if err := Validate(valid); err != nil {
		t.Fatalf("expected valid article to pass, got %v", err)
	}

	cases := []struct {
		name string
		a    model.Article
	}{
		{"missing event_id", model.Article{Timestamp: time.Now(), Source: "s", Headline: "long enough headline", URL: "u"}},
		{"missing timestamp", model.Article{EventID: "e", Source: "s", Headline: "long enough headline", URL: "u"}},
		{"missing source", model.Article{EventID: "e", Timestamp: time.Now(), Headline: "long enough headline", URL: "u"}},
		{"missing url", model.Article{EventID: "e", Timestamp: time.Now(), Source: "s", Headline: "long enough headline"}},
		{"short headline", model.Article{EventID: "e", Timestamp: time.Now(), Source: "s", Headline: "short", URL: "u"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := Validate(c.a)
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !errors.Is(err, errkind.ValidationError) {
				t.Errorf("error should be classified as ValidationError, got %v", err)
			}
		})
	}
}

func TestValidate_HeadlineExactlyMinLengthPasses(t *testing.T) {
	a := model.Article{
		EventID:   "e",
		Timestamp: time.Now(),
		Source:    "s",
		Headline:  "1234567890", // exactly 10 chars
		URL:       "u",
	}
	if err := Validate(a); err != nil {
		t.Fatalf("10-char headline should pass the >= 10 char rule: %v", err)
	}
}
