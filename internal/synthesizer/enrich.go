package synthesizer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/solairus-intel/feed-engine/internal/clients/narrative"
	"github.com/solairus-intel/feed-engine/internal/feed"
	"github.com/solairus-intel/feed-engine/pkg/logger"
)

// Enricher decorates the deterministic synthesizer with an AI-sharpened
// "so what" statement. The AI path is a pure substitution: any failure,
// missing capability, or validation miss falls back to the template text, so
// the pipeline never depends on it.
type Enricher struct {
	base   *Template
	client *narrative.Client
}

func NewEnricher(base *Template, client *narrative.Client) *Enricher {
	return &Enricher{base: base, client: client}
}

func (e *Enricher) Synthesize(ctx context.Context, item *feed.Item, sector feed.Sector) string {
	fallback := e.base.Synthesize(ctx, item, sector)

	if e.client == nil {
		return fallback
	}

	prompt := buildSoWhatPrompt(item, sector)

	result, err := e.client.Query(ctx, prompt)
	if err != nil {
		logger.Debug("Enrichment query failed, using template",
			zap.String("item_id", item.ID),
			zap.Error(err),
		)
		return fallback
	}

	statement := strings.TrimSpace(result.Response)
	if !validateStatement(statement, item) {
		logger.Debug("Enriched statement failed validation, using template",
			zap.String("item_id", item.ID),
		)
		return fallback
	}

	return statement
}

func (e *Enricher) ActionItems(item *feed.Item) []string {
	return e.base.ActionItems(item)
}

func buildSoWhatPrompt(item *feed.Item, sector feed.Sector) string {
	return fmt.Sprintf(`Generate a concise "So What" statement explaining the business aviation impact of this intelligence item.

Category: %s
Content: %s
Sector: %s

Write 1-2 sentences covering why this matters for business aviation operations and the affected client sector. Only use information from the content above; do not invent statistics. Generate ONLY the statement, no labels.`,
		item.Category, item.Content, sector)
}

var factualPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d+(\.\d+)?%`),
	regexp.MustCompile(`(?i)\$\d+(\.\d+)?\s*(billion|million|trillion)?`),
	regexp.MustCompile(`\b\d{1,3}(,\d{3})+(\.\d+)?\b`),
	regexp.MustCompile(`(?i)\b(United States|China|Russia|European Union|Japan|India|Saudi Arabia|Iran|Israel)\b`),
}

// validateStatement fact-checks the AI text against the item's own content:
// every numeric or named-entity claim must appear in the source, and the
// statement must be a plausible length.
func validateStatement(statement string, item *feed.Item) bool {
	if len(statement) < 20 || len(statement) > 400 {
		return false
	}

	source := strings.ToLower(item.Title + " " + item.Content)
	for _, pattern := range factualPatterns {
		for _, claim := range pattern.FindAllString(statement, -1) {
			if !strings.Contains(source, strings.ToLower(claim)) {
				return false
			}
		}
	}

	return true
}
