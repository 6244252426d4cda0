package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/solairus-intel/feed-engine/internal/clients/narrative"
	"github.com/solairus-intel/feed-engine/internal/feed"
	"github.com/solairus-intel/feed-engine/pkg/logger"
	"github.com/solairus-intel/feed-engine/pkg/utils"
)

const minSectionLength = 100

// NarrativeAdapter normalizes free-text replies from the conversational
// source. One reply often covers several topics, so responses are split into
// sections and each section becomes its own item.
type NarrativeAdapter struct {
	client     *narrative.Client
	sourceName string
}

type narrativePayload struct {
	Prompt     string  `json:"prompt"`
	Response   string  `json:"response"`
	Confidence float64 `json:"confidence"`
}

func NewNarrativeAdapter(client *narrative.Client) *NarrativeAdapter {
	return &NarrativeAdapter{client: client, sourceName: "narrative"}
}

func (a *NarrativeAdapter) Source() feed.SourceType {
	return feed.SourceNarrative
}

func (a *NarrativeAdapter) Fetch(ctx context.Context, tmpl feed.QueryTemplate, variant int) (*RawResponse, error) {
	prompt := tmpl.Prompt
	if variant > 0 {
		if variant > len(tmpl.FollowUps) {
			return nil, fmt.Errorf("template %s has no follow-up %d", tmpl.ID, variant)
		}
		prompt = tmpl.FollowUps[variant-1]
	}

	result, err := a.client.Query(ctx, prompt)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(narrativePayload{
		Prompt:     prompt,
		Response:   result.Response,
		Confidence: result.Confidence,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode narrative payload: %w", err)
	}

	return &RawResponse{
		TemplateID: tmpl.ID,
		Category:   tmpl.Category,
		Source:     feed.SourceNarrative,
		Variant:    variant,
		Confidence: result.Confidence,
		Body:       body,
	}, nil
}

func (a *NarrativeAdapter) Normalize(responses []RawResponse, runTime time.Time) ([]feed.Item, int) {
	var items []feed.Item
	skipped := 0

	for _, resp := range responses {
		var payload narrativePayload
		if err := json.Unmarshal(resp.Body, &payload); err != nil {
			logger.Warn("Skipping malformed narrative payload",
				zap.String("template_id", resp.TemplateID),
				zap.Error(err),
			)
			skipped++
			continue
		}

		for _, section := range splitSections(payload.Response) {
			cleaned := cleanNarrativeText(section)
			if len(cleaned) < minSectionLength {
				skipped++
				continue
			}

			items = append(items, feed.Item{
				ID:         uuid.NewString(),
				Title:      sectionTitle(cleaned),
				Content:    cleaned,
				Category:   resp.Category,
				SourceType: feed.SourceNarrative,
				Relevance:  baseRelevance(cleaned),
				Confidence: narrativeConfidence(cleaned),
				ReportedAt: runTime,
				Sources: []feed.SourceRef{
					{Name: a.sourceName, ExternalID: resp.TemplateID},
				},
			})
		}
	}

	return items, skipped
}

var numberedItemRe = regexp.MustCompile(`\n\d+\.`)

// splitSections breaks a multi-topic reply into separate findings. Numbered
// lists take precedence, then dashed bullets, then paragraph breaks.
func splitSections(response string) []string {
	var parts []string
	minLen := minSectionLength

	switch {
	case strings.Contains(response, "\n1.") || strings.Contains(response, "\n2."):
		parts = numberedItemRe.Split(response, -1)
	case strings.Count(response, "\n- ") >= 2:
		parts = strings.Split(response, "\n- ")
	case strings.Count(response, "\n\n") >= 2:
		parts = strings.Split(response, "\n\n")
		minLen = 150
	default:
		return []string{response}
	}

	sections := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len(p) >= minLen {
			sections = append(sections, p)
		}
	}

	if len(sections) == 0 {
		return []string{response}
	}
	return sections
}

var hedgingPatterns = []string{
	"has not identified",
	"have not identified",
	"no evidence of",
	"does not appear",
	"not identified",
	"no significant new",
	"no major new",
	"unclear whether",
	"insufficient data",
	"cannot determine",
	"remains unclear",
}

// cleanNarrativeText collapses whitespace, drops hedging sentences, and
// re-capitalizes sentence starts.
func cleanNarrativeText(text string) string {
	text = strings.Join(strings.Fields(text), " ")

	sentences := strings.Split(text, ". ")
	kept := make([]string, 0, len(sentences))
	for _, sentence := range sentences {
		lower := strings.ToLower(sentence)
		hedged := false
		for _, pattern := range hedgingPatterns {
			if strings.Contains(lower, pattern) {
				hedged = true
				break
			}
		}
		if !hedged && sentence != "" {
			kept = append(kept, capitalize(sentence))
		}
	}

	if len(kept) == 0 {
		return ""
	}
	return strings.Join(kept, ". ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func sectionTitle(text string) string {
	if idx := strings.Index(text, ". "); idx > 0 && idx < 120 {
		return text[:idx]
	}
	return utils.Truncate(text, 120)
}

// narrativeConfidence scores signal quality of a cleaned section: structure,
// figures, and a usable length all raise it above the 0.7 baseline.
func narrativeConfidence(content string) float64 {
	confidence := 0.7

	if strings.Contains(content, "•") || strings.Contains(content, "\n") {
		confidence += 0.1
	}
	if strings.ContainsAny(content, "0123456789") {
		confidence += 0.1
	}

	switch {
	case len(content) > 100 && len(content) < 1000:
		confidence += 0.1
	case len(content) >= 1000:
		confidence += 0.05
	}

	return capped(confidence, 1.0)
}
