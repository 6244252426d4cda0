package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/solairus-intel/feed-engine/internal/clients/policy"
	"github.com/solairus-intel/feed-engine/internal/feed"
	"github.com/solairus-intel/feed-engine/pkg/logger"
)

// PolicyAdapter normalizes structured trade-policy interventions. Structured
// records carry authoritative dates and identifiers, so scoring starts from a
// higher floor than narrative text.
type PolicyAdapter struct {
	client     *policy.Client
	lookback   time.Duration
	sourceName string
}

func NewPolicyAdapter(client *policy.Client, lookbackDays int) *PolicyAdapter {
	if lookbackDays <= 0 {
		lookbackDays = 180
	}
	return &PolicyAdapter{
		client:     client,
		lookback:   time.Duration(lookbackDays) * 24 * time.Hour,
		sourceName: "policy_event",
	}
}

func (a *PolicyAdapter) Source() feed.SourceType {
	return feed.SourcePolicyEvent
}

func (a *PolicyAdapter) Fetch(ctx context.Context, tmpl feed.QueryTemplate, variant int) (*RawResponse, error) {
	if variant != 0 {
		return nil, fmt.Errorf("policy template %s has no follow-up variants", tmpl.ID)
	}

	filter := policy.Filter{
		ImplementedSince: time.Now().Add(-a.lookback),
	}

	if eval := tmpl.Params["evaluation"]; eval != "" {
		filter.Evaluations = evaluationCodes(eval)
	}
	if types := tmpl.Params["types"]; types != "" {
		filter.InterventionTypes = strings.Split(types, ",")
	}

	interventions, err := a.client.Search(ctx, filter)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(interventions)
	if err != nil {
		return nil, fmt.Errorf("failed to encode policy payload: %w", err)
	}

	return &RawResponse{
		TemplateID: tmpl.ID,
		Category:   tmpl.Category,
		Source:     feed.SourcePolicyEvent,
		Variant:    variant,
		Body:       body,
	}, nil
}

// Upstream evaluation codes: 1 = Red, 4 = Harmful, 2 = Liberalising.
func evaluationCodes(evaluation string) []int {
	switch strings.ToLower(evaluation) {
	case "harmful":
		return []int{1, 4}
	case "liberalising":
		return []int{2}
	default:
		return nil
	}
}

func (a *PolicyAdapter) Normalize(responses []RawResponse, runTime time.Time) ([]feed.Item, int) {
	var items []feed.Item
	skipped := 0

	for _, resp := range responses {
		var interventions []policy.Intervention
		if err := json.Unmarshal(resp.Body, &interventions); err != nil {
			logger.Warn("Skipping malformed policy payload",
				zap.String("template_id", resp.TemplateID),
				zap.Error(err),
			)
			skipped++
			continue
		}

		for _, iv := range interventions {
			item, ok := a.normalizeIntervention(iv, resp.Category, runTime)
			if !ok {
				skipped++
				continue
			}
			if item == nil {
				continue // stale, filtered without counting
			}
			items = append(items, *item)
		}
	}

	return items, skipped
}

func (a *PolicyAdapter) normalizeIntervention(iv policy.Intervention, category string, runTime time.Time) (*feed.Item, bool) {
	if iv.InterventionID == 0 {
		return nil, false
	}

	reported, err := parsePolicyDate(iv.DateImplemented)
	if err != nil {
		reported, err = parsePolicyDate(iv.DateAnnounced)
		if err != nil {
			return nil, false
		}
	}

	if runTime.Sub(reported) > a.lookback {
		return nil, true
	}

	announced, _ := parsePolicyDate(iv.DateAnnounced)
	implemented, _ := parsePolicyDate(iv.DateImplemented)

	confidence := 0.8
	if iv.SourceCount > 0 {
		confidence = 0.9
	}

	return &feed.Item{
		ID:         uuid.NewString(),
		Title:      iv.Title,
		Content:    iv.Description,
		Category:   category,
		SourceType: feed.SourcePolicyEvent,
		Relevance:  policyRelevance(iv, runTime.Sub(reported)),
		Confidence: confidence,
		ReportedAt: reported,
		Sources: []feed.SourceRef{
			{Name: a.sourceName, ExternalID: fmt.Sprintf("%d", iv.InterventionID)},
		},
		Policy: &feed.PolicyDetail{
			InterventionID:       iv.InterventionID,
			InterventionType:     iv.InterventionType,
			Evaluation:           iv.Evaluation,
			ImplementingEntities: iv.ImplementingJurisdictions,
			AffectedEntities:     iv.AffectedJurisdictions,
			DateAnnounced:        announced,
			DateImplemented:      implemented,
		},
	}, true
}

var policyDateFormats = []string{
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006",
}

func parsePolicyDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", feed.ErrMalformedRecord)
	}

	for _, format := range policyDateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable date %q", feed.ErrMalformedRecord, s)
}

var aviationAdjacent = []string{
	"aviation", "aerospace", "aircraft", "petroleum", "fuel",
	"kerosene", "air transport", "airport", "pilot",
}

func policyRelevance(iv policy.Intervention, age time.Duration) float64 {
	score := 0.5

	switch iv.Evaluation {
	case "Harmful", "Red":
		score += 0.3
	case "Liberalising":
		score += 0.2
	}

	sectorText := strings.ToLower(strings.Join(iv.AffectedSectors, " "))
	for _, kw := range aviationAdjacent {
		if strings.Contains(sectorText, kw) {
			score += 0.2
			break
		}
	}

	days := int(age.Hours() / 24)
	switch {
	case days < 30:
		score += 0.3
	case days < 60:
		score += 0.2
	case days < 90:
		score += 0.1
	}

	return capped(score, 1.0)
}
