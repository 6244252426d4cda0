package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/solairus-intel/feed-engine/internal/clients/econ"
	"github.com/solairus-intel/feed-engine/internal/feed"
	"github.com/solairus-intel/feed-engine/pkg/logger"
)

// EconAdapter normalizes economic time series. Each series contributes one
// item built from its latest valid observation, scored by an indicator
// relevance table plus the magnitude of the period-over-period change.
type EconAdapter struct {
	client     *econ.Client
	lookback   time.Duration
	sourceName string
}

func NewEconAdapter(client *econ.Client, lookbackDays int) *EconAdapter {
	if lookbackDays <= 0 {
		lookbackDays = 90
	}
	return &EconAdapter{
		client:     client,
		lookback:   time.Duration(lookbackDays) * 24 * time.Hour,
		sourceName: "economic_indicator",
	}
}

func (a *EconAdapter) Source() feed.SourceType {
	return feed.SourceEconomicIndicator
}

func (a *EconAdapter) Fetch(ctx context.Context, tmpl feed.QueryTemplate, variant int) (*RawResponse, error) {
	if variant != 0 {
		return nil, fmt.Errorf("economic template %s has no follow-up variants", tmpl.ID)
	}

	seriesParam := tmpl.Params["series"]
	if seriesParam == "" {
		return nil, fmt.Errorf("economic template %s has no series param", tmpl.ID)
	}

	since := time.Now().Add(-a.lookback)

	var observations []econ.Observation
	for _, seriesID := range strings.Split(seriesParam, ",") {
		seriesID = strings.TrimSpace(seriesID)
		obs, err := a.client.FetchSeries(ctx, seriesID, since)
		if err != nil {
			return nil, err
		}
		observations = append(observations, obs...)
	}

	body, err := json.Marshal(observations)
	if err != nil {
		return nil, fmt.Errorf("failed to encode economic payload: %w", err)
	}

	return &RawResponse{
		TemplateID: tmpl.ID,
		Category:   tmpl.Category,
		Source:     feed.SourceEconomicIndicator,
		Variant:    variant,
		Body:       body,
	}, nil
}

func (a *EconAdapter) Normalize(responses []RawResponse, runTime time.Time) ([]feed.Item, int) {
	var items []feed.Item
	skipped := 0

	for _, resp := range responses {
		var observations []econ.Observation
		if err := json.Unmarshal(resp.Body, &observations); err != nil {
			logger.Warn("Skipping malformed economic payload",
				zap.String("template_id", resp.TemplateID),
				zap.Error(err),
			)
			skipped++
			continue
		}

		for _, series := range groupBySeries(observations) {
			item, skips := a.normalizeSeries(series, resp.Category, runTime)
			skipped += skips
			if item != nil {
				items = append(items, *item)
			}
		}
	}

	return items, skipped
}

// groupBySeries splits a flat observation list into per-series runs,
// preserving both series order and observation order within each.
func groupBySeries(observations []econ.Observation) [][]econ.Observation {
	var groups [][]econ.Observation
	index := make(map[string]int)

	for _, obs := range observations {
		i, ok := index[obs.SeriesID]
		if !ok {
			i = len(groups)
			index[obs.SeriesID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], obs)
	}
	return groups
}

type observationPoint struct {
	date  time.Time
	value float64
}

func (a *EconAdapter) normalizeSeries(series []econ.Observation, category string, runTime time.Time) (*feed.Item, int) {
	skipped := 0
	var points []observationPoint

	for _, obs := range series {
		// Missing data points come through as ".".
		if obs.Value == "." || obs.Value == "" {
			skipped++
			continue
		}

		value, err := strconv.ParseFloat(obs.Value, 64)
		if err != nil {
			skipped++
			continue
		}

		date, err := time.Parse("2006-01-02", obs.Date)
		if err != nil {
			skipped++
			continue
		}

		points = append(points, observationPoint{date: date, value: value})
	}

	if len(points) == 0 {
		return nil, skipped
	}

	latest := points[len(points)-1]
	if runTime.Sub(latest.date) > a.lookback {
		return nil, skipped
	}

	change := 0.0
	hasChange := false
	if len(points) > 1 {
		prev := points[len(points)-2].value
		if prev != 0 {
			change = (latest.value - prev) / math.Abs(prev) * 100
			hasChange = true
		}
	}

	meta := series[0]
	formatted := formatValue(meta.SeriesID, latest.value, meta.Units)

	content := fmt.Sprintf("%s: %s as of %s.", meta.SeriesName, formatted, latest.date.Format("2006-01-02"))
	if hasChange {
		direction := "Up"
		if change < 0 {
			direction = "Down"
		}
		content = fmt.Sprintf("%s %s %.2f%% from the prior reading.", content, direction, math.Abs(change))
	}

	return &feed.Item{
		ID:         uuid.NewString(),
		Title:      fmt.Sprintf("%s: %s", meta.SeriesName, formatted),
		Content:    content,
		Category:   category,
		SourceType: feed.SourceEconomicIndicator,
		Relevance:  econRelevance(meta.SeriesID, change),
		Confidence: 0.95,
		ReportedAt: latest.date,
		Sources: []feed.SourceRef{
			{Name: a.sourceName, ExternalID: meta.SeriesID},
		},
		Econ: &feed.EconDetail{
			SeriesID: meta.SeriesID,
			Period:   latest.date.Format("2006-01-02"),
			Value:    latest.value,
			Unit:     meta.Units,
		},
	}, skipped
}

func formatValue(seriesID string, value float64, units string) string {
	switch {
	case units == "%":
		return fmt.Sprintf("%.2f%%", value)
	case strings.HasPrefix(units, "$"):
		return fmt.Sprintf("$%.2f%s", value, strings.TrimPrefix(units, "$"))
	case seriesID == "PAYEMS":
		return fmt.Sprintf("%.1fM employees", value/1000)
	case units == "index":
		return fmt.Sprintf("%.1f (index)", value)
	default:
		return fmt.Sprintf("%.2f", value)
	}
}

// indicatorWeight mirrors how directly each series tracks demand drivers for
// the business.
var indicatorWeight = map[string]float64{
	"WJFUELUSGULF":    0.4,
	"DFF":             0.3,
	"DGS10":           0.3,
	"MORTGAGE30US":    0.3,
	"CPIAUCSL":        0.25,
	"PCEPI":           0.25,
	"DCOILWTICO":      0.25,
	"A191RL1Q225SBEA": 0.2,
	"UNRATE":          0.15,
	"PAYEMS":          0.15,
	"BSCICP02USM460S": 0.15,
}

func econRelevance(seriesID string, pctChange float64) float64 {
	score := 0.5 + indicatorWeight[seriesID]

	// Larger deviations matter more, but a wild print alone cannot carry
	// an otherwise minor series to the top.
	score += capped(math.Abs(pctChange)*0.01, 0.15)

	return capped(score, 1.0)
}
