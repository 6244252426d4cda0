package econ

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/solairus-intel/feed-engine/internal/feed"
	"github.com/solairus-intel/feed-engine/pkg/config"
	"github.com/solairus-intel/feed-engine/pkg/logger"
)

// Client fetches time-series observations from the economic data API. Raw
// observation values stay as strings: the upstream reports missing data
// points as "." and those are the normalizer's problem to count, not ours to
// hide.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type Observation struct {
	SeriesID   string `json:"series_id"`
	SeriesName string `json:"series_name"`
	Date       string `json:"date"`
	Value      string `json:"value"`
	Units      string `json:"units"`
}

type seriesInfo struct {
	Name  string
	Units string
}

var seriesCatalog = map[string]seriesInfo{
	"WJFUELUSGULF":    {"US Gulf Coast Kerosene-Type Jet Fuel Price", "$/gallon"},
	"DCOILWTICO":      {"Crude Oil Prices: West Texas Intermediate (WTI)", "$/barrel"},
	"DFF":             {"Federal Funds Effective Rate", "%"},
	"DGS10":           {"10-Year Treasury Constant Maturity Rate", "%"},
	"MORTGAGE30US":    {"30-Year Fixed Rate Mortgage Average", "%"},
	"CPIAUCSL":        {"Consumer Price Index for All Urban Consumers", "index"},
	"PCEPI":           {"Personal Consumption Expenditures Price Index", "index"},
	"A191RL1Q225SBEA": {"Real GDP Growth Rate", "%"},
	"UNRATE":          {"Unemployment Rate", "%"},
	"PAYEMS":          {"Total Nonfarm Payrolls", "thousands"},
	"BSCICP02USM460S": {"Business Confidence Index: Manufacturing", "index"},
}

func NewClient(cfg config.EconConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchSeries returns observations for one series since the given date,
// oldest first.
func (c *Client) FetchSeries(ctx context.Context, seriesID string, since time.Time) ([]Observation, error) {
	params := url.Values{}
	params.Set("series_id", seriesID)
	params.Set("api_key", c.apiKey)
	params.Set("file_type", "json")
	params.Set("observation_start", since.Format("2006-01-02"))
	params.Set("sort_order", "asc")

	reqURL := fmt.Sprintf("%s/series/observations?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", feed.ErrTransientSource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: economic source returned status %d", feed.ErrTransientSource, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("economic source returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", feed.ErrTransientSource, err)
	}

	var parsed struct {
		Observations []struct {
			Date  string `json:"date"`
			Value string `json:"value"`
		} `json:"observations"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse observations: %w", err)
	}

	info := seriesCatalog[seriesID]
	if info.Name == "" {
		info.Name = seriesID
	}

	observations := make([]Observation, 0, len(parsed.Observations))
	for _, o := range parsed.Observations {
		observations = append(observations, Observation{
			SeriesID:   seriesID,
			SeriesName: info.Name,
			Date:       o.Date,
			Value:      o.Value,
			Units:      info.Units,
		})
	}

	logger.Debug("Series fetched",
		zap.String("series_id", seriesID),
		zap.Int("observations", len(observations)),
	)

	return observations, nil
}

// SeriesName resolves a series code to its display name.
func SeriesName(seriesID string) string {
	if info, ok := seriesCatalog[seriesID]; ok {
		return info.Name
	}
	return seriesID
}
