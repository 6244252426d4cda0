package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/solairus-intel/feed-engine/internal/feed"
	"github.com/solairus-intel/feed-engine/pkg/config"
	"github.com/solairus-intel/feed-engine/pkg/logger"
)

// Client fetches structured trade-policy interventions. The upstream API is
// POST-only: filters go in the JSON body, results come back as a flat list,
// paged by limit/offset.
type Client struct {
	baseURL    string
	apiKey     string
	pageSize   int
	httpClient *http.Client
}

type Intervention struct {
	InterventionID            int64
	Title                     string
	Description               string
	Evaluation                string
	InterventionType          string
	MASTChapter               string
	ImplementingJurisdictions []string
	AffectedJurisdictions     []string
	AffectedSectors           []string
	DateAnnounced             string
	DateImplemented           string
	IsInForce                 bool
	URL                       string
	SourceCount               int
}

type Filter struct {
	Evaluations       []int
	InterventionTypes []string
	ImplementedSince  time.Time
	ImplementedUntil  time.Time
	AffectedSectors   []string
	Limit             int
}

func NewClient(cfg config.PolicyConfig) *Client {
	pageSize := cfg.PageSize
	if pageSize == 0 {
		pageSize = 100
	}

	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		pageSize: pageSize,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Search pages through interventions matching the filter until the limit is
// reached or a short page signals the end of the result set.
func (c *Client) Search(ctx context.Context, filter Filter) ([]Intervention, error) {
	limit := filter.Limit
	if limit == 0 {
		limit = c.pageSize
	}

	body := map[string]interface{}{}
	if len(filter.Evaluations) > 0 {
		body["gta_evaluation"] = filter.Evaluations
	}
	if len(filter.InterventionTypes) > 0 {
		body["intervention_types"] = filter.InterventionTypes
	}
	if !filter.ImplementedSince.IsZero() {
		until := filter.ImplementedUntil
		if until.IsZero() {
			until = time.Now()
		}
		body["implementation_period"] = []string{
			filter.ImplementedSince.Format("2006-01-02"),
			until.Format("2006-01-02"),
		}
	}
	if len(filter.AffectedSectors) > 0 {
		body["affected_sectors"] = filter.AffectedSectors
	}

	var all []Intervention
	offset := 0

	for len(all) < limit {
		pageLimit := c.pageSize
		if remaining := limit - len(all); remaining < pageLimit {
			pageLimit = remaining
		}
		body["limit"] = pageLimit
		body["offset"] = offset

		page, err := c.requestPage(ctx, body)
		if err != nil {
			return nil, err
		}

		all = append(all, page...)
		if len(page) < pageLimit {
			break
		}
		offset += len(page)
	}

	logger.Info("Policy search completed",
		zap.Int("interventions", len(all)),
		zap.Int("limit", limit),
	)

	return all, nil
}

func (c *Client) requestPage(ctx context.Context, body map[string]interface{}) ([]Intervention, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("APIKey %s", c.apiKey))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", feed.ErrTransientSource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: policy source returned status %d", feed.ErrTransientSource, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("policy source returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", feed.ErrTransientSource, err)
	}

	return parseInterventions(data)
}

type rawJurisdiction struct {
	Name string `json:"name"`
}

type rawIntervention struct {
	InterventionID            int64             `json:"intervention_id"`
	StateActTitle             string            `json:"state_act_title"`
	GTAEvaluation             string            `json:"gta_evaluation"`
	InterventionType          string            `json:"intervention_type"`
	MASTChapter               string            `json:"mast_chapter"`
	ImplementingJurisdictions []rawJurisdiction `json:"implementing_jurisdictions"`
	AffectedJurisdictions     []rawJurisdiction `json:"affected_jurisdictions"`
	AffectedSectors           []string          `json:"affected_sectors"`
	DateAnnounced             string            `json:"date_announced"`
	DateImplemented           string            `json:"date_implemented"`
	IsInForce                 int               `json:"is_in_force"`
	InterventionURL           string            `json:"intervention_url"`
	Sources                   []json.RawMessage `json:"sources"`
}

func parseInterventions(data []byte) ([]Intervention, error) {
	var raws []rawIntervention
	if err := json.Unmarshal(data, &raws); err != nil {
		// Alternate response format wraps the list in a data field.
		var wrapped struct {
			Data []rawIntervention `json:"data"`
		}
		if err2 := json.Unmarshal(data, &wrapped); err2 != nil {
			return nil, fmt.Errorf("failed to parse policy response: %w", err)
		}
		raws = wrapped.Data
	}

	interventions := make([]Intervention, 0, len(raws))
	for _, raw := range raws {
		interventions = append(interventions, raw.toIntervention())
	}
	return interventions, nil
}

func (r rawIntervention) toIntervention() Intervention {
	implementing := jurisdictionNames(r.ImplementingJurisdictions)
	affected := jurisdictionNames(r.AffectedJurisdictions)

	title := r.StateActTitle
	if title == "" {
		title = "Untitled intervention"
	}

	// The API has no description field; build one from the structured parts.
	var b strings.Builder
	b.WriteString(r.InterventionType)
	if len(implementing) > 0 {
		b.WriteString(" implemented by ")
		b.WriteString(strings.Join(implementing, ", "))
	}
	if len(affected) > 0 {
		b.WriteString(" affecting ")
		b.WriteString(strings.Join(affected, ", "))
	}
	if r.MASTChapter != "" {
		b.WriteString(". Category: ")
		b.WriteString(r.MASTChapter)
	}

	return Intervention{
		InterventionID:            r.InterventionID,
		Title:                     StripHTML(title),
		Description:               b.String(),
		Evaluation:                r.GTAEvaluation,
		InterventionType:          r.InterventionType,
		MASTChapter:               r.MASTChapter,
		ImplementingJurisdictions: implementing,
		AffectedJurisdictions:     affected,
		AffectedSectors:           r.AffectedSectors,
		DateAnnounced:             r.DateAnnounced,
		DateImplemented:           r.DateImplemented,
		IsInForce:                 r.IsInForce != 0,
		URL:                       r.InterventionURL,
		SourceCount:               len(r.Sources),
	}
}

func jurisdictionNames(js []rawJurisdiction) []string {
	names := make([]string, 0, len(js))
	for _, j := range js {
		if j.Name != "" {
			names = append(names, j.Name)
		}
	}
	return names
}

// StripHTML flattens markup the upstream occasionally embeds in titles.
func StripHTML(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}

	return strings.TrimSpace(strings.Join(strings.Fields(doc.Text()), " "))
}
