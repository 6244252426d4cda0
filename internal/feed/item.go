package feed

import (
	"time"
)

type SourceType string

const (
	SourceNarrative         SourceType = "narrative"
	SourcePolicyEvent       SourceType = "policy_event"
	SourceEconomicIndicator SourceType = "economic_indicator"
)

// TiebreakRank orders source types for deterministic tie-breaking: structured
// sources come before narrative ones.
func (s SourceType) TiebreakRank() int {
	switch s {
	case SourcePolicyEvent:
		return 0
	case SourceEconomicIndicator:
		return 1
	case SourceNarrative:
		return 2
	default:
		return 3
	}
}

type SourceRef struct {
	Name       string `json:"name"`
	ExternalID string `json:"external_id,omitempty"`
}

type Item struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Content        string      `json:"content"`
	Category       string      `json:"category"`
	SourceType     SourceType  `json:"source_type"`
	Relevance      float64     `json:"relevance"`
	Confidence     float64     `json:"confidence"`
	ReportedAt     time.Time   `json:"reported_at"`
	Sectors        []Sector    `json:"sectors,omitempty"`
	Sources        []SourceRef `json:"sources"`
	SoWhat         string      `json:"so_what,omitempty"`
	ActionItems    []string    `json:"action_items,omitempty"`
	CompositeScore float64     `json:"composite_score"`

	Policy *PolicyDetail `json:"policy,omitempty"`
	Econ   *EconDetail   `json:"econ,omitempty"`
}

type PolicyDetail struct {
	InterventionID       int64     `json:"intervention_id"`
	InterventionType     string    `json:"intervention_type"`
	Evaluation           string    `json:"evaluation"`
	ImplementingEntities []string  `json:"implementing_entities,omitempty"`
	AffectedEntities     []string  `json:"affected_entities,omitempty"`
	DateAnnounced        time.Time `json:"date_announced,omitempty"`
	DateImplemented      time.Time `json:"date_implemented,omitempty"`
}

type EconDetail struct {
	SeriesID string  `json:"series_id"`
	Period   string  `json:"period"`
	Value    float64 `json:"value"`
	Unit     string  `json:"unit,omitempty"`
}

// InSector reports whether the item belongs to a sector view. Items with no
// matched sector are only visible through the general grouping.
func (it *Item) InSector(s Sector) bool {
	if s == SectorGeneral {
		return len(it.Sectors) == 0 || it.hasSector(SectorGeneral)
	}
	return it.hasSector(s)
}

func (it *Item) hasSector(s Sector) bool {
	for _, sec := range it.Sectors {
		if sec == s {
			return true
		}
	}
	return false
}
