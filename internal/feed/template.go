package feed

import (
	"fmt"
	"time"
)

// QueryTemplate describes one strategic query against a source. Templates are
// immutable after construction; priority runs 1-10 with higher dispatched
// first.
type QueryTemplate struct {
	ID        string
	Category  string
	Source    SourceType
	Prompt    string
	FollowUps []string
	Priority  int
	Sectors   []Sector
	// Params carries source-specific filter values: series codes for
	// economic templates, intervention filters for policy templates.
	Params map[string]string
}

// DefaultTemplates returns the strategic query catalog for a run starting at
// now. Narrative prompts embed the current month and a recency constraint so
// the source does not pad responses with stale material.
func DefaultTemplates(now time.Time) []QueryTemplate {
	month := now.Format("January 2006")
	sixMonthsAgo := now.AddDate(0, -6, 0).Format("January 2006")
	constraint := fmt.Sprintf(" Only include information from %s to present. Do not include events older than 6 months.", sixMonthsAgo)

	return []QueryTemplate{
		{
			ID:       "narrative-aviation-security",
			Category: "aviation_security",
			Source:   SourceNarrative,
			Prompt:   fmt.Sprintf("What geopolitical developments in %s have impacted international aviation security, airspace restrictions, or flight routing?%s", month, constraint),
			FollowUps: []string{
				"Which regions have new or modified airspace restrictions?" + constraint,
				"What are the implications for business jet operations?" + constraint,
			},
			Priority: 10,
			Sectors:  []Sector{SectorGeneral},
		},
		{
			ID:       "narrative-sanctions-trade",
			Category: "sanctions_trade",
			Source:   SourceNarrative,
			Prompt:   fmt.Sprintf("Summarize all new sanctions, trade restrictions, and export controls implemented in %s that affect international business.%s", month, constraint),
			FollowUps: []string{
				"Which countries and sectors are most affected?" + constraint,
				"What are the compliance requirements for aviation operators?" + constraint,
			},
			Priority: 9,
			Sectors:  []Sector{SectorGeneral, SectorTechnology, SectorFinance},
		},
		{
			ID:       "policy-harmful-interventions",
			Category: "trade_interventions",
			Source:   SourcePolicyEvent,
			Prompt:   "recent harmful trade interventions",
			Priority: 9,
			Sectors:  []Sector{SectorGeneral},
			Params:   map[string]string{"evaluation": "Harmful"},
		},
		{
			ID:       "econ-interest-rates",
			Category: "economic_interest_rates",
			Source:   SourceEconomicIndicator,
			Prompt:   "interest rate indicators",
			Priority: 9,
			Sectors:  []Sector{SectorFinance, SectorRealEstate},
			Params:   map[string]string{"series": "DFF,DGS10,MORTGAGE30US"},
		},
		{
			ID:       "econ-fuel-costs",
			Category: "economic_fuel_costs",
			Source:   SourceEconomicIndicator,
			Prompt:   "aviation fuel cost indicators",
			Priority: 9,
			Sectors:  []Sector{SectorEnergy, SectorGeneral},
			Params:   map[string]string{"series": "WJFUELUSGULF,DCOILWTICO"},
		},
		{
			ID:       "policy-export-controls",
			Category: "export_controls",
			Source:   SourcePolicyEvent,
			Prompt:   "sanctions and export control measures",
			Priority: 8,
			Sectors:  []Sector{SectorTechnology, SectorGeneral},
			Params:   map[string]string{"types": "Sanction,Export ban,Export licensing requirement"},
		},
		{
			ID:       "narrative-europe",
			Category: "europe",
			Source:   SourceNarrative,
			Prompt:   fmt.Sprintf("What were the significant European political, regulatory, and economic changes in %s that impact business aviation and corporate travel?%s", month, constraint),
			FollowUps: []string{
				"How are EU regulations affecting aviation operations?" + constraint,
				"What is the impact of energy costs on European aviation?" + constraint,
			},
			Priority: 8,
			Sectors:  []Sector{SectorGeneral, SectorEnergy},
		},
		{
			ID:       "narrative-asia-pacific",
			Category: "asia_pacific",
			Source:   SourceNarrative,
			Prompt:   fmt.Sprintf("Summarize Asia-Pacific geopolitical tensions and economic developments from %s, with focus on China relations and regional stability.%s", month, constraint),
			FollowUps: []string{
				"How are US-China tensions affecting technology sector travel?" + constraint,
				"What are the implications for Pacific route planning?" + constraint,
			},
			Priority: 8,
			Sectors:  []Sector{SectorTechnology, SectorFinance},
		},
		{
			ID:       "narrative-risk-forecast",
			Category: "risk_forecast",
			Source:   SourceNarrative,
			Prompt:   fmt.Sprintf("Based on %s developments, what are the top geopolitical and economic risks for international business aviation in the next 3-6 months?%s", month, constraint),
			FollowUps: []string{
				"Which regions face highest instability risk?" + constraint,
				"What contingency planning is recommended?" + constraint,
			},
			Priority: 8,
			Sectors:  []Sector{SectorGeneral},
		},
		{
			ID:       "econ-inflation",
			Category: "economic_inflation",
			Source:   SourceEconomicIndicator,
			Prompt:   "inflation indicators",
			Priority: 7,
			Sectors:  []Sector{SectorGeneral},
			Params:   map[string]string{"series": "CPIAUCSL,PCEPI"},
		},
		{
			ID:       "policy-capital-controls",
			Category: "capital_controls",
			Source:   SourcePolicyEvent,
			Prompt:   "capital control measures",
			Priority: 7,
			Sectors:  []Sector{SectorFinance},
			Params:   map[string]string{"types": "Capital control"},
		},
		{
			ID:       "narrative-technology-sector",
			Category: "technology_sector",
			Source:   SourceNarrative,
			Prompt:   fmt.Sprintf("What geopolitical factors in %s specifically impacted the global technology sector, including semiconductor supply chains, data sovereignty, and tech regulation?%s", month, constraint),
			FollowUps: []string{
				"How are export controls affecting US tech companies?" + constraint,
				"What are the implications for Silicon Valley business travel?" + constraint,
			},
			Priority: 7,
			Sectors:  []Sector{SectorTechnology},
		},
		{
			ID:       "narrative-financial-sector",
			Category: "financial_sector",
			Source:   SourceNarrative,
			Prompt:   fmt.Sprintf("Analyze financial market volatility, banking sector developments, and investment trends from %s that affect private equity and capital markets.%s", month, constraint),
			FollowUps: []string{
				"What is the outlook for M&A activity?" + constraint,
				"How are regulatory changes affecting private equity?" + constraint,
			},
			Priority: 7,
			Sectors:  []Sector{SectorFinance},
		},
		{
			ID:       "econ-gdp-employment",
			Category: "economic_growth",
			Source:   SourceEconomicIndicator,
			Prompt:   "growth and employment indicators",
			Priority: 6,
			Sectors:  []Sector{SectorGeneral},
			Params:   map[string]string{"series": "A191RL1Q225SBEA,UNRATE,PAYEMS"},
		},
		{
			ID:       "narrative-real-estate-sector",
			Category: "real_estate_sector",
			Source:   SourceNarrative,
			Prompt:   fmt.Sprintf("What were the key developments in global real estate markets, construction costs, and infrastructure investment during %s?%s", month, constraint),
			FollowUps: []string{
				"How are interest rates affecting real estate development?" + constraint,
			},
			Priority: 6,
			Sectors:  []Sector{SectorRealEstate},
		},
		{
			ID:       "narrative-cybersecurity",
			Category: "cybersecurity",
			Source:   SourceNarrative,
			Prompt:   fmt.Sprintf("Summarize cybersecurity threats, data breaches, and digital infrastructure risks from %s that could impact aviation and corporate operations.%s", month, constraint),
			FollowUps: []string{
				"What are the implications for aviation IT systems?" + constraint,
			},
			Priority: 6,
			Sectors:  []Sector{SectorTechnology, SectorGeneral},
		},
		{
			ID:       "narrative-entertainment-sector",
			Category: "entertainment_sector",
			Source:   SourceNarrative,
			Prompt:   fmt.Sprintf("Summarize entertainment industry developments, content regulation changes, and talent mobility issues from %s.%s", month, constraint),
			Priority: 5,
			Sectors:  []Sector{SectorEntertainment},
		},
	}
}
