package synthesizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/solairus-intel/feed-engine/internal/feed"
)

// Synthesizer produces the "so what" statement and action items for a
// finding. Implementations must treat the item as immutable.
type Synthesizer interface {
	Synthesize(ctx context.Context, item *feed.Item, sector feed.Sector) string
	ActionItems(item *feed.Item) []string
}

// Template is the deterministic implementation: pure functions of the item's
// fields, no network, no randomness. Identical input always yields identical
// text, which the enrichment decorator relies on as its fallback.
type Template struct{}

func NewTemplate() *Template {
	return &Template{}
}

func (t *Template) Synthesize(_ context.Context, item *feed.Item, sector feed.Sector) string {
	switch item.SourceType {
	case feed.SourcePolicyEvent:
		return policySoWhat(item)
	case feed.SourceEconomicIndicator:
		return econSoWhat(item)
	default:
		return narrativeSoWhat(item, sector)
	}
}

func (t *Template) ActionItems(item *feed.Item) []string {
	var actions []string

	switch item.SourceType {
	case feed.SourcePolicyEvent:
		actions = policyActions(item)
	case feed.SourceEconomicIndicator:
		actions = econActions(item)
	default:
		actions = narrativeActions(item)
	}

	if len(actions) > 3 {
		actions = actions[:3]
	}
	return actions
}

func policySoWhat(item *feed.Item) string {
	var ivType, evaluation string
	var implementing, affected []string
	if item.Policy != nil {
		ivType = strings.ToLower(item.Policy.InterventionType)
		evaluation = item.Policy.Evaluation
		implementing = item.Policy.ImplementingEntities
		affected = item.Policy.AffectedEntities
	}

	switch {
	case strings.Contains(ivType, "sanction") || strings.Contains(ivType, "export"):
		if len(implementing) > 0 {
			return fmt.Sprintf("Trade restrictions from %s may affect supply chains, client operations, and routing decisions for affected regions.", joinFirst(implementing, 2))
		}
		return "Export controls and sanctions require immediate compliance review and may impact client travel patterns."
	case strings.Contains(ivType, "tariff") || strings.Contains(ivType, "import"):
		return "Tariff changes signal shifting trade relationships that may affect business aviation demand patterns and cross-border operations."
	case strings.Contains(ivType, "capital"):
		if len(affected) > 0 {
			return fmt.Sprintf("Capital controls in %s may restrict client financial flows and impact business travel demand from these markets.", joinFirst(affected, 2))
		}
		return "Financial restrictions may constrain client liquidity for aviation services and international operations."
	case strings.Contains(ivType, "technology") || strings.Contains(ivType, "local content"):
		return "Technology sector restrictions directly impact Silicon Valley and tech clients' international operations and travel requirements."
	case strings.Contains(ivType, "subsidy") || strings.Contains(ivType, "grant"):
		return "Government support measures signal economic policy direction and competitive landscape changes in affected sectors."
	}

	switch evaluation {
	case "Harmful", "Red":
		return "This trade intervention represents increased barriers to international business that may affect client operations and travel needs."
	case "Liberalising":
		return "This liberalizing measure may create new business opportunities and increase demand for international travel services."
	}
	return "This trade policy change warrants monitoring for potential impacts on client operations and aviation services."
}

func econSoWhat(item *feed.Item) string {
	var seriesID string
	var value float64
	if item.Econ != nil {
		seriesID = item.Econ.SeriesID
		value = item.Econ.Value
	}

	switch {
	case seriesID == "WJFUELUSGULF":
		if value > 3.00 {
			return "Elevated jet fuel costs require immediate pricing strategy review and fuel hedging assessment to protect margins."
		}
		if value < 2.00 {
			return "Lower jet fuel costs create opportunity for competitive pricing and margin expansion."
		}
		return "Moderate jet fuel costs support current pricing models and operational budgets."
	case seriesID == "DCOILWTICO":
		if value > 90 {
			return "High crude oil prices signal upcoming jet fuel cost pressure - monitor hedging opportunities."
		}
		return "Stable crude oil prices support predictable operational cost structure."
	case seriesID == "DFF":
		if value > 5.0 {
			return "Elevated interest rates increase aircraft financing costs, affecting acquisition timing and lease rate negotiations."
		}
		return "Lower interest rates create favorable environment for aircraft acquisitions and refinancing."
	case seriesID == "DGS10":
		return "Treasury rate movements affect long-term aircraft financing costs and client capital allocation decisions."
	case seriesID == "MORTGAGE30US":
		return "Mortgage rate trends signal real estate sector activity levels, affecting property tour and site visit demand."
	case strings.Contains(seriesID, "CPI") || strings.Contains(seriesID, "PCE"):
		if value > 300 {
			return "Persistent inflation pressures will impact operational costs, requiring dynamic pricing strategies and contract adjustments."
		}
		return "Inflation trends affect operational cost structure and client budget planning for business aviation."
	case strings.Contains(seriesID, "GDP") || seriesID == "A191RL1Q225SBEA":
		return "GDP trends signal overall business activity levels and corporate travel demand across all client sectors."
	case seriesID == "UNRATE":
		if value < 4.0 {
			return "Low unemployment indicates strong economy and high business activity, supporting aviation demand."
		}
		if value > 6.0 {
			return "Rising unemployment may signal reduced corporate travel budgets and discretionary aviation spending."
		}
		return "Employment trends reflect economic health and business aviation demand patterns."
	}
	return "Economic indicator warrants monitoring for potential operational and demand impacts."
}

func narrativeSoWhat(item *feed.Item, sector feed.Sector) string {
	text := strings.ToLower(item.Content)
	category := item.Category

	switch {
	case strings.Contains(category, "economic") || strings.Contains(text, "inflation"):
		switch {
		case strings.Contains(text, "inflation"):
			return "Higher operating costs will impact charter pricing and may require contract adjustments with key clients."
		case strings.Contains(text, "interest rate"):
			return "Aircraft financing costs will adjust, affecting acquisition timing and lease rate negotiations."
		case strings.Contains(text, "gdp") || strings.Contains(text, "growth"):
			return "Market demand shifts expected - strengthen presence in growth regions while monitoring declining markets."
		}
		return "Economic volatility requires dynamic pricing strategies and flexible capacity planning."

	case strings.Contains(category, "sanctions") || strings.Contains(text, "sanctions") || strings.Contains(text, "political"):
		switch {
		case strings.Contains(text, "sanctions"):
			return "Immediate review of client exposure to sanctioned entities and route adjustments may be necessary."
		case strings.Contains(text, "china") || strings.Contains(text, "asia"):
			return "Asia-Pacific travel patterns may shift - coordinate with clients on alternative routing and destinations."
		case strings.Contains(text, "russia") || strings.Contains(text, "ukraine"):
			return "European airspace constraints continue - flight planning complexity increases for transatlantic operations."
		case strings.Contains(text, "middle east"):
			return "Regional security protocols require updating - brief crews and clients on enhanced procedures."
		}
		return "Geopolitical shifts demand proactive client communication and operational contingency planning."

	case strings.Contains(text, "regulation") || strings.Contains(text, "compliance"):
		switch {
		case strings.Contains(text, "europe") || strings.Contains(text, " eu "):
			return "EU regulatory changes require operational procedure updates and potential crew retraining."
		case strings.Contains(text, "faa") || strings.Contains(text, "united states"):
			return "FAA compliance adjustments needed - schedule regulatory review and update SOPs accordingly."
		case strings.Contains(text, "sustainability") || strings.Contains(text, "environmental"):
			return "Environmental compliance costs rising - evaluate SAF adoption timeline and carbon offset strategies."
		}
		return "New compliance requirements necessitate legal review and operational procedure modifications."

	case strings.Contains(text, "aviation") || strings.Contains(text, "aircraft"):
		switch {
		case strings.Contains(text, "fuel") || strings.Contains(text, "saf"):
			return "Fuel strategy requires reassessment - balance cost management with sustainability commitments."
		case strings.Contains(text, "airport") || strings.Contains(text, "fbo"):
			return "Ground services landscape changing - review preferred vendor agreements and service levels."
		case strings.Contains(text, "safety"):
			return "Safety protocols demand immediate attention - convene safety committee and update procedures."
		}
		return "Industry dynamics shifting - competitive positioning and service differentiation become critical."

	case sector == feed.SectorTechnology || strings.Contains(text, "cyber"):
		switch {
		case strings.Contains(text, "restriction") || strings.Contains(text, "export"):
			return "Technology sector clients face new travel constraints - proactive coordination on international itineraries essential."
		case strings.Contains(text, "cyber") || strings.Contains(text, "security"):
			return "Cybersecurity concerns escalating - evaluate onboard connectivity security and client data protection."
		}
		return "Tech industry disruption affects executive travel patterns - maintain flexibility in service offerings."

	case sector == feed.SectorFinance || strings.Contains(text, "market") || strings.Contains(text, "investment"):
		switch {
		case strings.Contains(text, "market volatility") || strings.Contains(text, "stock"):
			return "Market turbulence may compress private aviation budgets - emphasize value proposition to financial clients."
		case strings.Contains(text, "banking"):
			return "Banking sector dynamics shift executive travel priorities - position for relationship-critical trips."
		}
		return "Financial sector developments influence client liquidity - monitor closely for demand signals."

	case strings.Contains(text, "supply chain"):
		return "Parts availability concerns require proactive inventory management and vendor diversification strategies."
	}

	if strings.Contains(category, "security") {
		return "Security posture requires updating - assess threat levels and adjust protocols for affected destinations."
	}
	return "Situation warrants monitoring - prepare contingency plans and maintain client communication readiness."
}

func policyActions(item *feed.Item) []string {
	var ivType string
	if item.Policy != nil {
		ivType = strings.ToLower(item.Policy.InterventionType)
	}

	switch {
	case strings.Contains(ivType, "sanction") || strings.Contains(ivType, "export"):
		return []string{
			"Conduct compliance review for all affected jurisdictions and update routing protocols",
			"Brief affected clients on travel restrictions and alternative routing options",
			"Review client list for exposure to sanctioned entities or regions",
		}
	case strings.Contains(ivType, "tariff"):
		return []string{
			"Monitor for secondary impacts on client business operations and travel demand",
			"Assess potential effects on fuel costs and international operations",
		}
	case strings.Contains(ivType, "capital"):
		return []string{
			"Review payment and billing procedures for affected jurisdictions",
			"Contact clients in affected markets to assess impact on travel budgets",
		}
	case strings.Contains(ivType, "technology"):
		return []string{
			"Proactively reach out to technology sector clients about operational impacts",
			"Monitor for changes in Silicon Valley travel patterns",
		}
	}
	return []string{
		"Monitor situation and prepare briefing materials for affected clients",
		"Update market intelligence briefings with this development",
	}
}

func econActions(item *feed.Item) []string {
	var seriesID string
	if item.Econ != nil {
		seriesID = item.Econ.SeriesID
	}

	switch {
	case seriesID == "WJFUELUSGULF" || seriesID == "DCOILWTICO":
		return []string{
			"Review fuel hedging strategy and pricing models",
			"Update cost projections for charter operations",
			"Brief clients on fuel cost trends affecting pricing",
		}
	case seriesID == "DFF" || seriesID == "DGS10":
		return []string{
			"Assess aircraft financing and refinancing opportunities",
			"Update financial projections for rate environment",
			"Brief finance sector clients on capital cost impacts",
		}
	case seriesID == "MORTGAGE30US":
		return []string{
			"Monitor real estate sector travel demand indicators",
			"Engage real estate clients on property tour scheduling",
		}
	case strings.Contains(seriesID, "CPI") || strings.Contains(seriesID, "PCE"):
		return []string{
			"Review operational cost structure and pricing strategy",
			"Update client contracts to reflect cost environment",
		}
	case seriesID == "A191RL1Q225SBEA":
		return []string{
			"Adjust demand forecasts based on economic growth trends",
			"Review capacity planning for projected activity levels",
		}
	case seriesID == "UNRATE" || seriesID == "PAYEMS":
		return []string{
			"Monitor corporate travel budget trends",
			"Adjust marketing strategy for economic environment",
		}
	}
	return []string{
		"Monitor economic indicator for operational impacts",
		"Brief relevant client sectors on trend implications",
	}
}

func narrativeActions(item *feed.Item) []string {
	text := strings.ToLower(item.Content)
	var actions []string

	if containsAny(text, "sanction", "restriction", "ban") {
		actions = append(actions,
			"Conduct immediate review of affected routes and file alternative flight plans",
			"Audit client list for exposure to sanctioned entities or regions",
		)
	}
	if containsAny(text, "fuel", "oil price", "energy cost", "saf") {
		actions = append(actions,
			"Revise fuel hedging strategy with finance team by end of quarter",
			"Update client proposals to reflect current fuel cost projections",
		)
	}
	if containsAny(text, "regulation", "compliance", "faa", "easa") {
		actions = append(actions,
			"Schedule regulatory compliance meeting with operations and legal teams",
			"Update crew training modules to incorporate new regulatory requirements",
		)
	}
	if containsAny(text, "safety", "security", "risk") {
		actions = append(actions,
			"Convene safety committee to assess threat and update protocols",
			"Brief flight crews on enhanced security procedures for affected regions",
		)
	}

	for _, sector := range item.Sectors {
		switch sector {
		case feed.SectorTechnology:
			if containsAny(text, "export", "restriction") {
				actions = append(actions, "Proactively contact technology sector clients to discuss international travel implications")
			} else if strings.Contains(text, "cyber") {
				actions = append(actions, "Review and enhance cybersecurity protocols for technology executive flights")
			} else {
				actions = append(actions, "Prepare briefing for technology sector clients on industry-specific developments")
			}
		case feed.SectorFinance:
			if containsAny(text, "market", "volatility") {
				actions = append(actions, "Monitor financial sector client booking patterns for early demand signals")
			} else {
				actions = append(actions, "Schedule check-ins with financial sector clients to discuss market impact on travel needs")
			}
		}
	}

	if len(actions) == 0 {
		actions = append(actions,
			"Monitor situation and prepare briefing materials for affected clients",
			"Update market intelligence briefings with this development",
		)
	}

	return dedupeStrings(actions)
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func dedupeStrings(items []string) []string {
	seen := make(map[string]bool, len(items))
	unique := items[:0]
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			unique = append(unique, item)
		}
	}
	return unique
}

func joinFirst(items []string, n int) string {
	if len(items) > n {
		items = items[:n]
	}
	return strings.Join(items, ", ")
}
