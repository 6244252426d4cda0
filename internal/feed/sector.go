package feed

type Sector string

const (
	SectorTechnology    Sector = "technology"
	SectorFinance       Sector = "finance"
	SectorRealEstate    Sector = "real_estate"
	SectorEntertainment Sector = "entertainment"
	SectorEnergy        Sector = "energy"
	SectorHealthcare    Sector = "healthcare"
	SectorGeneral       Sector = "general"
)

func AllSectors() []Sector {
	return []Sector{
		SectorTechnology,
		SectorFinance,
		SectorRealEstate,
		SectorEntertainment,
		SectorEnergy,
		SectorHealthcare,
		SectorGeneral,
	}
}

func ValidSector(s string) bool {
	for _, sec := range AllSectors() {
		if string(sec) == s {
			return true
		}
	}
	return false
}

// SectorProfile drives sector classification: plain keyword matches count
// once, trigger-term matches count double, and entity matches apply to
// structured policy records.
type SectorProfile struct {
	Keywords []string
	Triggers []string
	Entities []string
}

type Taxonomy map[Sector]SectorProfile

func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		SectorTechnology: {
			Keywords: []string{
				"technology", "silicon valley", "semiconductor", "ai", "cyber",
				"software", "cloud", "digital", "innovation", "startup",
				"chips", "data processing", "telecommunications",
			},
			Triggers: []string{
				"us-china", "export controls", "data sovereignty", "chips act",
				"technology transfer", "intellectual property", "sanctions",
			},
			Entities: []string{"United States", "China", "Taiwan", "South Korea", "Netherlands"},
		},
		SectorFinance: {
			Keywords: []string{
				"financial", "investment", "private equity", "capital markets",
				"interest rates", "inflation", "banking", "credit", "currency",
				"m&a", "ipo", "valuation", "securities", "monetary",
			},
			Triggers: []string{
				"central bank", "federal reserve", "ecb", "monetary policy",
				"basel", "financial regulation", "capital controls", "sovereign debt",
			},
			Entities: []string{"United States", "United Kingdom", "Switzerland", "Singapore"},
		},
		SectorRealEstate: {
			Keywords: []string{
				"real estate", "construction", "property", "development",
				"infrastructure", "urban", "commercial", "residential", "reit",
				"cement", "steel", "housing",
			},
			Triggers: []string{
				"zoning", "housing policy", "infrastructure spending",
				"construction costs", "supply chain", "materials", "labor",
			},
			Entities: []string{"United States", "Canada", "Mexico"},
		},
		SectorEntertainment: {
			Keywords: []string{
				"entertainment", "media", "sports", "content", "streaming",
				"production", "talent", "broadcasting", "gaming", "film",
			},
			Triggers: []string{
				"content regulation", "censorship", "cultural policy",
				"international co-production", "talent mobility", "visa",
			},
			Entities: []string{"United States", "France", "India"},
		},
		SectorEnergy: {
			Keywords: []string{
				"energy", "oil", "gas", "renewable", "solar", "wind",
				"petroleum", "electricity", "power", "utilities", "carbon",
				"crude oil", "natural gas", "kerosene",
			},
			Triggers: []string{
				"opec", "energy security", "pipeline", "sanctions", "climate",
				"paris agreement", "energy transition", "grid", "lng",
			},
			Entities: []string{"Saudi Arabia", "Russia", "United States", "Qatar", "Norway"},
		},
		SectorHealthcare: {
			Keywords: []string{
				"healthcare", "pharmaceutical", "medical", "biotech",
				"clinical", "hospital", "health policy", "drugs", "medicine",
			},
			Triggers: []string{
				"fda", "drug pricing", "healthcare regulation", "pandemic",
				"medical supply chain",
			},
			Entities: []string{"United States", "Switzerland", "Ireland", "India"},
		},
		SectorGeneral: {},
	}
}
