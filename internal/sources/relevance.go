package sources

import (
	"strings"

	prose "github.com/jdkato/prose/v2"
)

var relevanceKeywords = map[string][]string{
	"aviation_direct": {
		"aviation", "aircraft", "flight", "pilot", "airline", "airport",
		"faa", "easa", "icao", "air travel", "business jet", "fbo",
	},
	"aviation_indirect": {
		"travel", "mobility", "transportation", "logistics", "customs",
		"visa", "border", "immigration", "security", "fuel prices",
	},
	"business_impact": {
		"corporate", "executive", "business travel", "global business",
		"international", "cross-border", "multinational", "supply chain",
	},
	"risk_indicators": {
		"risk", "threat", "instability", "conflict", "sanctions", "crisis",
		"disruption", "uncertainty", "volatility", "tension",
	},
	"opportunity_indicators": {
		"growth", "expansion", "opportunity", "emerging", "recovery",
		"improvement", "investment", "development", "innovation",
	},
}

// baseRelevance scores topical fit on [0,1]. Single-word keywords are matched
// against the tokenized text so substrings inside unrelated words do not
// count; phrases fall back to substring search.
func baseRelevance(text string) float64 {
	lower := strings.ToLower(text)
	tokens := tokenSet(lower)

	count := func(keywords []string) int {
		n := 0
		for _, kw := range keywords {
			if strings.Contains(kw, " ") {
				if strings.Contains(lower, kw) {
					n++
				}
			} else if tokens[kw] {
				n++
			}
		}
		return n
	}

	score := 0.0
	score += capped(float64(count(relevanceKeywords["aviation_direct"]))*0.15, 0.4)
	score += capped(float64(count(relevanceKeywords["aviation_indirect"]))*0.1, 0.2)
	score += capped(float64(count(relevanceKeywords["business_impact"]))*0.08, 0.2)

	riskOpp := count(relevanceKeywords["risk_indicators"]) + count(relevanceKeywords["opportunity_indicators"])
	score += capped(float64(riskOpp)*0.05, 0.2)

	return capped(score, 1.0)
}

func tokenSet(lower string) map[string]bool {
	set := make(map[string]bool)

	doc, err := prose.NewDocument(lower, prose.WithExtraction(false), prose.WithTagging(false))
	if err != nil {
		for _, f := range strings.Fields(lower) {
			set[strings.Trim(f, ".,;:!?()\"'")] = true
		}
		return set
	}

	for _, tok := range doc.Tokens() {
		set[tok.Text] = true
	}
	return set
}

func capped(v, max float64) float64 {
	if v > max {
		return max
	}
	return v
}
