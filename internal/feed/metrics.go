package feed

type CategoryOutcome struct {
	Success   bool `json:"success"`
	Attempts  int  `json:"attempts"`
	Responses int  `json:"responses"`
}

// RunQualityMetrics summarizes one generation run. Built incrementally by the
// orchestrator and merger, read-only once the merge completes.
type RunQualityMetrics struct {
	Categories         map[string]CategoryOutcome `json:"categories"`
	ItemsBySource      map[SourceType]int         `json:"items_by_source"`
	SkipsBySource      map[SourceType]int         `json:"skips_by_source"`
	ItemsBySector      map[Sector]int             `json:"items_by_sector"`
	TotalItems         int                        `json:"total_items"`
	DuplicatesMerged   int                        `json:"duplicates_merged"`
	BelowThreshold     int                        `json:"below_threshold"`
	AvgRelevance       float64                    `json:"avg_relevance"`
	AvgConfidence      float64                    `json:"avg_confidence"`
	DegradedCategories []string                   `json:"degraded_categories,omitempty"`
}

func NewRunQualityMetrics() *RunQualityMetrics {
	return &RunQualityMetrics{
		Categories:    make(map[string]CategoryOutcome),
		ItemsBySource: make(map[SourceType]int),
		SkipsBySource: make(map[SourceType]int),
		ItemsBySector: make(map[Sector]int),
	}
}

// Degraded reports whether any category completed without a single success.
func (m *RunQualityMetrics) Degraded() bool {
	return len(m.DegradedCategories) > 0
}
