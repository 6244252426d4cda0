package merger

import (
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/solairus-intel/feed-engine/internal/feed"
	"github.com/solairus-intel/feed-engine/pkg/logger"
	"github.com/solairus-intel/feed-engine/pkg/utils"
)

// fingerprintPrefix bounds how much normalized text feeds the dedup hash so
// trailing boilerplate cannot split near-duplicates.
const fingerprintPrefix = 200

type Config struct {
	// Windows gives the freshness window per source type; decay runs from
	// 1.0 at age zero down to DecayFloor at the window edge.
	Windows        map[feed.SourceType]time.Duration
	DecayFloor     float64
	ScoreThreshold float64
	SourceWeights  map[feed.SourceType]float64
}

type Stats struct {
	TotalItems       int
	DuplicatesMerged int
	BelowThreshold   int
	ItemsBySector    map[feed.Sector]int
	AvgRelevance     float64
	AvgConfidence    float64
}

// Merger combines all adapters' normalized items into one deduplicated,
// scored, sector-classified, deterministically ordered feed. The output is
// invariant under any permutation of the inputs.
type Merger struct {
	cfg      Config
	taxonomy feed.Taxonomy
}

func New(cfg Config, taxonomy feed.Taxonomy) *Merger {
	return &Merger{cfg: cfg, taxonomy: taxonomy}
}

func (m *Merger) Merge(itemLists [][]feed.Item, runTime time.Time) ([]feed.Item, Stats) {
	stats := Stats{ItemsBySector: make(map[feed.Sector]int)}

	var working []feed.Item
	for _, list := range itemLists {
		working = append(working, list...)
	}

	for i := range working {
		working[i].CompositeScore = m.compositeScore(&working[i], runTime)
	}

	deduped, merged := m.deduplicate(working)
	stats.DuplicatesMerged = merged

	kept := deduped[:0]
	for _, item := range deduped {
		if item.CompositeScore < m.cfg.ScoreThreshold {
			stats.BelowThreshold++
			continue
		}
		kept = append(kept, item)
	}

	for i := range kept {
		kept[i].Sectors = m.classifySectors(&kept[i])
	}

	sort.Slice(kept, func(i, j int) bool {
		return less(&kept[i], &kept[j])
	})

	stats.TotalItems = len(kept)
	for _, item := range kept {
		if len(item.Sectors) == 0 {
			stats.ItemsBySector[feed.SectorGeneral]++
			continue
		}
		for _, s := range item.Sectors {
			stats.ItemsBySector[s]++
		}
	}
	if len(kept) > 0 {
		var sumRel, sumConf float64
		for _, item := range kept {
			sumRel += item.Relevance
			sumConf += item.Confidence
		}
		stats.AvgRelevance = sumRel / float64(len(kept))
		stats.AvgConfidence = sumConf / float64(len(kept))
	}

	logger.Info("Merge complete",
		zap.Int("items", stats.TotalItems),
		zap.Int("duplicates_merged", stats.DuplicatesMerged),
		zap.Int("below_threshold", stats.BelowThreshold),
	)

	return kept, stats
}

func (m *Merger) compositeScore(item *feed.Item, runTime time.Time) float64 {
	return item.Relevance * item.Confidence * m.freshnessDecay(item, runTime) * m.sourceWeight(item.SourceType)
}

// freshnessDecay falls linearly from 1.0 at age zero to the configured floor
// at the window edge. Items exactly at the edge get the floor, not zero.
func (m *Merger) freshnessDecay(item *feed.Item, runTime time.Time) float64 {
	window := m.cfg.Windows[item.SourceType]
	if window <= 0 {
		return 1.0
	}

	age := runTime.Sub(item.ReportedAt)
	if age <= 0 {
		return 1.0
	}

	frac := float64(age) / float64(window)
	if frac >= 1.0 {
		return m.cfg.DecayFloor
	}

	return 1.0 - (1.0-m.cfg.DecayFloor)*frac
}

func (m *Merger) sourceWeight(s feed.SourceType) float64 {
	if w, ok := m.cfg.SourceWeights[s]; ok && w > 0 {
		return w
	}
	return 1.0
}

// deduplicate collapses items sharing a content fingerprint. The candidate
// with the highest composite score wins and absorbs the attribution of the
// rest. Candidates are folded in a deterministic order so the result does not
// depend on arrival order.
func (m *Merger) deduplicate(items []feed.Item) ([]feed.Item, int) {
	groups := make(map[string][]feed.Item)
	var order []string

	for _, item := range items {
		fp := Fingerprint(&item)
		if _, ok := groups[fp]; !ok {
			order = append(order, fp)
		}
		groups[fp] = append(groups[fp], item)
	}

	sort.Strings(order)

	merged := 0
	result := make([]feed.Item, 0, len(order))

	for _, fp := range order {
		group := groups[fp]
		sort.Slice(group, func(i, j int) bool {
			return less(&group[i], &group[j])
		})

		winner := group[0]
		for _, loser := range group[1:] {
			winner.Sources = mergeSources(winner.Sources, loser.Sources)
			merged++
		}
		result = append(result, winner)
	}

	return result, merged
}

// Fingerprint identifies near-duplicate content: a case-folded hash of a
// fixed prefix of title plus content.
func Fingerprint(item *feed.Item) string {
	normalized := utils.Normalize(item.Title + " " + item.Content)
	if len(normalized) > fingerprintPrefix {
		normalized = normalized[:fingerprintPrefix]
	}
	return utils.Fingerprint(normalized)
}

func mergeSources(into, from []feed.SourceRef) []feed.SourceRef {
	seen := make(map[feed.SourceRef]bool, len(into))
	for _, ref := range into {
		seen[ref] = true
	}
	for _, ref := range from {
		if !seen[ref] {
			into = append(into, ref)
			seen[ref] = true
		}
	}
	return into
}

// classifySectors evaluates the taxonomy rule set: keyword matches count
// once, trigger terms double, and entity overlap applies to structured policy
// records. A sector needs a rule score of at least 2 to match.
func (m *Merger) classifySectors(item *feed.Item) []feed.Sector {
	text := strings.ToLower(item.Title + " " + item.Content)

	var entities []string
	if item.Policy != nil {
		entities = append(entities, item.Policy.ImplementingEntities...)
		entities = append(entities, item.Policy.AffectedEntities...)
	}

	var matched []feed.Sector
	for _, sector := range feed.AllSectors() {
		if sector == feed.SectorGeneral {
			continue
		}

		profile := m.taxonomy[sector]
		score := 0

		for _, kw := range profile.Keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				score++
			}
		}
		for _, trigger := range profile.Triggers {
			if strings.Contains(text, strings.ToLower(trigger)) {
				score += 2
			}
		}
		for _, entity := range entities {
			for _, known := range profile.Entities {
				if strings.EqualFold(entity, known) {
					score += 2
				}
			}
		}

		if score >= 2 {
			matched = append(matched, sector)
		}
	}

	return matched
}

// less is the canonical feed ordering: composite score descending, then
// structured sources before narrative, then item ID.
func less(a, b *feed.Item) bool {
	if a.CompositeScore != b.CompositeScore {
		return a.CompositeScore > b.CompositeScore
	}
	if ra, rb := a.SourceType.TiebreakRank(), b.SourceType.TiebreakRank(); ra != rb {
		return ra < rb
	}
	return a.ID < b.ID
}
