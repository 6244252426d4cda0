package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/solairus-intel/feed-engine/internal/cache"
	"github.com/solairus-intel/feed-engine/internal/feed"
	"github.com/solairus-intel/feed-engine/internal/merger"
	"github.com/solairus-intel/feed-engine/internal/metrics"
	"github.com/solairus-intel/feed-engine/internal/orchestrator"
	"github.com/solairus-intel/feed-engine/internal/sources"
	"github.com/solairus-intel/feed-engine/internal/storage/models"
	"github.com/solairus-intel/feed-engine/internal/storage/sqlite"
	"github.com/solairus-intel/feed-engine/internal/synthesizer"
	"github.com/solairus-intel/feed-engine/pkg/config"
	"github.com/solairus-intel/feed-engine/pkg/logger"
)

// ErrRunInProgress is returned when a run is requested while another one is
// still executing. Runs are serialized; the caller should retry later.
var ErrRunInProgress = errors.New("a feed run is already in progress")

// Runner drives one complete feed generation: dispatch, normalization, merge,
// synthesis, and persistence.
type Runner struct {
	cfg      *config.Config
	adapters map[feed.SourceType]sources.Adapter
	synth    synthesizer.Synthesizer
	store    *sqlite.Client

	mu      sync.Mutex
	running bool
}

func New(cfg *config.Config, adapters map[feed.SourceType]sources.Adapter, synth synthesizer.Synthesizer, store *sqlite.Client) *Runner {
	return &Runner{
		cfg:      cfg,
		adapters: adapters,
		synth:    synth,
		store:    store,
	}
}

// Run executes one feed generation in the given mode and persists the result.
// Only one run may execute at a time.
func (r *Runner) Run(ctx context.Context, mode orchestrator.Mode) (*models.RunRecord, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrRunInProgress
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	runID := uuid.NewString()
	startedAt := time.Now()

	logger.Info("Starting feed run",
		zap.String("run_id", runID),
		zap.String("mode", string(mode)),
	)

	deadline := time.Duration(r.cfg.Run.DeadlineSec) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	responseCache := r.buildCache(runID, deadline)
	defer responseCache.Close()

	templates := feed.DefaultTemplates(startedAt)

	orch := orchestrator.New(r.adapters, responseCache, r.cfg.Run)
	batch := orch.Execute(runCtx, templates, r.cfg.Run.ConcurrencyCap, mode)

	quality := feed.NewRunQualityMetrics()
	for category, result := range batch.Categories {
		quality.Categories[category] = feed.CategoryOutcome{
			Success:   result.Success,
			Attempts:  result.Attempts,
			Responses: len(result.Responses),
		}
		if !result.Success {
			quality.DegradedCategories = append(quality.DegradedCategories, category)
		}
	}
	sort.Strings(quality.DegradedCategories)

	bySource := batch.ResponsesBySource()
	itemLists := make([][]feed.Item, 0, len(r.adapters))
	for src, adapter := range r.adapters {
		items, skips := adapter.Normalize(bySource[src], startedAt)
		quality.ItemsBySource[src] = len(items)
		quality.SkipsBySource[src] = skips
		itemLists = append(itemLists, items)

		metrics.ItemsBySource.WithLabelValues(string(src)).Set(float64(len(items)))
		metrics.SkipsBySource.WithLabelValues(string(src)).Add(float64(skips))
	}

	m := merger.New(r.mergeConfig(), feed.DefaultTaxonomy())
	items, stats := m.Merge(itemLists, startedAt)

	quality.TotalItems = stats.TotalItems
	quality.DuplicatesMerged = stats.DuplicatesMerged
	quality.BelowThreshold = stats.BelowThreshold
	quality.ItemsBySector = stats.ItemsBySector
	quality.AvgRelevance = stats.AvgRelevance
	quality.AvgConfidence = stats.AvgConfidence

	r.synthesize(runCtx, items)

	record := &models.RunRecord{
		ID:          runID,
		Mode:        string(mode),
		StartedAt:   startedAt,
		CompletedAt: time.Now(),
		Degraded:    quality.Degraded(),
		Items:       items,
		Metrics:     quality,
	}

	if err := r.store.InsertRun(record); err != nil {
		return nil, fmt.Errorf("failed to persist run: %w", err)
	}

	r.publishMetrics(record, batch)

	logger.Info("Feed run completed",
		zap.String("run_id", runID),
		zap.Int("items", len(items)),
		zap.Int("duplicates_merged", stats.DuplicatesMerged),
		zap.Int("below_threshold", stats.BelowThreshold),
		zap.Bool("degraded", record.Degraded),
		zap.Duration("elapsed", record.CompletedAt.Sub(startedAt)),
	)

	return record, nil
}

// Latest returns the most recently completed run, or nil when none exists.
func (r *Runner) Latest() (*models.RunRecord, error) {
	return r.store.GetLatestRun()
}

func (r *Runner) buildCache(runID string, ttl time.Duration) cache.Cache {
	if !r.cfg.Redis.Enabled {
		return cache.NewMemory()
	}

	redisCache, err := cache.NewRedis(
		r.cfg.Redis.Host,
		r.cfg.Redis.Port,
		r.cfg.Redis.Password,
		r.cfg.Redis.DB,
		runID,
		ttl,
	)
	if err != nil {
		logger.Warn("Redis unavailable, falling back to in-memory cache", zap.Error(err))
		return cache.NewMemory()
	}

	return redisCache
}

func (r *Runner) mergeConfig() merger.Config {
	day := 24 * time.Hour
	return merger.Config{
		Windows: map[feed.SourceType]time.Duration{
			feed.SourceNarrative:         time.Duration(r.cfg.Run.FreshnessDays) * day,
			feed.SourcePolicyEvent:       time.Duration(r.cfg.Policy.LookbackDays) * day,
			feed.SourceEconomicIndicator: time.Duration(r.cfg.Econ.LookbackDays) * day,
		},
		DecayFloor:     r.cfg.Run.DecayFloor,
		ScoreThreshold: r.cfg.Run.ScoreThreshold,
		SourceWeights: map[feed.SourceType]float64{
			feed.SourceNarrative:         r.cfg.Run.NarrativeWeight,
			feed.SourcePolicyEvent:       r.cfg.Run.PolicyWeight,
			feed.SourceEconomicIndicator: r.cfg.Run.EconWeight,
		},
	}
}

func (r *Runner) synthesize(ctx context.Context, items []feed.Item) {
	for i := range items {
		sector := feed.SectorGeneral
		if len(items[i].Sectors) > 0 {
			sector = items[i].Sectors[0]
		}
		items[i].SoWhat = r.synth.Synthesize(ctx, &items[i], sector)
		items[i].ActionItems = r.synth.ActionItems(&items[i])
	}
}

func (r *Runner) publishMetrics(record *models.RunRecord, batch *orchestrator.BatchResult) {
	mode := record.Mode

	metrics.RunDuration.WithLabelValues(mode).Observe(record.CompletedAt.Sub(record.StartedAt).Seconds())
	if record.Degraded {
		metrics.RunTotal.WithLabelValues(mode, "degraded").Inc()
		metrics.DegradedRuns.Inc()
	} else {
		metrics.RunTotal.WithLabelValues(mode, "success").Inc()
	}

	cacheType := "memory"
	if r.cfg.Redis.Enabled {
		cacheType = "redis"
	}
	metrics.CacheHits.WithLabelValues(cacheType).Add(float64(batch.CacheHits))
	metrics.CacheMisses.WithLabelValues(cacheType).Add(float64(batch.CacheMisses))

	for category, outcome := range record.Metrics.Categories {
		value := 0.0
		if outcome.Success {
			value = 1.0
		}
		metrics.CategorySuccess.WithLabelValues(category).Set(value)
	}

	for _, result := range batch.Categories {
		metrics.QueryAttempts.WithLabelValues(result.Category).Add(float64(result.Attempts))
	}

	for sector, count := range record.Metrics.ItemsBySector {
		metrics.ItemsBySector.WithLabelValues(string(sector)).Set(float64(count))
	}

	metrics.DuplicatesMerged.Add(float64(record.Metrics.DuplicatesMerged))
	metrics.BelowThreshold.Add(float64(record.Metrics.BelowThreshold))

	for _, item := range record.Items {
		metrics.CompositeScore.Observe(item.CompositeScore)
	}
}
