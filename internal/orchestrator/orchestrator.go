package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/solairus-intel/feed-engine/internal/cache"
	"github.com/solairus-intel/feed-engine/internal/feed"
	"github.com/solairus-intel/feed-engine/internal/sources"
	"github.com/solairus-intel/feed-engine/pkg/config"
	"github.com/solairus-intel/feed-engine/pkg/logger"
	"github.com/solairus-intel/feed-engine/pkg/retry"
	"github.com/solairus-intel/feed-engine/pkg/utils"
)

type Mode string

const (
	ModeFull    Mode = "full"
	ModeReduced Mode = "reduced"
)

type QueryState string

const (
	StatePending  QueryState = "PENDING"
	StateInFlight QueryState = "IN_FLIGHT"
	StateRetrying QueryState = "RETRYING"
	StateSuccess  QueryState = "SUCCESS"
	StateFailed   QueryState = "FAILED"
)

// Follow-ups are capped per template to keep a chatty source from eating the
// whole concurrency budget.
const maxFollowUps = 2

// followUpConfidenceFloor gates follow-up prompts on the quality of the base
// response; a weak base answer makes follow-ups a waste of budget.
const followUpConfidenceFloor = 0.6

type CategoryResult struct {
	Category  string
	Responses []sources.RawResponse
	Success   bool
	Attempts  int
}

type BatchResult struct {
	Categories  map[string]*CategoryResult
	States      map[string]QueryState
	CacheHits   int
	CacheMisses int
}

// Orchestrator schedules queries against the source adapters with bounded
// concurrency, per-query retry with exponential backoff, and a run-scoped
// response cache. A failed category never aborts the batch.
type Orchestrator struct {
	adapters map[feed.SourceType]sources.Adapter
	cache    cache.Cache
	cfg      config.RunConfig

	mu     sync.Mutex
	result *BatchResult
}

func New(adapters map[feed.SourceType]sources.Adapter, responseCache cache.Cache, cfg config.RunConfig) *Orchestrator {
	return &Orchestrator{
		adapters: adapters,
		cache:    responseCache,
		cfg:      cfg,
	}
}

// Execute dispatches templates in descending priority order, preserving input
// order within equal priority. mode=reduced keeps only the top-N templates by
// priority. The context carries the run deadline: on expiry, in-flight
// queries fail but completed results are kept.
func (o *Orchestrator) Execute(ctx context.Context, templates []feed.QueryTemplate, concurrencyCap int, mode Mode) *BatchResult {
	ordered := make([]feed.QueryTemplate, len(templates))
	copy(ordered, templates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	if mode == ModeReduced && len(ordered) > o.cfg.ReducedTopN {
		ordered = ordered[:o.cfg.ReducedTopN]
	}

	if concurrencyCap < 1 {
		concurrencyCap = 1
	}

	o.mu.Lock()
	o.result = &BatchResult{
		Categories: make(map[string]*CategoryResult),
		States:     make(map[string]QueryState),
	}
	for _, tmpl := range ordered {
		o.result.States[queryKey(tmpl.ID, 0)] = StatePending
	}
	o.mu.Unlock()

	logger.Info("Starting query batch",
		zap.Int("templates", len(ordered)),
		zap.Int("concurrency_cap", concurrencyCap),
		zap.String("mode", string(mode)),
	)

	// A fixed worker pool fed in sorted order keeps dispatch
	// priority-stable: higher-priority templates always reach a worker
	// first.
	work := make(chan feed.QueryTemplate)
	var wg sync.WaitGroup

	for i := 0; i < concurrencyCap; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tmpl := range work {
				o.executeTemplate(ctx, tmpl, mode)
			}
		}()
	}

	for _, tmpl := range ordered {
		work <- tmpl
	}
	close(work)
	wg.Wait()

	o.mu.Lock()
	result := o.result
	o.mu.Unlock()

	logger.Info("Query batch complete",
		zap.Int("categories", len(result.Categories)),
		zap.Int("cache_hits", result.CacheHits),
		zap.Int("cache_misses", result.CacheMisses),
	)

	return result
}

func (o *Orchestrator) executeTemplate(ctx context.Context, tmpl feed.QueryTemplate, mode Mode) {
	adapter, ok := o.adapters[tmpl.Source]
	if !ok {
		logger.Error("No adapter for source type",
			zap.String("template_id", tmpl.ID),
			zap.String("source", string(tmpl.Source)),
		)
		o.recordOutcome(tmpl.Category, nil, false, 0)
		o.setState(tmpl.ID, 0, StateFailed)
		return
	}

	resp, attempts, err := o.executeQuery(ctx, adapter, tmpl, 0, mode)
	if err != nil {
		logger.Warn("Category degraded",
			zap.String("template_id", tmpl.ID),
			zap.String("category", tmpl.Category),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		o.recordOutcome(tmpl.Category, nil, false, attempts)
		return
	}

	responses := []sources.RawResponse{*resp}
	totalAttempts := attempts

	// Follow-ups run only after a confident base response, and their
	// failures never degrade the category.
	if len(tmpl.FollowUps) > 0 && resp.Confidence > followUpConfidenceFloor {
		followUps := len(tmpl.FollowUps)
		if followUps > maxFollowUps {
			followUps = maxFollowUps
		}

		for variant := 1; variant <= followUps; variant++ {
			fresp, fattempts, ferr := o.executeQuery(ctx, adapter, tmpl, variant, mode)
			totalAttempts += fattempts
			if ferr != nil {
				logger.Debug("Follow-up failed",
					zap.String("template_id", tmpl.ID),
					zap.Int("variant", variant),
					zap.Error(ferr),
				)
				continue
			}
			responses = append(responses, *fresp)
		}
	}

	o.recordOutcome(tmpl.Category, responses, true, totalAttempts)
}

func (o *Orchestrator) executeQuery(ctx context.Context, adapter sources.Adapter, tmpl feed.QueryTemplate, variant int, mode Mode) (*sources.RawResponse, int, error) {
	fingerprint := utils.Fingerprint(tmpl.ID, strconv.Itoa(variant), string(mode))

	if cached, hit, err := o.cache.Get(ctx, fingerprint); err == nil && hit {
		var resp sources.RawResponse
		if err := json.Unmarshal(cached, &resp); err == nil {
			o.mu.Lock()
			o.result.CacheHits++
			o.mu.Unlock()
			o.setState(tmpl.ID, variant, StateSuccess)

			logger.Debug("Query served from cache",
				zap.String("template_id", tmpl.ID),
				zap.Int("variant", variant),
			)
			return &resp, 0, nil
		}
	}

	o.mu.Lock()
	o.result.CacheMisses++
	o.mu.Unlock()

	select {
	case <-ctx.Done():
		o.setState(tmpl.ID, variant, StateFailed)
		return nil, 0, fmt.Errorf("%w: %v", feed.ErrSourceUnavailable, ctx.Err())
	default:
	}

	attempts := 0
	var resp *sources.RawResponse

	retryCfg := retry.Config{
		MaxAttempts:     o.cfg.RetryMaxAttempts,
		InitialDelay:    time.Duration(o.cfg.RetryBaseDelayMS) * time.Millisecond,
		MaxDelay:        time.Duration(o.cfg.RetryMaxDelayMS) * time.Millisecond,
		Multiplier:      2.0,
		RetryableErrors: []error{feed.ErrTransientSource},
		OnRetry: func(attempt int, err error) {
			o.setState(tmpl.ID, variant, StateRetrying)
		},
		Logger: logger.GetLogger(),
	}

	err := retry.Do(ctx, retryCfg, func() error {
		attempts++
		o.setState(tmpl.ID, variant, StateInFlight)

		r, err := adapter.Fetch(ctx, tmpl, variant)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})

	if err != nil {
		o.setState(tmpl.ID, variant, StateFailed)
		return nil, attempts, fmt.Errorf("%w: %v", feed.ErrSourceUnavailable, err)
	}

	o.setState(tmpl.ID, variant, StateSuccess)

	if data, err := json.Marshal(resp); err == nil {
		if err := o.cache.Set(ctx, fingerprint, data); err != nil {
			logger.Warn("Failed to cache response",
				zap.String("template_id", tmpl.ID),
				zap.Error(err),
			)
		}
	}

	return resp, attempts, nil
}

func (o *Orchestrator) recordOutcome(category string, responses []sources.RawResponse, success bool, attempts int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	cr, ok := o.result.Categories[category]
	if !ok {
		cr = &CategoryResult{Category: category}
		o.result.Categories[category] = cr
	}

	cr.Responses = append(cr.Responses, responses...)
	cr.Success = cr.Success || success
	cr.Attempts += attempts
}

func (o *Orchestrator) setState(templateID string, variant int, state QueryState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.result.States[queryKey(templateID, variant)] = state
}

func queryKey(templateID string, variant int) string {
	return fmt.Sprintf("%s:%d", templateID, variant)
}

// ResponsesBySource regroups all successful responses by their source type
// for adapter normalization.
func (b *BatchResult) ResponsesBySource() map[feed.SourceType][]sources.RawResponse {
	grouped := make(map[feed.SourceType][]sources.RawResponse)
	for _, cr := range b.Categories {
		for _, resp := range cr.Responses {
			grouped[resp.Source] = append(grouped[resp.Source], resp)
		}
	}
	return grouped
}
