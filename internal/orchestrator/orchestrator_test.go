package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solairus-intel/feed-engine/internal/cache"
	"github.com/solairus-intel/feed-engine/internal/feed"
	"github.com/solairus-intel/feed-engine/internal/sources"
	"github.com/solairus-intel/feed-engine/pkg/config"
)

type fakeAdapter struct {
	source feed.SourceType

	mu         sync.Mutex
	calls      map[string]int
	inFlight   int
	maxSeen    int
	confidence float64
	// failures maps "templateID:variant" to how many times the fetch
	// should fail with a transient error before succeeding. -1 fails
	// forever.
	failures map[string]int
	delay    time.Duration
}

func newFakeAdapter(source feed.SourceType) *fakeAdapter {
	return &fakeAdapter{
		source:     source,
		calls:      make(map[string]int),
		failures:   make(map[string]int),
		confidence: 0.9,
	}
}

func (f *fakeAdapter) Source() feed.SourceType { return f.source }

func (f *fakeAdapter) Fetch(ctx context.Context, tmpl feed.QueryTemplate, variant int) (*sources.RawResponse, error) {
	key := fmt.Sprintf("%s:%d", tmpl.ID, variant)

	f.mu.Lock()
	f.calls[key]++
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	remaining := f.failures[key]
	if remaining > 0 {
		f.failures[key] = remaining - 1
	}
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if remaining != 0 {
		return nil, fmt.Errorf("%w: upstream 503", feed.ErrTransientSource)
	}

	body, _ := json.Marshal(map[string]string{"prompt": tmpl.Prompt})
	return &sources.RawResponse{
		TemplateID: tmpl.ID,
		Category:   tmpl.Category,
		Source:     f.source,
		Variant:    variant,
		Confidence: f.confidence,
		Body:       body,
	}, nil
}

func (f *fakeAdapter) Normalize(responses []sources.RawResponse, runTime time.Time) ([]feed.Item, int) {
	return nil, 0
}

func (f *fakeAdapter) callCount(templateID string, variant int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[fmt.Sprintf("%s:%d", templateID, variant)]
}

func testRunConfig() config.RunConfig {
	return config.RunConfig{
		ConcurrencyCap:   3,
		ReducedTopN:      5,
		DeadlineSec:      600,
		RetryMaxAttempts: 3,
		RetryBaseDelayMS: 10,
		RetryMaxDelayMS:  100,
	}
}

func testTemplates(n int) []feed.QueryTemplate {
	templates := make([]feed.QueryTemplate, n)
	for i := range templates {
		templates[i] = feed.QueryTemplate{
			ID:       fmt.Sprintf("tmpl-%02d", i),
			Category: fmt.Sprintf("category-%02d", i),
			Source:   feed.SourceNarrative,
			Prompt:   fmt.Sprintf("prompt %d", i),
			Priority: 5,
		}
	}
	return templates
}

func TestExecute_AllSucceed(t *testing.T) {
	adapter := newFakeAdapter(feed.SourceNarrative)
	orch := New(map[feed.SourceType]sources.Adapter{feed.SourceNarrative: adapter}, cache.NewMemory(), testRunConfig())

	templates := testTemplates(5)
	result := orch.Execute(context.Background(), templates, 2, ModeFull)

	require.Len(t, result.Categories, 5)
	for _, tmpl := range templates {
		cr := result.Categories[tmpl.Category]
		require.NotNil(t, cr)
		assert.True(t, cr.Success)
		assert.Equal(t, 1, cr.Attempts)
		assert.Len(t, cr.Responses, 1)
		assert.Equal(t, StateSuccess, result.States[tmpl.ID+":0"])
	}
	assert.Equal(t, 0, result.CacheHits)
	assert.Equal(t, 5, result.CacheMisses)
}

func TestExecute_RetryThenSucceed(t *testing.T) {
	adapter := newFakeAdapter(feed.SourceNarrative)
	adapter.failures["tmpl-02:0"] = 2

	orch := New(map[feed.SourceType]sources.Adapter{feed.SourceNarrative: adapter}, cache.NewMemory(), testRunConfig())

	start := time.Now()
	result := orch.Execute(context.Background(), testTemplates(5), 2, ModeFull)
	elapsed := time.Since(start)

	cr := result.Categories["category-02"]
	require.NotNil(t, cr)
	assert.True(t, cr.Success)
	assert.Equal(t, 3, cr.Attempts)
	assert.Equal(t, StateSuccess, result.States["tmpl-02:0"])

	// Two backoff sleeps: base and base*2.
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
}

func TestExecute_RetryExhaustionDegradesCategory(t *testing.T) {
	adapter := newFakeAdapter(feed.SourceNarrative)
	adapter.failures["tmpl-01:0"] = -1

	orch := New(map[feed.SourceType]sources.Adapter{feed.SourceNarrative: adapter}, cache.NewMemory(), testRunConfig())

	result := orch.Execute(context.Background(), testTemplates(3), 2, ModeFull)

	failed := result.Categories["category-01"]
	require.NotNil(t, failed)
	assert.False(t, failed.Success)
	assert.Equal(t, 3, failed.Attempts)
	assert.Empty(t, failed.Responses)
	assert.Equal(t, StateFailed, result.States["tmpl-01:0"])

	// The other categories are unaffected.
	assert.True(t, result.Categories["category-00"].Success)
	assert.True(t, result.Categories["category-02"].Success)
}

func TestExecute_ConcurrencyCap(t *testing.T) {
	adapter := newFakeAdapter(feed.SourceNarrative)
	adapter.delay = 20 * time.Millisecond

	orch := New(map[feed.SourceType]sources.Adapter{feed.SourceNarrative: adapter}, cache.NewMemory(), testRunConfig())

	orch.Execute(context.Background(), testTemplates(8), 2, ModeFull)

	adapter.mu.Lock()
	maxSeen := adapter.maxSeen
	adapter.mu.Unlock()
	assert.LessOrEqual(t, maxSeen, 2)
}

func TestExecute_PriorityOrderStable(t *testing.T) {
	adapter := newFakeAdapter(feed.SourceNarrative)

	var mu sync.Mutex
	var startedOrder []string
	wrapped := &orderRecordingAdapter{inner: adapter, mu: &mu, order: &startedOrder}

	templates := []feed.QueryTemplate{
		{ID: "low-a", Category: "a", Source: feed.SourceNarrative, Priority: 3},
		{ID: "high", Category: "b", Source: feed.SourceNarrative, Priority: 9},
		{ID: "low-b", Category: "c", Source: feed.SourceNarrative, Priority: 3},
		{ID: "mid", Category: "d", Source: feed.SourceNarrative, Priority: 6},
	}

	orch := New(map[feed.SourceType]sources.Adapter{feed.SourceNarrative: wrapped}, cache.NewMemory(), testRunConfig())
	orch.Execute(context.Background(), templates, 1, ModeFull)

	// Serial execution (cap 1) surfaces dispatch order directly. Equal
	// priorities keep their input order.
	require.Len(t, startedOrder, 4)
	assert.Equal(t, []string{"high", "mid", "low-a", "low-b"}, startedOrder)
}

type orderRecordingAdapter struct {
	inner *fakeAdapter
	mu    *sync.Mutex
	order *[]string
}

func (a *orderRecordingAdapter) Source() feed.SourceType { return a.inner.Source() }

func (a *orderRecordingAdapter) Fetch(ctx context.Context, tmpl feed.QueryTemplate, variant int) (*sources.RawResponse, error) {
	a.mu.Lock()
	*a.order = append(*a.order, tmpl.ID)
	a.mu.Unlock()
	return a.inner.Fetch(ctx, tmpl, variant)
}

func (a *orderRecordingAdapter) Normalize(responses []sources.RawResponse, runTime time.Time) ([]feed.Item, int) {
	return a.inner.Normalize(responses, runTime)
}

func TestExecute_ReducedModeKeepsTopN(t *testing.T) {
	adapter := newFakeAdapter(feed.SourceNarrative)

	templates := testTemplates(10)
	for i := range templates {
		templates[i].Priority = 10 - i
	}

	cfg := testRunConfig()
	cfg.ReducedTopN = 4
	orch := New(map[feed.SourceType]sources.Adapter{feed.SourceNarrative: adapter}, cache.NewMemory(), cfg)

	result := orch.Execute(context.Background(), templates, 3, ModeReduced)

	assert.Len(t, result.Categories, 4)
	for i := 0; i < 4; i++ {
		assert.Contains(t, result.Categories, fmt.Sprintf("category-%02d", i))
	}
	assert.Equal(t, 0, adapter.callCount("tmpl-09", 0))
}

func TestExecute_FollowUpsAfterConfidentBase(t *testing.T) {
	adapter := newFakeAdapter(feed.SourceNarrative)
	adapter.confidence = 0.8

	tmpl := feed.QueryTemplate{
		ID:        "with-followups",
		Category:  "followups",
		Source:    feed.SourceNarrative,
		Priority:  5,
		FollowUps: []string{"first", "second", "third"},
	}

	orch := New(map[feed.SourceType]sources.Adapter{feed.SourceNarrative: adapter}, cache.NewMemory(), testRunConfig())
	result := orch.Execute(context.Background(), []feed.QueryTemplate{tmpl}, 2, ModeFull)

	cr := result.Categories["followups"]
	require.NotNil(t, cr)
	assert.True(t, cr.Success)

	// Base plus at most two follow-ups; the third is never dispatched.
	assert.Len(t, cr.Responses, 3)
	assert.Equal(t, 1, adapter.callCount("with-followups", 1))
	assert.Equal(t, 1, adapter.callCount("with-followups", 2))
	assert.Equal(t, 0, adapter.callCount("with-followups", 3))
}

func TestExecute_NoFollowUpsOnWeakBase(t *testing.T) {
	adapter := newFakeAdapter(feed.SourceNarrative)
	adapter.confidence = 0.5

	tmpl := feed.QueryTemplate{
		ID:        "weak-base",
		Category:  "weak",
		Source:    feed.SourceNarrative,
		Priority:  5,
		FollowUps: []string{"first"},
	}

	orch := New(map[feed.SourceType]sources.Adapter{feed.SourceNarrative: adapter}, cache.NewMemory(), testRunConfig())
	result := orch.Execute(context.Background(), []feed.QueryTemplate{tmpl}, 2, ModeFull)

	cr := result.Categories["weak"]
	require.NotNil(t, cr)
	assert.True(t, cr.Success)
	assert.Len(t, cr.Responses, 1)
	assert.Equal(t, 0, adapter.callCount("weak-base", 1))
}

func TestExecute_FollowUpFailureDoesNotDegrade(t *testing.T) {
	adapter := newFakeAdapter(feed.SourceNarrative)
	adapter.failures["resilient:1"] = -1

	tmpl := feed.QueryTemplate{
		ID:        "resilient",
		Category:  "resilient",
		Source:    feed.SourceNarrative,
		Priority:  5,
		FollowUps: []string{"first", "second"},
	}

	orch := New(map[feed.SourceType]sources.Adapter{feed.SourceNarrative: adapter}, cache.NewMemory(), testRunConfig())
	result := orch.Execute(context.Background(), []feed.QueryTemplate{tmpl}, 2, ModeFull)

	cr := result.Categories["resilient"]
	require.NotNil(t, cr)
	assert.True(t, cr.Success)
	assert.Len(t, cr.Responses, 2)
	assert.Equal(t, StateFailed, result.States["resilient:1"])
	assert.Equal(t, StateSuccess, result.States["resilient:2"])
}

func TestExecute_CacheHitSkipsDispatch(t *testing.T) {
	adapter := newFakeAdapter(feed.SourceNarrative)
	sharedCache := cache.NewMemory()

	templates := testTemplates(3)
	cfg := testRunConfig()

	first := New(map[feed.SourceType]sources.Adapter{feed.SourceNarrative: adapter}, sharedCache, cfg)
	firstResult := first.Execute(context.Background(), templates, 2, ModeFull)
	require.Equal(t, 3, firstResult.CacheMisses)

	second := New(map[feed.SourceType]sources.Adapter{feed.SourceNarrative: adapter}, sharedCache, cfg)
	secondResult := second.Execute(context.Background(), templates, 2, ModeFull)

	assert.Equal(t, 3, secondResult.CacheHits)
	assert.Equal(t, 0, secondResult.CacheMisses)

	for _, tmpl := range templates {
		// One fetch from the first batch, none from the second.
		assert.Equal(t, 1, adapter.callCount(tmpl.ID, 0))

		cr := secondResult.Categories[tmpl.Category]
		require.NotNil(t, cr)
		assert.True(t, cr.Success)
		assert.Equal(t, 0, cr.Attempts)
		assert.Len(t, cr.Responses, 1)
	}
}

func TestExecute_CacheKeyIncludesMode(t *testing.T) {
	adapter := newFakeAdapter(feed.SourceNarrative)
	sharedCache := cache.NewMemory()

	templates := testTemplates(2)
	cfg := testRunConfig()

	New(map[feed.SourceType]sources.Adapter{feed.SourceNarrative: adapter}, sharedCache, cfg).
		Execute(context.Background(), templates, 2, ModeFull)

	result := New(map[feed.SourceType]sources.Adapter{feed.SourceNarrative: adapter}, sharedCache, cfg).
		Execute(context.Background(), templates, 2, ModeReduced)

	// Different mode, different fingerprint: nothing is served from cache.
	assert.Equal(t, 0, result.CacheHits)
	assert.Equal(t, 2, adapter.callCount("tmpl-00", 0))
}

func TestExecute_MissingAdapterFailsCategory(t *testing.T) {
	adapter := newFakeAdapter(feed.SourceNarrative)

	templates := []feed.QueryTemplate{
		{ID: "narr", Category: "narrative_cat", Source: feed.SourceNarrative, Priority: 5},
		{ID: "pol", Category: "policy_cat", Source: feed.SourcePolicyEvent, Priority: 5},
	}

	orch := New(map[feed.SourceType]sources.Adapter{feed.SourceNarrative: adapter}, cache.NewMemory(), testRunConfig())
	result := orch.Execute(context.Background(), templates, 2, ModeFull)

	assert.True(t, result.Categories["narrative_cat"].Success)
	assert.False(t, result.Categories["policy_cat"].Success)
	assert.Equal(t, StateFailed, result.States["pol:0"])
}

func TestExecute_ContextCancellation(t *testing.T) {
	adapter := newFakeAdapter(feed.SourceNarrative)
	adapter.delay = 50 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()

	orch := New(map[feed.SourceType]sources.Adapter{feed.SourceNarrative: adapter}, cache.NewMemory(), testRunConfig())
	result := orch.Execute(ctx, testTemplates(6), 1, ModeFull)

	// The batch still returns a complete result; late templates fail
	// instead of hanging.
	require.NotNil(t, result)
	failed := 0
	for _, cr := range result.Categories {
		if !cr.Success {
			failed++
		}
	}
	assert.Greater(t, failed, 0)
}

func TestResponsesBySource(t *testing.T) {
	b := &BatchResult{
		Categories: map[string]*CategoryResult{
			"a": {Category: "a", Responses: []sources.RawResponse{
				{TemplateID: "t1", Source: feed.SourceNarrative},
				{TemplateID: "t1", Source: feed.SourceNarrative, Variant: 1},
			}},
			"b": {Category: "b", Responses: []sources.RawResponse{
				{TemplateID: "t2", Source: feed.SourcePolicyEvent},
			}},
		},
	}

	grouped := b.ResponsesBySource()

	assert.Len(t, grouped[feed.SourceNarrative], 2)
	assert.Len(t, grouped[feed.SourcePolicyEvent], 1)
}
