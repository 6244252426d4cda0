package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solairus-intel/feed-engine/internal/feed"
	"github.com/solairus-intel/feed-engine/internal/storage/models"
)

func testClient(t *testing.T) *Client {
	t.Helper()

	client, err := NewClient(filepath.Join(t.TempDir(), "feed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.InitSchema())
	return client
}

func testRecord(id string, completedAt time.Time) *models.RunRecord {
	metrics := feed.NewRunQualityMetrics()
	metrics.Categories["aviation_security"] = feed.CategoryOutcome{Success: true, Attempts: 1, Responses: 3}
	metrics.Categories["fuel_markets"] = feed.CategoryOutcome{Success: false, Attempts: 3}
	metrics.DegradedCategories = []string{"fuel_markets"}
	metrics.TotalItems = 1

	return &models.RunRecord{
		ID:          id,
		Mode:        "full",
		StartedAt:   completedAt.Add(-2 * time.Minute),
		CompletedAt: completedAt,
		Degraded:    true,
		Items: []feed.Item{
			{
				ID:             "item-1",
				Title:          "Airspace restrictions expand",
				Content:        "Several corridors closed to civil traffic.",
				Category:       "aviation_security",
				SourceType:     feed.SourceNarrative,
				Relevance:      0.8,
				Confidence:     0.9,
				ReportedAt:     completedAt.Add(-time.Hour),
				Sectors:        []feed.Sector{feed.SectorTechnology},
				Sources:        []feed.SourceRef{{Name: "narrative", ExternalID: "tmpl-1"}},
				SoWhat:         "Routing complexity increases.",
				ActionItems:    []string{"Review affected routes"},
				CompositeScore: 0.648,
			},
		},
		Metrics: metrics,
	}
}

func TestInsertAndGetLatestRun(t *testing.T) {
	client := testClient(t)

	record := testRecord("run-1", time.Now().Truncate(time.Second))
	require.NoError(t, client.InsertRun(record))

	got, err := client.GetLatestRun()
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, record.Mode, got.Mode)
	assert.True(t, got.Degraded)
	assert.Equal(t, record.StartedAt.Unix(), got.StartedAt.Unix())
	assert.Equal(t, record.CompletedAt.Unix(), got.CompletedAt.Unix())

	require.Len(t, got.Items, 1)
	item := got.Items[0]
	assert.Equal(t, "item-1", item.ID)
	assert.Equal(t, feed.SourceNarrative, item.SourceType)
	assert.Equal(t, []feed.Sector{feed.SectorTechnology}, item.Sectors)
	assert.InDelta(t, 0.648, item.CompositeScore, 1e-9)

	require.NotNil(t, got.Metrics)
	assert.Equal(t, []string{"fuel_markets"}, got.Metrics.DegradedCategories)
	assert.True(t, got.Metrics.Categories["aviation_security"].Success)
}

func TestGetLatestRun_Empty(t *testing.T) {
	client := testClient(t)

	got, err := client.GetLatestRun()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetLatestRun_PicksNewest(t *testing.T) {
	client := testClient(t)

	base := time.Now().Truncate(time.Second)
	require.NoError(t, client.InsertRun(testRecord("run-old", base.Add(-time.Hour))))
	require.NoError(t, client.InsertRun(testRecord("run-new", base)))

	got, err := client.GetLatestRun()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "run-new", got.ID)
}

func TestGetRunCategories(t *testing.T) {
	client := testClient(t)

	require.NoError(t, client.InsertRun(testRecord("run-1", time.Now())))

	categories, err := client.GetRunCategories("run-1")
	require.NoError(t, err)
	require.Len(t, categories, 2)

	// Ordered by category name.
	assert.Equal(t, "aviation_security", categories[0].Category)
	assert.True(t, categories[0].Success)
	assert.Equal(t, 3, categories[0].Responses)
	assert.Equal(t, "fuel_markets", categories[1].Category)
	assert.False(t, categories[1].Success)
	assert.Equal(t, 3, categories[1].Attempts)
}
