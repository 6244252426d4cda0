package sources

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solairus-intel/feed-engine/internal/feed"
)

func narrativeResponse(t *testing.T, templateID, category, text string) RawResponse {
	t.Helper()
	body, err := json.Marshal(narrativePayload{
		Prompt:     "test prompt",
		Response:   text,
		Confidence: 0.8,
	})
	require.NoError(t, err)

	return RawResponse{
		TemplateID: templateID,
		Category:   category,
		Source:     feed.SourceNarrative,
		Confidence: 0.8,
		Body:       body,
	}
}

func TestNarrativeNormalize_NumberedList(t *testing.T) {
	adapter := NewNarrativeAdapter(nil)
	now := time.Now()

	response := "Key developments this month:\n" +
		"1. New airspace restrictions over the eastern corridor have forced carriers to reroute long-haul flights, adding fuel costs and crew duty time for international operators.\n" +
		"2. Sanctions on spare parts suppliers have disrupted maintenance schedules for operators with aircraft registered in affected jurisdictions, raising compliance risk.\n" +
		"3. Too short.\n"

	items, skipped := adapter.Normalize([]RawResponse{
		narrativeResponse(t, "tmpl-a", "aviation_security", response),
	}, now)

	require.Len(t, items, 2)
	assert.Equal(t, 0, skipped)

	for _, item := range items {
		assert.NotEmpty(t, item.ID)
		assert.NotEmpty(t, item.Title)
		assert.Equal(t, "aviation_security", item.Category)
		assert.Equal(t, feed.SourceNarrative, item.SourceType)
		assert.Equal(t, now, item.ReportedAt)
		assert.Greater(t, item.Relevance, 0.0)
		assert.GreaterOrEqual(t, item.Confidence, 0.7)
		require.Len(t, item.Sources, 1)
		assert.Equal(t, feed.SourceRef{Name: "narrative", ExternalID: "tmpl-a"}, item.Sources[0])
	}
}

func TestNarrativeNormalize_MalformedPayloadCounted(t *testing.T) {
	adapter := NewNarrativeAdapter(nil)

	items, skipped := adapter.Normalize([]RawResponse{
		{TemplateID: "bad", Source: feed.SourceNarrative, Body: []byte("{not json")},
	}, time.Now())

	assert.Empty(t, items)
	assert.Equal(t, 1, skipped)
}

func TestNarrativeNormalize_ShortSectionsSkipped(t *testing.T) {
	adapter := NewNarrativeAdapter(nil)

	items, skipped := adapter.Normalize([]RawResponse{
		narrativeResponse(t, "tmpl-b", "regional", "Nothing substantial."),
	}, time.Now())

	assert.Empty(t, items)
	assert.Equal(t, 1, skipped)
}

func TestSplitSections(t *testing.T) {
	long := func(prefix string) string {
		return prefix + " followed by enough explanatory detail about operations, routing, and compliance that this clears the minimum section length comfortably for the splitter."
	}

	tests := []struct {
		name     string
		response string
		count    int
	}{
		{
			name:     "numbered list",
			response: "Intro\n1. " + long("First finding") + "\n2. " + long("Second finding"),
			count:    2,
		},
		{
			name:     "dashed bullets",
			response: "Summary\n- " + long("First bullet") + "\n- " + long("Second bullet") + "\n- " + long("Third bullet"),
			count:    3,
		},
		{
			name:     "paragraph breaks",
			response: long("First paragraph") + "\n\n" + long("Second paragraph") + "\n\n" + long("Third paragraph"),
			count:    3,
		},
		{
			name:     "unstructured text stays whole",
			response: long("One continuous block of prose"),
			count:    1,
		},
		{
			name:     "all fragments too short falls back to whole response",
			response: "A\n1. short\n2. also short",
			count:    1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Len(t, splitSections(tc.response), tc.count)
		})
	}
}

func TestCleanNarrativeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "whitespace collapsed",
			input:    "Multiple   spaces\nand newlines   here",
			expected: "Multiple spaces and newlines here",
		},
		{
			name:     "hedging sentence removed",
			input:    "Fuel costs rose sharply. Analysis has not identified further impacts. Operators adjusted routes",
			expected: "Fuel costs rose sharply. Operators adjusted routes",
		},
		{
			name:     "fully hedged text becomes empty",
			input:    "There is no evidence of disruption",
			expected: "",
		},
		{
			name:     "sentence starts capitalized",
			input:    "the market shifted. operators responded",
			expected: "The market shifted. Operators responded",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, cleanNarrativeText(tc.input))
		})
	}
}

func TestSectionTitle(t *testing.T) {
	assert.Equal(t, "Short headline", sectionTitle("Short headline. With a longer body after it."))

	long := "A very long opening stretch of text that never terminates with a sentence boundary and keeps going well past the point where a title would be readable in any feed view"
	title := sectionTitle(long)
	assert.LessOrEqual(t, len(title), 120)
	assert.NotEmpty(t, title)
}

func TestNarrativeConfidence(t *testing.T) {
	short := "Brief note with digits 42 inside, padded out to pass the minimum useful length for a narrative section of the feed."
	c := narrativeConfidence(short)
	// 0.7 base + 0.1 digits + 0.1 mid-length.
	assert.InDelta(t, 0.9, c, 1e-9)

	bare := "No numbers here"
	assert.InDelta(t, 0.7, narrativeConfidence(bare), 1e-9)
}

func TestBaseRelevance(t *testing.T) {
	aviationHeavy := "New aviation rules affect aircraft operators at every major airport, with airline and flight crews facing fresh risk from sanctions and disruption to business travel."
	generic := "The committee met on Tuesday and approved the minutes of the previous session without changes."

	assert.Greater(t, baseRelevance(aviationHeavy), baseRelevance(generic))
	assert.LessOrEqual(t, baseRelevance(aviationHeavy), 1.0)
	assert.GreaterOrEqual(t, baseRelevance(generic), 0.0)
}
