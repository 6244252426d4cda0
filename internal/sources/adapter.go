package sources

import (
	"context"
	"time"

	"github.com/solairus-intel/feed-engine/internal/feed"
)

// RawResponse is one query variant's payload, JSON-encoded so the
// orchestrator can cache it without knowing the source's shape.
type RawResponse struct {
	TemplateID string          `json:"template_id"`
	Category   string          `json:"category"`
	Source     feed.SourceType `json:"source"`
	Variant    int             `json:"variant"`
	Confidence float64         `json:"confidence"`
	Body       []byte          `json:"body"`
}

// Adapter is the closed capability contract over the three source variants.
// Callers never branch on the concrete type, only on the source tag of the
// items it produces.
type Adapter interface {
	Source() feed.SourceType

	// Fetch executes one query variant: 0 is the base prompt, higher
	// indexes are follow-ups. Transient failures wrap
	// feed.ErrTransientSource so the orchestrator retries them.
	Fetch(ctx context.Context, tmpl feed.QueryTemplate, variant int) (*RawResponse, error)

	// Normalize converts raw payloads into items, applying the freshness
	// filter and per-record skip counting. Returns the items and the
	// number of records skipped.
	Normalize(responses []RawResponse, runTime time.Time) ([]feed.Item, int)
}
