package models

import (
	"time"

	"github.com/solairus-intel/feed-engine/internal/feed"
)

type RunRecord struct {
	ID          string                  `json:"id"`
	Mode        string                  `json:"mode"`
	StartedAt   time.Time               `json:"started_at"`
	CompletedAt time.Time               `json:"completed_at"`
	Degraded    bool                    `json:"degraded"`
	Items       []feed.Item             `json:"items"`
	Metrics     *feed.RunQualityMetrics `json:"metrics"`
}

type CategoryRecord struct {
	RunID     string `json:"run_id"`
	Category  string `json:"category"`
	Success   bool   `json:"success"`
	Attempts  int    `json:"attempts"`
	Responses int    `json:"responses"`
}
