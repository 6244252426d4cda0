package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/solairus-intel/feed-engine/internal/feed"
	"github.com/solairus-intel/feed-engine/internal/storage/models"
	"github.com/solairus-intel/feed-engine/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		completed_at INTEGER NOT NULL,
		degraded INTEGER DEFAULT 0,
		total_items INTEGER DEFAULT 0,
		items_json TEXT,
		metrics_json TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_completed ON runs(completed_at);

	CREATE TABLE IF NOT EXISTS run_categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		category TEXT NOT NULL,
		success INTEGER NOT NULL,
		attempts INTEGER NOT NULL,
		responses INTEGER NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_run_categories_run ON run_categories(run_id);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertRun(record *models.RunRecord) error {
	itemsJSON, err := json.Marshal(record.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal items: %w", err)
	}

	metricsJSON, err := json.Marshal(record.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	degraded := 0
	if record.Degraded {
		degraded = 1
	}

	query := `
		INSERT INTO runs (id, mode, started_at, completed_at, degraded, total_items, items_json, metrics_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = c.db.Exec(
		query,
		record.ID,
		record.Mode,
		record.StartedAt.Unix(),
		record.CompletedAt.Unix(),
		degraded,
		len(record.Items),
		string(itemsJSON),
		string(metricsJSON),
	)

	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if record.Metrics != nil {
		for category, outcome := range record.Metrics.Categories {
			if err := c.insertCategory(record.ID, category, outcome); err != nil {
				return err
			}
		}
	}

	logger.Info("Run recorded",
		zap.String("run_id", record.ID),
		zap.String("mode", record.Mode),
		zap.Int("items", len(record.Items)),
		zap.Bool("degraded", record.Degraded),
	)

	return nil
}

func (c *Client) insertCategory(runID, category string, outcome feed.CategoryOutcome) error {
	success := 0
	if outcome.Success {
		success = 1
	}

	query := `INSERT INTO run_categories (run_id, category, success, attempts, responses) VALUES (?, ?, ?, ?, ?)`

	_, err := c.db.Exec(query, runID, category, success, outcome.Attempts, outcome.Responses)
	if err != nil {
		return fmt.Errorf("failed to insert run category: %w", err)
	}
	return nil
}

func (c *Client) GetLatestRun() (*models.RunRecord, error) {
	query := `
		SELECT id, mode, started_at, completed_at, degraded, items_json, metrics_json
		FROM runs
		ORDER BY completed_at DESC, id DESC
		LIMIT 1
	`

	var record models.RunRecord
	var startedAt, completedAt int64
	var degraded int
	var itemsJSON, metricsJSON string

	err := c.db.QueryRow(query).Scan(
		&record.ID,
		&record.Mode,
		&startedAt,
		&completedAt,
		&degraded,
		&itemsJSON,
		&metricsJSON,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	record.StartedAt = time.Unix(startedAt, 0)
	record.CompletedAt = time.Unix(completedAt, 0)
	record.Degraded = degraded != 0

	if err := json.Unmarshal([]byte(itemsJSON), &record.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal items: %w", err)
	}
	if err := json.Unmarshal([]byte(metricsJSON), &record.Metrics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
	}

	return &record, nil
}

func (c *Client) GetRunCategories(runID string) ([]models.CategoryRecord, error) {
	query := `SELECT run_id, category, success, attempts, responses FROM run_categories WHERE run_id = ? ORDER BY category`

	rows, err := c.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run categories: %w", err)
	}
	defer rows.Close()

	var records []models.CategoryRecord
	for rows.Next() {
		var r models.CategoryRecord
		var success int

		err := rows.Scan(&r.RunID, &r.Category, &success, &r.Attempts, &r.Responses)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.Success = success != 0
		records = append(records, r)
	}

	return records, nil
}
