package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/solairus-intel/feed-engine/internal/feed"
	"github.com/solairus-intel/feed-engine/internal/orchestrator"
	"github.com/solairus-intel/feed-engine/internal/runner"
	"github.com/solairus-intel/feed-engine/pkg/logger"
)

type RunHandler struct {
	runner *runner.Runner
}

func NewRunHandler(r *runner.Runner) *RunHandler {
	return &RunHandler{
		runner: r,
	}
}

func (h *RunHandler) TriggerRun(c *fiber.Ctx) error {
	var req struct {
		Mode string `json:"mode"`
	}

	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	mode := orchestrator.ModeFull
	switch req.Mode {
	case "", string(orchestrator.ModeFull):
	case string(orchestrator.ModeReduced):
		mode = orchestrator.ModeReduced
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Mode must be 'full' or 'reduced'",
		})
	}

	record, err := h.runner.Run(c.Context(), mode)
	if err != nil {
		if errors.Is(err, runner.ErrRunInProgress) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "A run is already in progress",
			})
		}
		logger.Error("Feed run failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Feed run failed",
		})
	}

	return c.JSON(record)
}

func (h *RunHandler) GetLatestRun(c *fiber.Ctx) error {
	record, err := h.runner.Latest()
	if err != nil {
		logger.Error("Failed to load latest run", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load latest run",
		})
	}

	if record == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No runs recorded yet",
		})
	}

	return c.JSON(record)
}

func (h *RunHandler) GetSectorFeed(c *fiber.Ctx) error {
	sector := feed.Sector(c.Params("sector"))
	if !feed.ValidSector(c.Params("sector")) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown sector",
		})
	}

	record, err := h.runner.Latest()
	if err != nil {
		logger.Error("Failed to load latest run", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load latest run",
		})
	}

	if record == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No runs recorded yet",
		})
	}

	items := make([]feed.Item, 0)
	for _, item := range record.Items {
		if item.InSector(sector) {
			items = append(items, item)
		}
	}

	return c.JSON(fiber.Map{
		"run_id": record.ID,
		"sector": sector,
		"items":  items,
	})
}
