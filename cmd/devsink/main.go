// devsink is a local debug ingestion endpoint: it accepts storytrace
// batch ingestion requests and logs every event instead of storing it.
// Point the demo CLI at it to inspect what the harness actually emits.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/storytrace/storytrace-go/internal/config"
	"github.com/storytrace/storytrace-go/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "devsink: load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		fmt.Fprintf(os.Stderr, "devsink: init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	app := fiber.New(fiber.Config{
		AppName:               "storytrace-devsink",
		DisableStartupMessage: true,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Post("/api/public/ingestion", handleIngestion)

	addr := fmt.Sprintf("%s:%d", cfg.Sink.Host, cfg.Sink.Port)
	logger.Log.Info("devsink listening", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		logger.Log.Fatal("devsink stopped", zap.Error(err))
	}
}

// handleIngestion accepts a storytrace ingestion batch and logs each
// event. Events are acknowledged individually, mirroring the hosted
// endpoint's response shape, but nothing is persisted.
func handleIngestion(c *fiber.Ctx) error {
	var request struct {
		Batch []json.RawMessage `json:"batch"`
	}
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Invalid request body: " + err.Error(),
		})
	}
	if len(request.Batch) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Batch is empty",
		})
	}

	successes := make([]string, 0, len(request.Batch))
	failures := make([]fiber.Map, 0)

	for _, item := range request.Batch {
		var ev struct {
			Type string         `json:"type"`
			Body map[string]any `json:"body"`
		}
		if err := json.Unmarshal(item, &ev); err != nil {
			failures = append(failures, fiber.Map{
				"status":  fiber.StatusBadRequest,
				"message": "Invalid JSON: " + err.Error(),
			})
			continue
		}

		id, _ := ev.Body["id"].(string)
		name, _ := ev.Body["name"].(string)
		traceID, _ := ev.Body["traceId"].(string)

		logger.Log.Info("event",
			zap.String("type", ev.Type),
			zap.String("id", id),
			zap.String("name", name),
			zap.String("trace_id", traceID),
			zap.Any("body", ev.Body),
		)
		successes = append(successes, id)
	}

	return c.JSON(fiber.Map{
		"successes": successes,
		"errors":    failures,
	})
}
