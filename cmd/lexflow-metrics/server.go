// Package metricsserver is a tiny fiber-based observability endpoint over a
// running engine's metrics collector. It is consumed as a library by
// cmd/lexflow when invoked with --metrics-addr, not run as its own binary:
// the metrics it serves only exist inside the runner process, so there is
// nothing for a standalone process to attach to. It lives under its own
// cmd/ directory (rather than pkg/) to keep that optional, HTTP-facing
// surface visibly separate from the core runner.
package metricsserver

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lemonberrylabs/lexflow/pkg/runtime"
)

// New builds a fiber.App serving GET /healthz (always 200 once the process
// is up) and GET /metrics (a JSON snapshot of m, safe to poll mid-run since
// ExecutionMetrics.Snapshot is mutex-guarded).
func New(m *runtime.ExecutionMetrics) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/metrics", func(c *fiber.Ctx) error {
		body, err := m.ToJSON()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(body)
	})

	return app
}
