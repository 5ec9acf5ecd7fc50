package sync

import (
	"context"
	"time"

	"go-glidesync/internal/common/api"
	"go-glidesync/internal/config"
	"go-glidesync/internal/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type SyncApi struct {
	controller *SyncController
	service    SyncService
	config     *config.Config
}

func NewSyncApi(controller *SyncController, service SyncService, config *config.Config) api.Route {
	return &SyncApi{
		controller: controller,
		service:    service,
		config:     config,
	}
}

// Setup registers all sync routes
func (h *SyncApi) Setup(app *fiber.App) {
	group := app.Group("/api/sync", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Post("/mappings/:id/run", h.controller.RunSync)
	group.Post("/mappings/:id/retry", h.controller.RetryFailedSync)
	group.Get("/mappings/:id/runs", h.controller.ListRuns)
	group.Get("/mappings/:id/errors", h.controller.ListErrors)
	group.Get("/mappings/:id/errors/export", h.controller.ExportErrors)
	group.Get("/runs/:id", h.controller.GetRun)
	group.Post("/runs/:id/cancel", h.controller.CancelRun)
	group.Post("/errors/:id/resolve", h.controller.ResolveError)

	// run progress stream, pushed until the run reaches a terminal state
	ws := app.Group("/api/sync/runs/:id/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	ws.Get("/", websocket.New(h.streamRunProgress))
}

func (h *SyncApi) streamRunProgress(conn *websocket.Conn) {
	defer conn.Close()

	runID := conn.Params("id")
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		run, err := h.service.GetRun(ctx, runID)
		cancel()
		if err != nil {
			_ = conn.WriteJSON(fiber.Map{"error": err.Error()})
			return
		}

		if err := conn.WriteJSON(run); err != nil {
			return
		}
		if run.Terminal() {
			return
		}
	}
}
