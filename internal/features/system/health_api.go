package system

import (
	"go-glidesync/internal/common/api"
	"go-glidesync/internal/database"

	"github.com/gofiber/fiber/v2"
)

type HealthApi struct {
	mongo    *database.MongodbDB
	postgres *database.PostgresDB
}

func NewHealthApi(mongo *database.MongodbDB, postgres *database.PostgresDB) api.Route {
	return &HealthApi{
		mongo:    mongo,
		postgres: postgres,
	}
}

// Setup registers the health probe
func (h *HealthApi) Setup(app *fiber.App) {
	app.Get("/api/health", func(c *fiber.Ctx) error {
		status := fiber.StatusOK
		checks := fiber.Map{"config_store": "up", "destination": "up"}

		if err := h.mongo.DB.Client().Ping(c.Context(), nil); err != nil {
			checks["config_store"] = "down"
			status = fiber.StatusServiceUnavailable
		}
		if err := h.postgres.DB.PingContext(c.Context()); err != nil {
			checks["destination"] = "down"
			status = fiber.StatusServiceUnavailable
		}

		return c.Status(status).JSON(checks)
	})
}
