package relationship

import (
	"go-glidesync/internal/common/api"
	"go-glidesync/internal/config"
	"go-glidesync/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type RelationshipApi struct {
	controller *RelationshipController
	config     *config.Config
}

func NewRelationshipApi(controller *RelationshipController, config *config.Config) api.Route {
	return &RelationshipApi{
		controller: controller,
		config:     config,
	}
}

// Setup registers all relationship routes
func (h *RelationshipApi) Setup(app *fiber.App) {
	group := app.Group("/api/relationships", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Post("/map", h.controller.MapAllRelationships)
	group.Get("/validate", h.controller.ValidateRelationships)
	group.Get("/candidates", h.controller.ListCandidates)
}
