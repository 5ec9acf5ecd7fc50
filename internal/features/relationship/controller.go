package relationship

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

type RelationshipController struct {
	Service RelationshipService
}

func NewRelationshipController(service RelationshipService) *RelationshipController {
	return &RelationshipController{
		Service: service,
	}
}

// MapAllRelationships godoc
// @Summary      Resolve pending relationship candidates
// @Description  Bulk pass over pending rowid_* references, optionally scoped to one target table
// @Tags         relationships
// @Produce      json
// @Param        table query string false "Target table filter"
// @Success      200 {object} MappingSummary
// @Router       /api/relationships/map [post]
func (ctrl *RelationshipController) MapAllRelationships(c *fiber.Ctx) error {
	summary, err := ctrl.Service.MapAllRelationships(c.Context(), c.Query("table"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(summary)
}

// ValidateRelationships godoc
// @Summary      Check whether pending relationships can resolve
// @Description  Flags target tables that currently have no rows at all
// @Tags         relationships
// @Produce      json
// @Success      200 {array} TableCheck
// @Router       /api/relationships/validate [get]
func (ctrl *RelationshipController) ValidateRelationships(c *fiber.Ctx) error {
	checks, err := ctrl.Service.ValidateRelationships(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": checks,
	})
}

// ListCandidates godoc
// @Summary      List relationship candidates
// @Tags         relationships
// @Produce      json
// @Param        status query string false "Filter by status (pending, resolved, failed)"
// @Param        limit  query int    false "Max candidates to return"
// @Success      200 {array} Candidate
// @Router       /api/relationships/candidates [get]
func (ctrl *RelationshipController) ListCandidates(c *fiber.Ctx) error {
	limit, _ := strconv.ParseInt(c.Query("limit", "100"), 10, 64)

	candidates, err := ctrl.Service.ListCandidates(c.Context(), c.Query("status"), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": candidates,
	})
}
