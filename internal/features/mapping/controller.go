package mapping

import (
	"github.com/gofiber/fiber/v2"
)

type MappingController struct {
	Service MappingService
}

func NewMappingController(service MappingService) *MappingController {
	return &MappingController{
		Service: service,
	}
}

// CreateMapping godoc
// @Summary      Create a table mapping
// @Description  Bind a Glide table to a destination table; validated before persistence
// @Tags         mappings
// @Accept       json
// @Produce      json
// @Param        input body Mapping true "Mapping Data"
// @Success      201 {object} map[string]interface{}
// @Router       /api/mappings [post]
func (ctrl *MappingController) CreateMapping(c *fiber.Ctx) error {
	var m Mapping
	if err := c.BodyParser(&m); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := ctrl.Service.CreateMapping(c.Context(), &m)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if !result.IsValid {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":      result.Message,
			"validation": result,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Mapping created successfully",
		"data":    m,
	})
}

// ListMappings godoc
// @Summary      List mappings
// @Tags         mappings
// @Produce      json
// @Success      200 {array} Mapping
// @Router       /api/mappings [get]
func (ctrl *MappingController) ListMappings(c *fiber.Ctx) error {
	mappings, err := ctrl.Service.ListMappings(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": mappings,
	})
}

// GetMapping godoc
// @Summary      Get a mapping
// @Tags         mappings
// @Produce      json
// @Param        id path string true "Mapping ID"
// @Success      200 {object} Mapping
// @Router       /api/mappings/{id} [get]
func (ctrl *MappingController) GetMapping(c *fiber.Ctx) error {
	m, err := ctrl.Service.GetMapping(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(m)
}

// UpdateMapping godoc
// @Summary      Update a mapping
// @Description  Full replacement; validated before persistence
// @Tags         mappings
// @Accept       json
// @Produce      json
// @Param        id    path string true "Mapping ID"
// @Param        input body Mapping true "Mapping Data"
// @Success      200 {object} map[string]interface{}
// @Router       /api/mappings/{id} [put]
func (ctrl *MappingController) UpdateMapping(c *fiber.Ctx) error {
	var m Mapping
	if err := c.BodyParser(&m); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := ctrl.Service.UpdateMapping(c.Context(), c.Params("id"), &m)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if !result.IsValid {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":      result.Message,
			"validation": result,
		})
	}

	return c.JSON(fiber.Map{
		"message": "Mapping updated successfully",
	})
}

// DeleteMapping godoc
// @Summary      Delete a mapping
// @Description  Removes the mapping and its sync history permanently
// @Tags         mappings
// @Produce      json
// @Param        id path string true "Mapping ID"
// @Success      200 {object} map[string]string
// @Router       /api/mappings/{id} [delete]
func (ctrl *MappingController) DeleteMapping(c *fiber.Ctx) error {
	if err := ctrl.Service.DeleteMapping(c.Context(), c.Params("id")); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Mapping deleted successfully",
	})
}

// SetEnabled godoc
// @Summary      Enable or disable a mapping
// @Tags         mappings
// @Accept       json
// @Produce      json
// @Param        id    path string true "Mapping ID"
// @Param        input body map[string]bool true "{\"enabled\": true}"
// @Success      200 {object} map[string]interface{}
// @Router       /api/mappings/{id}/enabled [put]
func (ctrl *MappingController) SetEnabled(c *fiber.Ctx) error {
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := ctrl.Service.SetEnabled(c.Context(), c.Params("id"), body.Enabled)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if !result.IsValid {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":      result.Message,
			"validation": result,
		})
	}

	return c.JSON(fiber.Map{
		"message": "Mapping state updated",
		"enabled": body.Enabled,
	})
}

// ValidateMapping godoc
// @Summary      Validate a stored mapping
// @Description  Re-checks required fields, row identity and the live destination schema
// @Tags         mappings
// @Produce      json
// @Param        id path string true "Mapping ID"
// @Success      200 {object} ValidationResult
// @Router       /api/mappings/{id}/validate [post]
func (ctrl *MappingController) ValidateMapping(c *fiber.Ctx) error {
	result, err := ctrl.Service.ValidateMapping(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(result)
}
