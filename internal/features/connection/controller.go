package connection

import (
	"github.com/gofiber/fiber/v2"
)

type ConnectionController struct {
	Service ConnectionService
}

func NewConnectionController(service ConnectionService) *ConnectionController {
	return &ConnectionController{
		Service: service,
	}
}

// CreateConnection godoc
// @Summary      Create a new Glide connection
// @Description  Register a Glide app with its API credentials
// @Tags         connections
// @Accept       json
// @Produce      json
// @Param        input body Connection true "Connection Data"
// @Success      201 {object} map[string]interface{}
// @Router       /api/connections [post]
func (ctrl *ConnectionController) CreateConnection(c *fiber.Ctx) error {
	var conn Connection
	if err := c.BodyParser(&conn); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := ctrl.Service.CreateConnection(c.Context(), &conn); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Connection created successfully",
		"data":    conn,
	})
}

// ListConnections godoc
// @Summary      List connections
// @Tags         connections
// @Produce      json
// @Success      200 {array} Connection
// @Router       /api/connections [get]
func (ctrl *ConnectionController) ListConnections(c *fiber.Ctx) error {
	conns, err := ctrl.Service.ListConnections(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": conns,
	})
}

// GetConnection godoc
// @Summary      Get a connection
// @Tags         connections
// @Produce      json
// @Param        id path string true "Connection ID"
// @Success      200 {object} Connection
// @Router       /api/connections/{id} [get]
func (ctrl *ConnectionController) GetConnection(c *fiber.Ctx) error {
	conn, err := ctrl.Service.GetConnection(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(conn)
}

// UpdateConnection godoc
// @Summary      Update a connection
// @Tags         connections
// @Accept       json
// @Produce      json
// @Param        id    path string true "Connection ID"
// @Param        input body map[string]interface{} true "Update Data"
// @Success      200 {object} map[string]string
// @Router       /api/connections/{id} [put]
func (ctrl *ConnectionController) UpdateConnection(c *fiber.Ctx) error {
	var updates map[string]interface{}
	if err := c.BodyParser(&updates); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := ctrl.Service.UpdateConnection(c.Context(), c.Params("id"), updates); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Connection updated successfully",
	})
}

// DeleteConnection godoc
// @Summary      Delete a connection
// @Tags         connections
// @Produce      json
// @Param        id path string true "Connection ID"
// @Success      200 {object} map[string]string
// @Router       /api/connections/{id} [delete]
func (ctrl *ConnectionController) DeleteConnection(c *fiber.Ctx) error {
	if err := ctrl.Service.DeleteConnection(c.Context(), c.Params("id")); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Connection deleted successfully",
	})
}

// TestConnection godoc
// @Summary      Test a connection
// @Description  Probe the Glide app and update the connection status
// @Tags         connections
// @Produce      json
// @Param        id path string true "Connection ID"
// @Success      200 {object} map[string]string
// @Router       /api/connections/{id}/test [post]
func (ctrl *ConnectionController) TestConnection(c *fiber.Ctx) error {
	if err := ctrl.Service.TestConnection(c.Context(), c.Params("id")); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":  err.Error(),
			"status": StatusError,
		})
	}

	return c.JSON(fiber.Map{
		"message": "Connection is healthy",
		"status":  StatusActive,
	})
}

// ListTables godoc
// @Summary      List Glide tables for a connection
// @Tags         connections
// @Produce      json
// @Param        id path string true "Connection ID"
// @Success      200 {array} glide.Table
// @Router       /api/connections/{id}/tables [get]
func (ctrl *ConnectionController) ListTables(c *fiber.Ctx) error {
	tables, err := ctrl.Service.ListTables(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": tables,
	})
}

// GetTableColumns godoc
// @Summary      List columns of a Glide table
// @Description  Column types are inferred from a one-row sample
// @Tags         connections
// @Produce      json
// @Param        id       path string true "Connection ID"
// @Param        tableId  path string true "Glide Table ID"
// @Success      200 {array} glide.Column
// @Router       /api/connections/{id}/tables/{tableId}/columns [get]
func (ctrl *ConnectionController) GetTableColumns(c *fiber.Ctx) error {
	columns, err := ctrl.Service.GetTableColumns(c.Context(), c.Params("id"), c.Params("tableId"))
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": columns,
	})
}
