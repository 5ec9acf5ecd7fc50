package sync

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

type SyncController struct {
	Service SyncService
}

func NewSyncController(service SyncService) *SyncController {
	return &SyncController{
		Service: service,
	}
}

// RunSync godoc
// @Summary      Run a sync for a mapping
// @Description  Executes one full run synchronously and returns its outcome
// @Tags         sync
// @Produce      json
// @Param        id path string true "Mapping ID"
// @Success      200 {object} SyncResult
// @Router       /api/sync/mappings/{id}/run [post]
func (ctrl *SyncController) RunSync(c *fiber.Ctx) error {
	result, err := ctrl.Service.RunSync(c.Context(), c.Params("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrMappingDisabled):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		case errors.Is(err, ErrRunInProgress):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
	}

	return c.JSON(result)
}

// RetryFailedSync godoc
// @Summary      Retry failed records
// @Description  Re-drives the stored payloads of unresolved retryable errors
// @Tags         sync
// @Produce      json
// @Param        id path string true "Mapping ID"
// @Success      200 {object} RetryResult
// @Router       /api/sync/mappings/{id}/retry [post]
func (ctrl *SyncController) RetryFailedSync(c *fiber.Ctx) error {
	result, err := ctrl.Service.RetryFailedSync(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(result)
}

// ListRuns godoc
// @Summary      List sync runs for a mapping
// @Tags         sync
// @Produce      json
// @Param        id    path  string true  "Mapping ID"
// @Param        limit query int    false "Max runs to return"
// @Success      200 {array} SyncRun
// @Router       /api/sync/mappings/{id}/runs [get]
func (ctrl *SyncController) ListRuns(c *fiber.Ctx) error {
	limit, _ := strconv.ParseInt(c.Query("limit", "50"), 10, 64)

	runs, err := ctrl.Service.ListRuns(c.Context(), c.Params("id"), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": runs,
	})
}

// GetRun godoc
// @Summary      Get a sync run
// @Tags         sync
// @Produce      json
// @Param        id path string true "Run ID"
// @Success      200 {object} SyncRun
// @Router       /api/sync/runs/{id} [get]
func (ctrl *SyncController) GetRun(c *fiber.Ctx) error {
	run, err := ctrl.Service.GetRun(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(run)
}

// CancelRun godoc
// @Summary      Cancel an in-flight sync run
// @Description  The run drains at its next page boundary and ends as failed
// @Tags         sync
// @Produce      json
// @Param        id path string true "Run ID"
// @Success      200 {object} map[string]string
// @Router       /api/sync/runs/{id}/cancel [post]
func (ctrl *SyncController) CancelRun(c *fiber.Ctx) error {
	if err := ctrl.Service.CancelRun(c.Params("id")); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Cancellation requested",
	})
}

// ListErrors godoc
// @Summary      List sync errors for a mapping
// @Tags         sync
// @Produce      json
// @Param        id         path  string true  "Mapping ID"
// @Param        unresolved query bool   false "Only unresolved errors"
// @Param        limit      query int    false "Max errors to return"
// @Success      200 {array} SyncError
// @Router       /api/sync/mappings/{id}/errors [get]
func (ctrl *SyncController) ListErrors(c *fiber.Ctx) error {
	unresolvedOnly := c.Query("unresolved") == "true"
	limit, _ := strconv.ParseInt(c.Query("limit", "100"), 10, 64)

	errs, err := ctrl.Service.ListErrors(c.Context(), c.Params("id"), unresolvedOnly, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": errs,
	})
}

// ResolveError godoc
// @Summary      Mark a sync error as resolved
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        id    path string true "Error ID"
// @Param        input body map[string]string false "{\"note\": \"fixed upstream\"}"
// @Success      200 {object} map[string]string
// @Router       /api/sync/errors/{id}/resolve [post]
func (ctrl *SyncController) ResolveError(c *fiber.Ctx) error {
	var body struct {
		Note string `json:"note"`
	}
	_ = c.BodyParser(&body)

	if err := ctrl.Service.ResolveError(c.Context(), c.Params("id"), body.Note); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Error resolved",
	})
}

// ExportErrors godoc
// @Summary      Export sync errors as xlsx
// @Tags         sync
// @Produce      application/octet-stream
// @Param        id path string true "Mapping ID"
// @Success      200 {file} binary
// @Router       /api/sync/mappings/{id}/errors/export [get]
func (ctrl *SyncController) ExportErrors(c *fiber.Ctx) error {
	buf, err := ctrl.Service.ExportErrors(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	filename := "sync_errors_" + time.Now().Format("20060102_150405") + ".xlsx"
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	return c.Send(buf.Bytes())
}
