package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/firedesk/firedesk/internal/api/dto"
	ierr "github.com/firedesk/firedesk/internal/errors"
	"github.com/firedesk/firedesk/internal/logger"
	"github.com/firedesk/firedesk/internal/service"
	"github.com/firedesk/firedesk/internal/types"
)

type UsageHandler struct {
	service service.UsageService
	logger  *logger.Logger
}

func NewUsageHandler(service service.UsageService, logger *logger.Logger) *UsageHandler {
	return &UsageHandler{service: service, logger: logger}
}

// @Summary Snapshot usage for one tenant and period
// @Description Count the tenant's resources, price them and upsert the period's usage record
// @Tags Usage
// @Accept json
// @Produce json
// @Param request body dto.SnapshotUsageRequest true "Snapshot request"
// @Success 200 {object} dto.UsageRecordResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Router /usage/snapshot [post]
func (h *UsageHandler) SnapshotUsage(c *gin.Context) {
	var req dto.SnapshotUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorw("failed to bind request", "error", err)
		c.Error(ierr.WithError(err).WithHint("Invalid request payload").Mark(ierr.ErrValidation))
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	resp, err := h.service.SnapshotUsage(c.Request.Context(), req.TenantID, req.GetPeriod(time.Now().UTC()))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List usage records
// @Description List the context tenant's usage records ordered by period
// @Tags Usage
// @Produce json
// @Param filter query types.UsageRecordFilter false "Filter"
// @Success 200 {object} dto.ListUsageRecordsResponse
// @Router /usage [get]
func (h *UsageHandler) ListUsageRecords(c *gin.Context) {
	var filter types.UsageRecordFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).WithHint("Invalid query parameters").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ListUsageRecords(c.Request.Context(), &filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
