package cron

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/firedesk/firedesk/internal/api/dto"
	"github.com/firedesk/firedesk/internal/logger"
	"github.com/firedesk/firedesk/internal/service"
)

// MeteringHandler handles the scheduled monthly metering run
type MeteringHandler struct {
	usageService service.UsageService
	logger       *logger.Logger
}

// NewMeteringHandler creates a new metering cron handler
func NewMeteringHandler(usageService service.UsageService, logger *logger.Logger) *MeteringHandler {
	return &MeteringHandler{
		usageService: usageService,
		logger:       logger,
	}
}

// RunForAllTenants snapshots usage for every tenant for the requested
// period. A tenant failure never aborts the batch; each outcome is reported
// in the response.
func (h *MeteringHandler) RunForAllTenants(c *gin.Context) {
	h.logger.Infow("starting metering run cron job", "time", time.Now().UTC().Format(time.RFC3339))

	var req dto.MeteringRunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBind(&req); err != nil {
			h.logger.Errorw("failed to parse request parameters", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request parameters"})
			return
		}
	}

	resp, err := h.usageService.RunForAllTenants(c.Request.Context(), req.GetPeriod(time.Now().UTC()))
	if err != nil {
		c.Error(err)
		return
	}

	h.logger.Infow("completed metering run cron job",
		"total", resp.Total,
		"success", resp.Success,
		"failed", resp.Failed,
	)
	c.JSON(http.StatusOK, resp)
}
