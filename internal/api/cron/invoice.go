package cron

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/firedesk/firedesk/internal/logger"
	"github.com/firedesk/firedesk/internal/service"
)

// InvoiceHandler handles invoice related cron jobs
type InvoiceHandler struct {
	invoiceService service.InvoiceService
	logger         *logger.Logger
}

// NewInvoiceHandler creates a new invoice cron handler
func NewInvoiceHandler(invoiceService service.InvoiceService, logger *logger.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		logger:         logger,
	}
}

// CheckOverdueInvoices flips every issued invoice whose due date has elapsed
// to overdue. Idempotent; the scheduler may run it as often as it likes.
func (h *InvoiceHandler) CheckOverdueInvoices(c *gin.Context) {
	now := time.Now().UTC()
	h.logger.Infow("starting overdue invoice sweep", "time", now.Format(time.RFC3339))

	resp, err := h.invoiceService.CheckOverdueInvoices(c.Request.Context(), now)
	if err != nil {
		c.Error(err)
		return
	}

	h.logger.Infow("completed overdue invoice sweep",
		"checked", resp.Checked,
		"updated", resp.Updated,
	)
	c.JSON(http.StatusOK, resp)
}
