package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/firedesk/firedesk/internal/api/dto"
	ierr "github.com/firedesk/firedesk/internal/errors"
	"github.com/firedesk/firedesk/internal/logger"
	"github.com/firedesk/firedesk/internal/service"
	"github.com/firedesk/firedesk/internal/types"
)

type QuotaHandler struct {
	service service.QuotaService
	logger  *logger.Logger
}

func NewQuotaHandler(service service.QuotaService, logger *logger.Logger) *QuotaHandler {
	return &QuotaHandler{service: service, logger: logger}
}

// @Summary Get all quota limits
// @Description Current count, limit and proximity flags for every quota-enforced resource type
// @Tags Quota
// @Produce json
// @Success 200 {object} dto.AllLimitsResponse
// @Router /limits [get]
func (h *QuotaHandler) GetAllLimits(c *gin.Context) {
	resp, err := h.service.GetAllLimits(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Check one resource type against its quota
// @Tags Quota
// @Produce json
// @Param type path string true "Resource type"
// @Success 204
// @Failure 403 {object} middleware.ErrorResponse
// @Router /limits/{type}/check [get]
func (h *QuotaHandler) CheckLimit(c *gin.Context) {
	resourceType := types.ResourceType(c.Param("type"))
	if !resourceType.Validate() {
		c.Error(ierr.NewErrorf("invalid resource type: %s", resourceType).
			WithHint("Resource type must be one of door, building, user, inspector, inspection").
			Mark(ierr.ErrValidation))
		return
	}

	if err := h.service.CheckLimit(c.Request.Context(), resourceType); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Register a resource
// @Description Insert a resource registry row after an atomic quota re-validation
// @Tags Quota
// @Accept json
// @Produce json
// @Param request body dto.RegisterResourceRequest true "Register resource request"
// @Success 201 {object} dto.ResourceResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Router /resources [post]
func (h *QuotaHandler) RegisterResource(c *gin.Context) {
	var req dto.RegisterResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorw("failed to bind request", "error", err)
		c.Error(ierr.WithError(err).WithHint("Invalid request payload").Mark(ierr.ErrValidation))
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	resp, err := h.service.RegisterResource(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}
