package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/firedesk/firedesk/internal/api/dto"
	ierr "github.com/firedesk/firedesk/internal/errors"
	"github.com/firedesk/firedesk/internal/logger"
	"github.com/firedesk/firedesk/internal/service"
)

type TenantHandler struct {
	service service.TenantService
	logger  *logger.Logger
}

func NewTenantHandler(service service.TenantService, logger *logger.Logger) *TenantHandler {
	return &TenantHandler{service: service, logger: logger}
}

// @Summary Create a new tenant
// @Description Create a new tenant with its billing configuration and quotas
// @Tags Tenant
// @Accept json
// @Produce json
// @Param request body dto.CreateTenantRequest true "Create tenant request"
// @Success 201 {object} dto.TenantResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Router /tenants [post]
func (h *TenantHandler) CreateTenant(c *gin.Context) {
	var req dto.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorw("failed to bind request", "error", err)
		c.Error(ierr.WithError(err).WithHint("Invalid request payload").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateTenant(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary Get tenant by ID
// @Tags Tenant
// @Produce json
// @Param id path string true "Tenant ID"
// @Success 200 {object} dto.TenantResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /tenants/{id} [get]
func (h *TenantHandler) GetTenantByID(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("invalid tenant id").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GetTenantByID(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List tenants
// @Tags Tenant
// @Produce json
// @Success 200 {array} dto.TenantResponse
// @Router /tenants [get]
func (h *TenantHandler) GetAllTenants(c *gin.Context) {
	resp, err := h.service.GetAllTenants(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Update a tenant's billing configuration
// @Description Replace the tenant's pricing, tax and quota configuration
// @Tags Tenant
// @Accept json
// @Produce json
// @Param id path string true "Tenant ID"
// @Param request body dto.UpdateBillingConfigRequest true "Billing configuration"
// @Success 200 {object} dto.TenantResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /tenants/{id}/billing [put]
func (h *TenantHandler) UpdateBillingConfig(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("invalid tenant id").Mark(ierr.ErrValidation))
		return
	}

	var req dto.UpdateBillingConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorw("failed to bind request", "error", err)
		c.Error(ierr.WithError(err).WithHint("Invalid request payload").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.UpdateBillingConfig(c.Request.Context(), id, req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
