package api

import (
	"github.com/gin-gonic/gin"

	"github.com/firedesk/firedesk/internal/api/cron"
	v1 "github.com/firedesk/firedesk/internal/api/v1"
	"github.com/firedesk/firedesk/internal/config"
	"github.com/firedesk/firedesk/internal/logger"
	"github.com/firedesk/firedesk/internal/rest/middleware"
)

type Handlers struct {
	Health  *v1.HealthHandler
	Tenant  *v1.TenantHandler
	Usage   *v1.UsageHandler
	Invoice *v1.InvoiceHandler
	Quota   *v1.QuotaHandler

	CronMetering *cron.MeteringHandler
	CronInvoice  *cron.InvoiceHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.SentryMiddleware(cfg),
		middleware.ErrorHandler(),
	)

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1", middleware.TenantMiddleware)
	registerV1Routes(v1Group, handlers)

	cronGroup := router.Group("/cron")
	registerCronRoutes(cronGroup, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	// Tenant routes
	tenants := router.Group("/tenants")
	{
		tenants.POST("", handlers.Tenant.CreateTenant)
		tenants.GET("", handlers.Tenant.GetAllTenants)
		tenants.GET("/:id", handlers.Tenant.GetTenantByID)
		tenants.PUT("/:id/billing", handlers.Tenant.UpdateBillingConfig)
	}

	// Usage ledger routes
	usage := router.Group("/usage")
	{
		usage.POST("/snapshot", handlers.Usage.SnapshotUsage)
		usage.GET("", handlers.Usage.ListUsageRecords)
	}

	// Invoice routes
	invoices := router.Group("/invoices")
	{
		invoices.POST("/generate", handlers.Invoice.GenerateInvoice)
		invoices.GET("", handlers.Invoice.ListInvoices)
		invoices.GET("/:id", handlers.Invoice.GetInvoice)
		invoices.POST("/:id/pay", handlers.Invoice.MarkInvoiceAsPaid)
	}

	// Quota routes
	limits := router.Group("/limits")
	{
		limits.GET("", handlers.Quota.GetAllLimits)
		limits.GET("/:type/check", handlers.Quota.CheckLimit)
	}
	router.POST("/resources", handlers.Quota.RegisterResource)
}

func registerCronRoutes(router *gin.RouterGroup, handlers Handlers) {
	metering := router.Group("/metering")
	{
		metering.POST("/run", handlers.CronMetering.RunForAllTenants)
	}

	invoices := router.Group("/invoices")
	{
		invoices.POST("/check-overdue", handlers.CronInvoice.CheckOverdueInvoices)
	}
}
