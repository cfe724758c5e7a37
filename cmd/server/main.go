package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/firedesk/firedesk/internal/api"
	"github.com/firedesk/firedesk/internal/api/cron"
	v1 "github.com/firedesk/firedesk/internal/api/v1"
	"github.com/firedesk/firedesk/internal/cache"
	"github.com/firedesk/firedesk/internal/config"
	"github.com/firedesk/firedesk/internal/logger"
	"github.com/firedesk/firedesk/internal/postgres"
	"github.com/firedesk/firedesk/internal/repository"
	"github.com/firedesk/firedesk/internal/sentry"
	"github.com/firedesk/firedesk/internal/service"
	"github.com/firedesk/firedesk/internal/validator"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Monitoring
			sentry.NewSentryService,

			// Cache
			cache.Initialize,

			// Postgres
			postgres.NewDB,
			provideDBClient,

			// Repositories
			repository.NewTenantRepository,
			repository.NewResourceRepository,
			repository.NewUsageRepository,
			repository.NewInvoiceRepository,
		),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,

			service.NewTenantService,
			service.NewQuotaService,
			service.NewUsageService,
			service.NewInvoiceService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			sentry.RegisterHooks,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideHandlers(
	logger *logger.Logger,
	tenantService service.TenantService,
	quotaService service.QuotaService,
	usageService service.UsageService,
	invoiceService service.InvoiceService,
) api.Handlers {
	return api.Handlers{
		Health:  v1.NewHealthHandler(logger),
		Tenant:  v1.NewTenantHandler(tenantService, logger),
		Usage:   v1.NewUsageHandler(usageService, logger),
		Invoice: v1.NewInvoiceHandler(invoiceService, logger),
		Quota:   v1.NewQuotaHandler(quotaService, logger),

		CronMetering: cron.NewMeteringHandler(usageService, logger),
		CronInvoice:  cron.NewInvoiceHandler(invoiceService, logger),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration, logger *logger.Logger) *gin.Engine {
	return api.NewRouter(handlers, cfg, logger)
}

func provideDBClient(db *postgres.DB, sentryService *sentry.Service, log *logger.Logger) postgres.IClient {
	return postgres.NewSentryClient(db, sentryService, log)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	db *postgres.DB,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			db.Close()
			return nil
		},
	})
}
