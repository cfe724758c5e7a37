package service

import (
	"github.com/firedesk/firedesk/internal/cache"
	"github.com/firedesk/firedesk/internal/config"
	"github.com/firedesk/firedesk/internal/domain/invoice"
	"github.com/firedesk/firedesk/internal/domain/resource"
	"github.com/firedesk/firedesk/internal/domain/tenant"
	"github.com/firedesk/firedesk/internal/domain/usage"
	"github.com/firedesk/firedesk/internal/logger"
	"github.com/firedesk/firedesk/internal/postgres"
	"github.com/firedesk/firedesk/internal/sentry"
)

// ServiceParams bundles the shared dependencies injected into every service.
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	Cache  cache.Cache
	Sentry *sentry.Service

	// Repositories
	TenantRepo   tenant.Repository
	ResourceRepo resource.Repository
	UsageRepo    usage.Repository
	InvoiceRepo  invoice.Repository
}

// NewServiceParams is the fx constructor for the shared service params.
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	cacheClient *cache.InMemoryCache,
	sentryService *sentry.Service,
	tenantRepo tenant.Repository,
	resourceRepo resource.Repository,
	usageRepo usage.Repository,
	invoiceRepo invoice.Repository,
) ServiceParams {
	return ServiceParams{
		Logger:       logger,
		Config:       config,
		DB:           db,
		Cache:        cacheClient,
		Sentry:       sentryService,
		TenantRepo:   tenantRepo,
		ResourceRepo: resourceRepo,
		UsageRepo:    usageRepo,
		InvoiceRepo:  invoiceRepo,
	}
}
