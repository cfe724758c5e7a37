package repository

import (
	"github.com/firedesk/firedesk/internal/domain/invoice"
	"github.com/firedesk/firedesk/internal/domain/resource"
	"github.com/firedesk/firedesk/internal/domain/tenant"
	"github.com/firedesk/firedesk/internal/domain/usage"
	"github.com/firedesk/firedesk/internal/logger"
	"github.com/firedesk/firedesk/internal/postgres"
	postgresRepo "github.com/firedesk/firedesk/internal/repository/postgres"
)

func NewTenantRepository(db *postgres.DB, logger *logger.Logger) tenant.Repository {
	return postgresRepo.NewTenantRepository(db, logger)
}

func NewResourceRepository(db *postgres.DB, logger *logger.Logger) resource.Repository {
	return postgresRepo.NewResourceRepository(db, logger)
}

func NewUsageRepository(db *postgres.DB, logger *logger.Logger) usage.Repository {
	return postgresRepo.NewUsageRepository(db, logger)
}

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return postgresRepo.NewInvoiceRepository(db, logger)
}
