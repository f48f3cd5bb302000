// Package catalog provides the product catalog module: the writable catalog in
// the target database and the optional read-only inventory source.
package catalog

import (
	"picklist_converter/internal/catalog/repository"
	"picklist_converter/internal/catalog/service"
	"picklist_converter/platform/logger"
	"picklist_converter/platform/metrics"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module wires the catalog repository and matcher. It has no HTTP routes;
// product checks and copies are served by the conversion module.
type Module struct {
	repo    *repository.Repo
	matcher *service.Matcher
}

// NewModule creates the catalog module. secondarySource must be a nil
// interface when no inventory database is configured.
func NewModule(pool *pgxpool.Pool, secondarySource service.SecondarySource, reg *metrics.Registry, log *logger.Logger) *Module {
	repo := repository.New(pool)
	return &Module{
		repo:    repo,
		matcher: service.New(repo, secondarySource, reg, log),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "catalog"
}

// Matcher returns the barcode matcher.
func (m *Module) Matcher() *service.Matcher {
	return m.matcher
}

// Repository returns the primary catalog repository.
func (m *Module) Repository() *repository.Repo {
	return m.repo
}
