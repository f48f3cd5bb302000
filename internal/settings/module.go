// Package settings provides the quotation defaults module.
package settings

import (
	"database/sql"

	"picklist_converter/internal/settings/handler"
	"picklist_converter/internal/settings/repository"
	"picklist_converter/internal/settings/service"
	apphttp "picklist_converter/internal/http"
	"picklist_converter/platform/logger"
	"picklist_converter/platform/validator"
)

// Module is the settings module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the settings module on the ledger database.
func NewModule(db *sql.DB, val *validator.Validator, secondaryConfigured bool, log *logger.Logger) *Module {
	repo := repository.New(db)
	svc := service.New(repo, val, secondaryConfigured, log)

	return &Module{
		handler: handler.New(svc),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "settings"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts settings routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/settings/quotation-defaults", m.handler.GetQuotationDefaults)
	ctx.V1.PUT("/settings/quotation-defaults", m.handler.UpdateQuotationDefaults)
}

var _ apphttp.Module = (*Module)(nil)
