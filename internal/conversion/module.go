// Package conversion provides the picklist to quotation conversion module.
package conversion

import (
	"picklist_converter/internal/conversion/handler"
	"picklist_converter/internal/conversion/service"
	apphttp "picklist_converter/internal/http"
	"picklist_converter/internal/scheduler"
	"picklist_converter/platform/validator"
)

// Module is the conversion module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the conversion HTTP surface. queue may be nil.
func NewModule(svc *service.Service, poller *scheduler.Poller, queue scheduler.ConversionQueue, val *validator.Validator) *Module {
	return &Module{
		handler: handler.New(svc, poller, queue, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "conversion"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts conversion routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1)
}

var _ apphttp.Module = (*Module)(nil)
