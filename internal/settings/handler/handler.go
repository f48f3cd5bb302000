package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"picklist_converter/internal/settings/service"
	"picklist_converter/internal/settings/transport"
	"picklist_converter/platform/httpkit"
)

// Handler handles HTTP requests for settings.
type Handler struct {
	svc *service.Service
}

const msgInvalidRequest = "invalid request"

// New creates a new settings handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// GetQuotationDefaults returns the saved defaults.
// GET /api/v1/settings/quotation-defaults
func (h *Handler) GetQuotationDefaults(c *gin.Context) {
	result, err := h.svc.Describe(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// UpdateQuotationDefaults saves new defaults.
// PUT /api/v1/settings/quotation-defaults
func (h *Handler) UpdateQuotationDefaults(c *gin.Context) {
	var req transport.UpdateQuotationDefaultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.Update(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
