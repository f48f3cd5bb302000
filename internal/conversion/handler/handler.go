package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	catalogsvc "picklist_converter/internal/catalog/service"
	"picklist_converter/internal/conversion/service"
	"picklist_converter/internal/conversion/transport"
	ledger "picklist_converter/internal/ledger/repository"
	"picklist_converter/internal/scheduler"
	"picklist_converter/platform/apperr"
	"picklist_converter/platform/httpkit"
	"picklist_converter/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgQueueDisabled    = "conversion queue not configured"
	defaultArchivedBy   = "api"
)

// Converter is the conversion service surface used over HTTP.
type Converter interface {
	ConvertBatch(ctx context.Context, ids []int64) (service.BatchResult, error)
	ConvertPending(ctx context.Context) (service.BatchResult, error)
	CheckProducts(ctx context.Context, ids []int64) (service.ProductCheck, error)
	CopyFromSecondary(ctx context.Context, barcodes []string) (catalogsvc.CopyResult, error)
	ListPicklists(ctx context.Context) ([]service.PicklistView, error)
	ListArchived(ctx context.Context, limit, offset int) ([]ledger.ArchivedPicklist, error)
	Archive(ctx context.Context, ids []int64, archivedBy string) (int, error)
	Unarchive(ctx context.Context, ids []int64) (int64, error)
	History(ctx context.Context, filter ledger.Filter, limit, offset int) ([]ledger.Record, int, error)
	DeleteRecords(ctx context.Context, recordIDs []int64) (int64, error)
	DeleteAllFailed(ctx context.Context) (int64, error)
	Overview(ctx context.Context) (service.Overview, error)
	InProgress() []int64
}

// PollerControl starts and stops the background poller.
type PollerControl interface {
	Start(ctx context.Context) (scheduler.StatusResult, error)
	Stop() scheduler.StatusResult
	Status(ctx context.Context) scheduler.Status
}

// Handler handles HTTP requests for picklist conversion.
type Handler struct {
	svc    Converter
	poller PollerControl
	queue  scheduler.ConversionQueue
	val    *validator.Validator
}

// New creates a conversion handler. queue may be nil when no Redis is configured.
func New(svc Converter, poller PollerControl, queue scheduler.ConversionQueue, val *validator.Validator) *Handler {
	return &Handler{svc: svc, poller: poller, queue: queue, val: val}
}

// RegisterRoutes mounts the conversion routes on rg.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/convert/trigger", h.Trigger)
	rg.POST("/convert/selected", h.ConvertSelected)
	rg.POST("/convert/enqueue", h.Enqueue)
	rg.GET("/convert/status", h.ConvertStatus)

	rg.POST("/products/check", h.CheckProducts)
	rg.POST("/products/copy", h.CopyProducts)

	rg.GET("/picklists/pending", h.ListPending)
	rg.GET("/picklists/archived", h.ListArchived)
	rg.POST("/picklists/archive", h.Archive)
	rg.POST("/picklists/unarchive", h.Unarchive)

	rg.GET("/history", h.History)
	rg.POST("/history/delete", h.DeleteRecords)
	rg.POST("/history/delete-failed", h.DeleteAllFailed)
	rg.GET("/stats", h.Stats)

	rg.POST("/poller/start", h.StartPoller)
	rg.POST("/poller/stop", h.StopPoller)
	rg.GET("/poller/status", h.PollerStatus)
}

// Trigger converts every pending picklist now.
// POST /api/v1/convert/trigger
func (h *Handler) Trigger(c *gin.Context) {
	result, err := h.svc.ConvertPending(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToBatchResponse(result))
}

// ConvertSelected converts the given picklists.
// POST /api/v1/convert/selected
func (h *Handler) ConvertSelected(c *gin.Context) {
	var req transport.PicklistIDsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.svc.ConvertBatch(c.Request.Context(), req.PicklistIDs)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToBatchResponse(result))
}

// Enqueue hands the picklists to the background worker.
// POST /api/v1/convert/enqueue
func (h *Handler) Enqueue(c *gin.Context) {
	if h.queue == nil {
		httpkit.HandleError(c, apperr.NotConfigured(msgQueueDisabled))
		return
	}

	var req transport.PicklistIDsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	taskID, err := h.queue.EnqueueConvert(c.Request.Context(), req.PicklistIDs, requestedBy(c))
	if err != nil {
		httpkit.HandleError(c, apperr.Unavailable("enqueue conversion", err))
		return
	}
	httpkit.JSON(c, http.StatusAccepted, transport.EnqueueResponse{TaskID: taskID, PicklistIDs: req.PicklistIDs})
}

// ConvertStatus reports the poller state, the pending count and the
// picklists currently being converted.
// GET /api/v1/convert/status
func (h *Handler) ConvertStatus(c *gin.Context) {
	overview, err := h.svc.Overview(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	status := h.poller.Status(c.Request.Context())
	httpkit.OK(c, transport.ConvertStatusResponse{
		PollerRunning:   status.Running,
		IntervalSeconds: status.IntervalSeconds,
		InProgress:      h.svc.InProgress(),
		QueueEnabled:    h.queue != nil,
		PendingCount:    overview.PendingCount,
		Configured:      overview.Configured,
	})
}

// CheckProducts reports unmatched products without writing anything.
// POST /api/v1/products/check
func (h *Handler) CheckProducts(c *gin.Context) {
	var req transport.PicklistIDsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.svc.CheckProducts(c.Request.Context(), req.PicklistIDs)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToProductCheckResponse(result))
}

// CopyProducts copies products from the secondary source into the catalog.
// POST /api/v1/products/copy
func (h *Handler) CopyProducts(c *gin.Context) {
	var req transport.CopyProductsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.svc.CopyFromSecondary(c.Request.Context(), req.Barcodes)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToCopyProductsResponse(result))
}

// ListPending lists non-archived picklists with their conversion state.
// GET /api/v1/picklists/pending
func (h *Handler) ListPending(c *gin.Context) {
	views, err := h.svc.ListPicklists(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToPicklistListResponse(views))
}

// ListArchived lists archived picklists.
// GET /api/v1/picklists/archived
func (h *Handler) ListArchived(c *gin.Context) {
	var req transport.PageRequest
	if !h.bindQuery(c, &req) {
		return
	}

	list, err := h.svc.ListArchived(c.Request.Context(), req.Limit, req.Offset)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": transport.ToArchivedResponse(list)})
}

// Archive hides picklists from conversion.
// POST /api/v1/picklists/archive
func (h *Handler) Archive(c *gin.Context) {
	var req transport.ArchiveRequest
	if !h.bindJSON(c, &req) {
		return
	}

	archivedBy := strings.TrimSpace(req.ArchivedBy)
	if archivedBy == "" {
		archivedBy = requestedBy(c)
	}

	n, err := h.svc.Archive(c.Request.Context(), req.PicklistIDs, archivedBy)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.CountResponse{Count: int64(n)})
}

// Unarchive makes picklists eligible again.
// POST /api/v1/picklists/unarchive
func (h *Handler) Unarchive(c *gin.Context) {
	var req transport.PicklistIDsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	n, err := h.svc.Unarchive(c.Request.Context(), req.PicklistIDs)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.CountResponse{Count: n})
}

// History lists conversion records, newest first.
// GET /api/v1/history
func (h *Handler) History(c *gin.Context) {
	var req transport.HistoryRequest
	if !h.bindQuery(c, &req) {
		return
	}

	filter := ledger.Filter{Status: ledger.Status(req.Status), PicklistID: req.PicklistID}
	records, total, err := h.svc.History(c.Request.Context(), filter, req.Limit, req.Offset)
	if httpkit.HandleError(c, err) {
		return
	}

	limit, offset := service.NormalizePage(req.Limit, req.Offset)
	httpkit.OK(c, transport.ToHistoryResponse(records, total, limit, offset))
}

// DeleteRecords purges conversion records so their picklists can be converted again.
// POST /api/v1/history/delete
func (h *Handler) DeleteRecords(c *gin.Context) {
	var req transport.DeleteRecordsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	n, err := h.svc.DeleteRecords(c.Request.Context(), req.RecordIDs)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.CountResponse{Count: n})
}

// DeleteAllFailed purges every failure record.
// POST /api/v1/history/delete-failed
func (h *Handler) DeleteAllFailed(c *gin.Context) {
	n, err := h.svc.DeleteAllFailed(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.CountResponse{Count: n})
}

// GET /api/v1/stats
func (h *Handler) Stats(c *gin.Context) {
	overview, err := h.svc.Overview(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToStatsResponse(overview))
}

// POST /api/v1/poller/start
func (h *Handler) StartPoller(c *gin.Context) {
	result, err := h.poller.Start(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// POST /api/v1/poller/stop
func (h *Handler) StopPoller(c *gin.Context) {
	httpkit.OK(c, h.poller.Stop())
}

// GET /api/v1/poller/status
func (h *Handler) PollerStatus(c *gin.Context) {
	httpkit.OK(c, h.poller.Status(c.Request.Context()))
}

func (h *Handler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

func (h *Handler) bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

func requestedBy(c *gin.Context) string {
	if id := c.GetHeader(httpkit.HeaderRequestID); id != "" {
		return defaultArchivedBy + ":" + id
	}
	return defaultArchivedBy
}
