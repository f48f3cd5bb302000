package transport

import (
	"time"

	catalogsvc "picklist_converter/internal/catalog/service"
	"picklist_converter/internal/conversion/service"
	ledger "picklist_converter/internal/ledger/repository"
)

// Requests

type PicklistIDsRequest struct {
	PicklistIDs []int64 `json:"picklistIds" validate:"required,min=1,dive,gt=0"`
}

type ArchiveRequest struct {
	PicklistIDs []int64 `json:"picklistIds" validate:"required,min=1,dive,gt=0"`
	ArchivedBy  string  `json:"archivedBy" validate:"omitempty,max=100"`
}

type CopyProductsRequest struct {
	Barcodes []string `json:"barcodes" validate:"required,min=1,dive,notblank,max=20"`
}

type DeleteRecordsRequest struct {
	RecordIDs []int64 `json:"recordIds" validate:"required,min=1,dive,gt=0"`
}

type HistoryRequest struct {
	Status     string `form:"status" validate:"omitempty,oneof=all success failed"`
	PicklistID int64  `form:"picklistId" validate:"omitempty,gt=0"`
	Limit      int    `form:"limit" validate:"omitempty,min=1,max=500"`
	Offset     int    `form:"offset" validate:"omitempty,min=0"`
}

type PageRequest struct {
	Limit  int `form:"limit" validate:"omitempty,min=1,max=500"`
	Offset int `form:"offset" validate:"omitempty,min=0"`
}

// Responses

type BatchErrorResponse struct {
	PicklistID int64  `json:"picklistId"`
	Reason     string `json:"reason"`
	Message    string `json:"message"`
}

type BatchResponse struct {
	Converted int                  `json:"converted"`
	Failed    int                  `json:"failed"`
	Skipped   int                  `json:"skipped"`
	Errors    []BatchErrorResponse `json:"errors"`
}

type EnqueueResponse struct {
	TaskID      string  `json:"taskId"`
	PicklistIDs []int64 `json:"picklistIds"`
}

type PicklistResponse struct {
	ID          int64     `json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	Locked      bool      `json:"locked"`
	IsConverted bool      `json:"isConverted"`
	InProgress  bool      `json:"inProgress"`
}

type PicklistListResponse struct {
	Items []PicklistResponse `json:"items"`
	Total int                `json:"total"`
}

type ArchivedPicklistResponse struct {
	PicklistID int64     `json:"picklistId"`
	ArchivedAt time.Time `json:"archivedAt"`
	ArchivedBy string    `json:"archivedBy"`
}

type MissingProductResponse struct {
	PicklistID int64  `json:"picklistId"`
	Barcode    string `json:"barcode"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	Status     string `json:"status"`
	Reason     string `json:"reason"`
}

type ProductCheckResponse struct {
	TotalProducts     int                      `json:"totalProducts"`
	MissingCount      int                      `json:"missingCount"`
	CanCopyCount      int                      `json:"canCopyCount"`
	TrulyMissingCount int                      `json:"trulyMissingCount"`
	Missing           []MissingProductResponse `json:"missing"`
}

type CopyFailureResponse struct {
	Barcode string `json:"barcode"`
	Reason  string `json:"reason"`
}

type CopyProductsResponse struct {
	Copied   []string              `json:"copied"`
	Existing []string              `json:"existing"`
	Failed   []CopyFailureResponse `json:"failed"`
}

type RecordResponse struct {
	ID              int64     `json:"id"`
	PicklistID      int64     `json:"picklistId"`
	Success         bool      `json:"success"`
	QuotationID     *int64    `json:"quotationId,omitempty"`
	QuotationNumber *string   `json:"quotationNumber,omitempty"`
	ErrorMessage    *string   `json:"errorMessage,omitempty"`
	ConvertedAt     time.Time `json:"convertedAt"`
	Archived        bool      `json:"archived"`
}

type HistoryResponse struct {
	Items  []RecordResponse `json:"items"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

type StatsResponse struct {
	TotalConverted int  `json:"totalConverted"`
	TotalFailed    int  `json:"totalFailed"`
	TotalAttempts  int  `json:"totalAttempts"`
	PendingCount   int  `json:"pendingCount"`
	Configured     bool `json:"configured"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

// ConvertStatusResponse reports what the background machinery is doing.
type ConvertStatusResponse struct {
	PollerRunning   bool    `json:"pollerRunning"`
	IntervalSeconds int     `json:"intervalSeconds"`
	InProgress      []int64 `json:"inProgress"`
	QueueEnabled    bool    `json:"queueEnabled"`
	PendingCount    int     `json:"pendingCount"`
	Configured      bool    `json:"configured"`
}

// Mapping

func ToBatchResponse(r service.BatchResult) BatchResponse {
	errs := make([]BatchErrorResponse, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, BatchErrorResponse{PicklistID: e.PicklistID, Reason: e.Reason, Message: e.Message})
	}
	return BatchResponse{Converted: r.Converted, Failed: r.Failed, Skipped: r.Skipped, Errors: errs}
}

func ToPicklistListResponse(views []service.PicklistView) PicklistListResponse {
	items := make([]PicklistResponse, 0, len(views))
	for _, v := range views {
		items = append(items, PicklistResponse{
			ID:          v.ID,
			CreatedAt:   v.CreatedAt,
			Locked:      v.Locked,
			IsConverted: v.IsConverted,
			InProgress:  v.InProgress,
		})
	}
	return PicklistListResponse{Items: items, Total: len(items)}
}

func ToArchivedResponse(list []ledger.ArchivedPicklist) []ArchivedPicklistResponse {
	items := make([]ArchivedPicklistResponse, 0, len(list))
	for _, a := range list {
		items = append(items, ArchivedPicklistResponse{PicklistID: a.PicklistID, ArchivedAt: a.ArchivedAt, ArchivedBy: a.ArchivedBy})
	}
	return items
}

func ToProductCheckResponse(check service.ProductCheck) ProductCheckResponse {
	missing := make([]MissingProductResponse, 0, len(check.Missing))
	for _, m := range check.Missing {
		missing = append(missing, MissingProductResponse{
			PicklistID: m.PicklistID,
			Barcode:    m.Barcode,
			Name:       m.Name,
			Quantity:   m.Quantity,
			Status:     string(m.Status),
			Reason:     m.Reason,
		})
	}
	return ProductCheckResponse{
		TotalProducts:     check.TotalProducts,
		MissingCount:      check.MissingCount,
		CanCopyCount:      check.CanCopyCount,
		TrulyMissingCount: check.TrulyMissingCount,
		Missing:           missing,
	}
}

func ToCopyProductsResponse(r catalogsvc.CopyResult) CopyProductsResponse {
	failed := make([]CopyFailureResponse, 0, len(r.Failed))
	for _, f := range r.Failed {
		failed = append(failed, CopyFailureResponse{Barcode: f.Barcode, Reason: f.Reason})
	}
	return CopyProductsResponse{
		Copied:   nonNil(r.Copied),
		Existing: nonNil(r.Existing),
		Failed:   failed,
	}
}

func ToHistoryResponse(records []ledger.Record, total, limit, offset int) HistoryResponse {
	items := make([]RecordResponse, 0, len(records))
	for _, r := range records {
		items = append(items, RecordResponse{
			ID:              r.ID,
			PicklistID:      r.PicklistID,
			Success:         r.Success,
			QuotationID:     r.QuotationID,
			QuotationNumber: r.QuotationNumber,
			ErrorMessage:    r.ErrorMessage,
			ConvertedAt:     r.ConvertedAt,
			Archived:        r.Archived,
		})
	}
	return HistoryResponse{Items: items, Total: total, Limit: limit, Offset: offset}
}

func ToStatsResponse(o service.Overview) StatsResponse {
	return StatsResponse{
		TotalConverted: o.Stats.TotalConverted,
		TotalFailed:    o.Stats.TotalFailed,
		TotalAttempts:  o.Stats.TotalAttempts,
		PendingCount:   o.PendingCount,
		Configured:     o.Configured,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
