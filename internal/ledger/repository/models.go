package repository

import (
	"time"

	"picklist_converter/platform/apperr"
)

// ErrAlreadyConverted is returned by Record when a success already exists
// for the picklist.
var ErrAlreadyConverted = apperr.Conflict("picklist already converted")

// Record is one conversion attempt. Records are never updated in place.
type Record struct {
	ID              int64
	PicklistID      int64
	Success         bool
	QuotationID     *int64
	QuotationNumber *string
	ErrorMessage    *string
	ConvertedAt     time.Time
	Archived        bool
}

// NewRecord carries the outcome of an attempt to be appended.
type NewRecord struct {
	PicklistID      int64
	Success         bool
	QuotationID     *int64
	QuotationNumber *string
	ErrorMessage    *string
}

// Status filters history queries.
type Status string

const (
	StatusAll     Status = "all"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Valid reports whether s is a known filter value.
func (s Status) Valid() bool {
	switch s {
	case StatusAll, StatusSuccess, StatusFailed:
		return true
	}
	return false
}

// Filter narrows history queries. A zero PicklistID matches every picklist.
type Filter struct {
	Status     Status
	PicklistID int64
}

// ArchivedPicklist is an operator-hidden picklist.
type ArchivedPicklist struct {
	PicklistID int64
	ArchivedAt time.Time
	ArchivedBy string
}

// Stats summarizes the ledger.
type Stats struct {
	TotalConverted int
	TotalFailed    int
	TotalAttempts  int
}
