// Package service builds quotations from matched picklists and writes them
// to the target database.
package service

import (
	"context"
	"time"

	"picklist_converter/internal/quotes/repository"
	"picklist_converter/platform/logger"
)

// Repository is the target store the writer needs.
type Repository interface {
	Ping(ctx context.Context) error
	GetCustomer(ctx context.Context, customerID int64) (repository.Customer, error)
	CreateWithLines(ctx context.Context, q repository.Quotation, lines []repository.QuotationLine) (int64, error)
}

// Draft is everything needed to write one quotation.
type Draft struct {
	PicklistID  int64
	CustomerID  int64
	Status      int
	TitlePrefix string
	Items       []Item
}

// Created identifies a written quotation.
type Created struct {
	QuotationID int64
	Number      string
	TotalCents  int64
	Lines       int
}

// Service writes quotations.
type Service struct {
	repo Repository
	log  *logger.Logger
	now  func() time.Time
}

// New creates a new quotation writer.
func New(repo Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

// Ping checks the target store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Create loads the customer, builds the quotation and writes it atomically.
func (s *Service) Create(ctx context.Context, draft Draft) (Created, error) {
	customer, err := s.repo.GetCustomer(ctx, draft.CustomerID)
	if err != nil {
		return Created{}, err
	}

	q, lines := Build(draft, customer, s.now())

	id, err := s.repo.CreateWithLines(ctx, q, lines)
	if err != nil {
		return Created{}, err
	}

	s.log.Info("quotation created",
		"picklistId", draft.PicklistID,
		"quotationId", id,
		"quotationNumber", q.Number,
		"lines", len(lines),
		"totalCents", q.TotalCents,
	)
	return Created{QuotationID: id, Number: q.Number, TotalCents: q.TotalCents, Lines: len(lines)}, nil
}
