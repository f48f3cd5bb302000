package service

import (
	"context"
	"time"

	"picklist_converter/internal/settings/repository"
	"picklist_converter/internal/settings/transport"
	"picklist_converter/platform/apperr"
	"picklist_converter/platform/logger"
	"picklist_converter/platform/sanitize"
	"picklist_converter/platform/validator"
)

// Repository is the persistence the service needs.
type Repository interface {
	Get(ctx context.Context) (repository.QuotationDefaults, error)
	Save(ctx context.Context, d repository.QuotationDefaults) (repository.QuotationDefaults, error)
}

// Service provides business logic for quotation defaults.
type Service struct {
	repo                Repository
	val                 *validator.Validator
	secondaryConfigured bool
	log                 *logger.Logger
}

// New creates a new settings service.
func New(repo Repository, val *validator.Validator, secondaryConfigured bool, log *logger.Logger) *Service {
	return &Service{repo: repo, val: val, secondaryConfigured: secondaryConfigured, log: log}
}

// Get returns the saved defaults. Callers treat a NotConfigured error as fatal
// for a conversion batch.
func (s *Service) Get(ctx context.Context) (repository.QuotationDefaults, error) {
	return s.repo.Get(ctx)
}

// Describe returns the defaults for display.
func (s *Service) Describe(ctx context.Context) (transport.QuotationDefaultsResponse, error) {
	d, err := s.repo.Get(ctx)
	if err != nil {
		return transport.QuotationDefaultsResponse{}, err
	}
	return s.toResponse(d), nil
}

// Update validates and saves new defaults.
func (s *Service) Update(ctx context.Context, req transport.UpdateQuotationDefaultsRequest) (transport.QuotationDefaultsResponse, error) {
	if err := s.val.Struct(req); err != nil {
		return transport.QuotationDefaultsResponse{}, apperr.Validation("invalid quotation defaults").WithDetails(err.Error())
	}

	prefix := sanitize.Text(req.TitlePrefix)
	if prefix == "" {
		return transport.QuotationDefaultsResponse{}, apperr.Validation("invalid quotation defaults").WithDetails("titlePrefix is empty after cleanup")
	}

	interval := req.PollIntervalSeconds
	if interval == 0 {
		interval = repository.DefaultPollIntervalSeconds
	}

	saved, err := s.repo.Save(ctx, repository.QuotationDefaults{
		CustomerID:          req.CustomerID,
		DefaultStatus:       req.DefaultStatus,
		TitlePrefix:         prefix,
		PollIntervalSeconds: interval,
		SecondaryEnabled:    req.SecondaryEnabled,
	})
	if err != nil {
		return transport.QuotationDefaultsResponse{}, err
	}

	s.log.Info("quotation defaults updated",
		"customerId", saved.CustomerID,
		"pollIntervalSeconds", saved.PollIntervalSeconds,
		"secondaryEnabled", saved.SecondaryEnabled,
	)
	return s.toResponse(saved), nil
}

// PollInterval returns the configured interval, never below the floor.
// Unsaved defaults fall back to DefaultPollIntervalSeconds.
func (s *Service) PollInterval(ctx context.Context) (time.Duration, error) {
	d, err := s.repo.Get(ctx)
	if err != nil {
		if apperr.Is(err, apperr.KindNotConfigured) {
			return time.Duration(repository.DefaultPollIntervalSeconds) * time.Second, nil
		}
		return 0, err
	}
	return time.Duration(clampInterval(d.PollIntervalSeconds)) * time.Second, nil
}

func clampInterval(seconds int) int {
	if seconds < repository.MinPollIntervalSeconds {
		return repository.MinPollIntervalSeconds
	}
	return seconds
}

func (s *Service) toResponse(d repository.QuotationDefaults) transport.QuotationDefaultsResponse {
	return transport.QuotationDefaultsResponse{
		CustomerID:          d.CustomerID,
		DefaultStatus:       d.DefaultStatus,
		TitlePrefix:         d.TitlePrefix,
		PollIntervalSeconds: clampInterval(d.PollIntervalSeconds),
		SecondaryEnabled:    d.SecondaryEnabled,
		SecondaryConfigured: s.secondaryConfigured,
		UpdatedAt:           d.UpdatedAt,
	}
}
