package service

import (
	"context"
	"testing"
	"time"

	"picklist_converter/internal/settings/repository"
	"picklist_converter/internal/settings/transport"
	"picklist_converter/platform/apperr"
	"picklist_converter/platform/logger"
	"picklist_converter/platform/validator"
)

type fakeRepo struct {
	saved *repository.QuotationDefaults
}

func (f *fakeRepo) Get(_ context.Context) (repository.QuotationDefaults, error) {
	if f.saved == nil {
		return repository.QuotationDefaults{}, apperr.NotConfigured("quotation defaults are not configured")
	}
	return *f.saved, nil
}

func (f *fakeRepo) Save(_ context.Context, d repository.QuotationDefaults) (repository.QuotationDefaults, error) {
	f.saved = &d
	return d, nil
}

func newTestService(repo *fakeRepo) *Service {
	return New(repo, validator.New(), true, logger.Nop())
}

func TestUpdateRejectsIntervalBelowFloor(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo)

	_, err := svc.Update(context.Background(), transport.UpdateQuotationDefaultsRequest{
		CustomerID:          12,
		TitlePrefix:         "PL",
		PollIntervalSeconds: 5,
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if repo.saved != nil {
		t.Fatalf("expected nothing saved")
	}
}

func TestUpdateRejectsBlankPrefix(t *testing.T) {
	svc := newTestService(&fakeRepo{})

	for _, prefix := range []string{"   ", "<br>"} {
		_, err := svc.Update(context.Background(), transport.UpdateQuotationDefaultsRequest{
			CustomerID:  12,
			TitlePrefix: prefix,
		})
		if !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("prefix %q: expected validation error, got %v", prefix, err)
		}
	}
}

func TestUpdateDefaultsInterval(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo)

	resp, err := svc.Update(context.Background(), transport.UpdateQuotationDefaultsRequest{
		CustomerID:       12,
		DefaultStatus:    1,
		TitlePrefix:      " PL ",
		SecondaryEnabled: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.PollIntervalSeconds != repository.DefaultPollIntervalSeconds {
		t.Fatalf("expected default interval, got %d", resp.PollIntervalSeconds)
	}
	if resp.TitlePrefix != "PL" {
		t.Fatalf("expected trimmed prefix, got %q", resp.TitlePrefix)
	}
	if !resp.SecondaryConfigured {
		t.Fatalf("expected secondary configured flag")
	}
}

func TestPollInterval(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo)
	ctx := context.Background()

	got, err := svc.PollInterval(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 60*time.Second {
		t.Fatalf("expected 60s before configuration, got %s", got)
	}

	repo.saved = &repository.QuotationDefaults{CustomerID: 1, TitlePrefix: "PL", PollIntervalSeconds: 3}
	got, err = svc.PollInterval(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 10*time.Second {
		t.Fatalf("expected floor of 10s, got %s", got)
	}
}

func TestGetNotConfigured(t *testing.T) {
	svc := newTestService(&fakeRepo{})

	_, err := svc.Get(context.Background())
	if !apperr.Is(err, apperr.KindNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
}
