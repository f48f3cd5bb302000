package transport

import "time"

type UpdateQuotationDefaultsRequest struct {
	CustomerID          int64  `json:"customerId" validate:"required,gt=0"`
	DefaultStatus       int    `json:"defaultStatus" validate:"min=0"`
	TitlePrefix         string `json:"titlePrefix" validate:"required,notblank,max=40"`
	PollIntervalSeconds int    `json:"pollIntervalSeconds" validate:"omitempty,min=10,max=86400"`
	SecondaryEnabled    bool   `json:"secondaryEnabled"`
}

type QuotationDefaultsResponse struct {
	CustomerID          int64     `json:"customerId"`
	DefaultStatus       int       `json:"defaultStatus"`
	TitlePrefix         string    `json:"titlePrefix"`
	PollIntervalSeconds int       `json:"pollIntervalSeconds"`
	SecondaryEnabled    bool      `json:"secondaryEnabled"`
	SecondaryConfigured bool      `json:"secondaryConfigured"`
	UpdatedAt           time.Time `json:"updatedAt"`
}
