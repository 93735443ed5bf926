package httpdto

import (
	"time"

	"govalert/internal/domain/provider"
)

type UpdateProviderRequest struct {
	Priority              *int  `json:"priority"`
	Active                *bool `json:"active"`
	SupportsInternational *bool `json:"supports_international"`
}

type ProviderResponse struct {
	ID                    string    `json:"id"`
	Identifier            string    `json:"identifier"`
	Channel               string    `json:"channel"`
	Priority              int       `json:"priority"`
	Active                bool      `json:"active"`
	SupportsInternational bool      `json:"supports_international"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func NewProviderResponse(p provider.ProviderDetails) ProviderResponse {
	return ProviderResponse{
		ID:                    p.ID.String(),
		Identifier:            p.Identifier,
		Channel:               string(p.Channel),
		Priority:              p.Priority,
		Active:                p.Active,
		SupportsInternational: p.SupportsInternational,
		UpdatedAt:             p.UpdatedAt,
	}
}
