package reporting

import (
	"encoding/json"

	"github.com/google/uuid"
)

type ListLeadsRequest struct {
	Limit  int `form:"limit" validate:"omitempty,min=1,max=100"`
	Offset int `form:"offset" validate:"omitempty,min=0"`
}

type ListLeadEventsRequest struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=200"`
}

type CreditSummaryRequest struct {
	From string `form:"from"`
	To   string `form:"to"`
}

type LeadResponse struct {
	ID             uuid.UUID `json:"id"`
	IdentityID     uuid.UUID `json:"identityId"`
	Provider       string    `json:"provider"`
	ExternalID     string    `json:"externalId"`
	DisplayName    *string   `json:"displayName"`
	IntentScore    int       `json:"intentScore"`
	Status         string    `json:"status"`
	FirstSeenAt    string    `json:"firstSeenAt"`
	LastActivityAt string    `json:"lastActivityAt"`
}

type LeadListResponse struct {
	Items  []LeadResponse `json:"items"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

type LeadEventResponse struct {
	ID         uuid.UUID       `json:"id"`
	Provider   string          `json:"provider"`
	EventType  string          `json:"eventType"`
	OccurredAt string          `json:"occurredAt"`
	PageURL    *string         `json:"pageUrl"`
	Payload    json.RawMessage `json:"payload"`
}

type CreditUsageResponse struct {
	EventType string `json:"eventType"`
	Entries   int    `json:"entries"`
	Units     int    `json:"units"`
}

type CreditSummaryResponse struct {
	From       string                `json:"from"`
	To         string                `json:"to"`
	TotalUnits int                   `json:"totalUnits"`
	Usage      []CreditUsageResponse `json:"usage"`
}
