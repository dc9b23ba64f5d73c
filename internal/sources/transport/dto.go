package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateLeadSourceRequest struct {
	Provider            string  `json:"provider" validate:"required,provider"`
	ProviderAccountID   *string `json:"providerAccountId,omitempty" validate:"omitempty,min=1,max=200"`
	ContactLevelEnabled bool    `json:"contactLevelEnabled"`
	AlertEmail          *string `json:"alertEmail,omitempty" validate:"omitempty,email,max=254"`
	GenerateSecret      bool    `json:"generateSecret"`
}

// UpdateLeadSourceRequest is a partial update. An empty providerAccountId or
// alertEmail clears the stored value.
type UpdateLeadSourceRequest struct {
	ProviderAccountID   *string `json:"providerAccountId,omitempty" validate:"omitempty,max=200"`
	IsActive            *bool   `json:"isActive,omitempty"`
	ContactLevelEnabled *bool   `json:"contactLevelEnabled,omitempty"`
	AlertEmail          *string `json:"alertEmail,omitempty" validate:"omitempty,email,max=254"`
}

type WebhookHealthResponse struct {
	LastReceivedAt *time.Time `json:"lastReceivedAt"`
	LastEventType  string     `json:"lastEventType,omitempty"`
	LastError      *string    `json:"lastError"`
	LastErrorAt    *time.Time `json:"lastErrorAt"`
}

type LeadSourceResponse struct {
	ID                  uuid.UUID             `json:"id"`
	Provider            string                `json:"provider"`
	ProviderAccountID   *string               `json:"providerAccountId"`
	IsActive            bool                  `json:"isActive"`
	ContactLevelEnabled bool                  `json:"contactLevelEnabled"`
	HasSecret           bool                  `json:"hasSecret"`
	AlertEmail          *string               `json:"alertEmail"`
	WebhookHealth       WebhookHealthResponse `json:"webhookHealth"`
	CreatedAt           string                `json:"createdAt"`
	UpdatedAt           string                `json:"updatedAt"`
}

// LeadSourceWithSecretResponse carries the plaintext secret. It is only
// returned by create and rotate, and the secret cannot be read back later.
type LeadSourceWithSecretResponse struct {
	LeadSourceResponse
	WebhookSecret string `json:"webhookSecret,omitempty"`
}
