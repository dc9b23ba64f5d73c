package ingest

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"leadsignal_backend/platform/apperr"
	"leadsignal_backend/platform/httpkit"
	"leadsignal_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgPayloadTooLarge = "Payload too large"

// Handler receives provider webhooks.
type Handler struct {
	service      *Service
	maxBodyBytes int64
	log          *logger.Logger
}

// NewHandler creates a new ingest handler.
func NewHandler(service *Service, maxBodyBytes int64, log *logger.Logger) *Handler {
	return &Handler{service: service, maxBodyBytes: maxBodyBytes, log: log}
}

// IngestResponse is returned for a newly recorded delivery.
type IngestResponse struct {
	Success bool       `json:"success"`
	EventID string     `json:"event_id"`
	LeadID  *uuid.UUID `json:"lead_id"`
}

// DeduplicatedResponse is returned when the delivery was seen before.
type DeduplicatedResponse struct {
	Success      bool `json:"success"`
	Deduplicated bool `json:"deduplicated"`
}

// HandleWebhook ingests one provider delivery.
// POST /api/v1/webhooks/:provider[?workspace_id=<uuid>]
func (h *Handler) HandleWebhook(c *gin.Context) {
	provider := strings.ToLower(strings.TrimSpace(c.Param("provider")))

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.reject(c, provider, http.StatusRequestEntityTooLarge, msgPayloadTooLarge)
			return
		}
		h.reject(c, provider, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	result, err := h.service.Ingest(c.Request.Context(), IngestRequest{
		Provider:    provider,
		Body:        body,
		Signature:   SignatureFromHeaders(c.Request.Header),
		WorkspaceID: c.Query("workspace_id"),
	})
	if err != nil {
		if kind := apperr.GetKind(err); kind == apperr.KindBadRequest || kind == apperr.KindUnauthorized {
			h.log.WithContext(c.Request.Context()).WebhookRejected(provider, err.Error(), statusOf(err))
		}
		httpkit.HandleError(c, err)
		return
	}

	if result.Deduplicated {
		httpkit.OK(c, DeduplicatedResponse{Success: true, Deduplicated: true})
		return
	}
	httpkit.OK(c, IngestResponse{Success: true, EventID: result.EventID, LeadID: result.LeadID})
}

func (h *Handler) reject(c *gin.Context, provider string, status int, msg string) {
	h.log.WithContext(c.Request.Context()).WebhookRejected(provider, msg, status)
	httpkit.Error(c, status, msg, nil)
}

func statusOf(err error) int {
	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		return domainErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}
