package handler

import (
	"net/http"
	"strings"

	"leadsignal_backend/internal/sources/service"
	"leadsignal_backend/internal/sources/transport"
	"leadsignal_backend/platform/httpkit"
	"leadsignal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid lead source id"
)

// Handler handles lead source administration.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new lead source handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Create registers a provider integration.
// POST /api/v1/admin/lead-sources
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	req.Provider = strings.ToLower(strings.TrimSpace(req.Provider))
	if !h.validate(c, req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Create(c.Request.Context(), identity.TenantID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// List returns the workspace's lead sources.
// GET /api/v1/admin/lead-sources
func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.List(c.Request.Context(), identity.TenantID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Get returns one lead source including webhook health.
// GET /api/v1/admin/lead-sources/:sourceId
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseSourceID(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Get(c.Request.Context(), identity.TenantID(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Update changes activation, policy, account id or alert email.
// PATCH /api/v1/admin/lead-sources/:sourceId
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseSourceID(c)
	if !ok {
		return
	}

	var req transport.UpdateLeadSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if !h.validate(c, req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Update(c.Request.Context(), identity.TenantID(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// RotateSecret issues a new signing secret.
// POST /api/v1/admin/lead-sources/:sourceId/secret
func (h *Handler) RotateSecret(c *gin.Context) {
	id, ok := parseSourceID(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.RotateSecret(c.Request.Context(), identity.TenantID(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ClearSecret removes the signing secret.
// DELETE /api/v1/admin/lead-sources/:sourceId/secret
func (h *Handler) ClearSecret(c *gin.Context) {
	id, ok := parseSourceID(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.ClearSecret(c.Request.Context(), identity.TenantID(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) validate(c *gin.Context, req interface{}) bool {
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}

func parseSourceID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("sourceId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, false
	}
	return id, true
}
