package reporting

import (
	"net/http"
	"strings"
	"time"

	"leadsignal_backend/platform/httpkit"
	"leadsignal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidLeadID    = "invalid lead id"
	msgInvalidRange     = "invalid date range"

	defaultLeadLimit  = 25
	defaultEventLimit = 50
	dateLayout        = "2006-01-02"
)

// Handler serves read-only lead and usage reports.
type Handler struct {
	reader Reader
	val    *validator.Validator
	now    func() time.Time
}

// NewHandler creates a new reporting handler.
func NewHandler(reader Reader, val *validator.Validator) *Handler {
	return &Handler{reader: reader, val: val, now: time.Now}
}

// ListLeads returns the workspace's intent leads, most recently active first.
// GET /api/v1/admin/intent-leads
func (h *Handler) ListLeads(c *gin.Context) {
	var req ListLeadsRequest
	if !h.bindQuery(c, &req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultLeadLimit
	}

	rows, total, err := h.reader.ListLeads(c.Request.Context(), identity.TenantID(), req.Limit, req.Offset)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]LeadResponse, len(rows))
	for i, row := range rows {
		items[i] = LeadResponse{
			ID:             row.ID,
			IdentityID:     row.IdentityID,
			Provider:       row.Provider,
			ExternalID:     row.ExternalID,
			DisplayName:    row.DisplayName,
			IntentScore:    row.IntentScore,
			Status:         row.Status,
			FirstSeenAt:    row.FirstSeenAt.UTC().Format(time.RFC3339),
			LastActivityAt: row.LastActivityAt.UTC().Format(time.RFC3339),
		}
	}
	httpkit.OK(c, LeadListResponse{Items: items, Total: total, Limit: req.Limit, Offset: req.Offset})
}

// ListLeadEvents returns a lead's sanitized events, newest first.
// GET /api/v1/admin/intent-leads/:leadId/events
func (h *Handler) ListLeadEvents(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}
	var req ListLeadEventsRequest
	if !h.bindQuery(c, &req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultEventLimit
	}

	rows, err := h.reader.ListLeadEvents(c.Request.Context(), identity.TenantID(), leadID, req.Limit)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]LeadEventResponse, len(rows))
	for i, row := range rows {
		items[i] = LeadEventResponse{
			ID:         row.ID,
			Provider:   row.Provider,
			EventType:  row.EventType,
			OccurredAt: row.OccurredAt.UTC().Format(time.RFC3339Nano),
			PageURL:    row.PageURL,
			Payload:    row.Payload,
		}
	}
	httpkit.OK(c, items)
}

// CreditSummary totals billed units per billing event type over [from, to).
// Both bounds accept RFC 3339 or YYYY-MM-DD; the default range is the
// current calendar month up to now.
// GET /api/v1/admin/credits/summary
func (h *Handler) CreditSummary(c *gin.Context) {
	var req CreditSummaryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	from, to, ok := h.resolveRange(req)
	if !ok {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRange, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	rows, err := h.reader.CreditSummary(c.Request.Context(), identity.TenantID(), from, to)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := CreditSummaryResponse{
		From:  from.Format(time.RFC3339),
		To:    to.Format(time.RFC3339),
		Usage: make([]CreditUsageResponse, len(rows)),
	}
	for i, row := range rows {
		resp.Usage[i] = CreditUsageResponse{EventType: row.EventType, Entries: row.Entries, Units: row.Units}
		resp.TotalUnits += row.Units
	}
	httpkit.OK(c, resp)
}

func (h *Handler) resolveRange(req CreditSummaryRequest) (time.Time, time.Time, bool) {
	now := h.now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := now

	if strings.TrimSpace(req.From) != "" {
		parsed, ok := parseBound(req.From)
		if !ok {
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}
	if strings.TrimSpace(req.To) != "" {
		parsed, ok := parseBound(req.To)
		if !ok {
			return time.Time{}, time.Time{}, false
		}
		to = parsed
	}
	return from, to, from.Before(to)
}

func parseBound(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func (h *Handler) bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}
