// Package reporting exposes read-only views over intent leads, their events
// and billed usage.
package reporting

import (
	apphttp "leadsignal_backend/internal/http"
	"leadsignal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the reporting module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates the reporting module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	return &Module{handler: NewHandler(NewRepository(pool), val)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "reporting"
}

// RegisterRoutes mounts the admin report routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Admin.GET("/intent-leads", m.handler.ListLeads)
	ctx.Admin.GET("/intent-leads/:leadId/events", m.handler.ListLeadEvents)
	ctx.Admin.GET("/credits/summary", m.handler.CreditSummary)
}

var _ apphttp.Module = (*Module)(nil)
