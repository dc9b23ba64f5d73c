// Package sources provides the lead source configuration module: which
// providers a workspace accepts, their signing secrets and contact policy.
package sources

import (
	"leadsignal_backend/internal/events"
	apphttp "leadsignal_backend/internal/http"
	"leadsignal_backend/internal/sources/handler"
	"leadsignal_backend/internal/sources/repository"
	"leadsignal_backend/internal/sources/service"
	"leadsignal_backend/platform/logger"
	"leadsignal_backend/platform/secretbox"
	"leadsignal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the lead source bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule creates and initializes the lead source module.
func NewModule(pool *pgxpool.Pool, box *secretbox.Box, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, box, eventBus, log)
	return &Module{handler: handler.New(svc, val)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "sources"
}

// RegisterRoutes mounts the admin lead source routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Admin.Group("/lead-sources")
	group.POST("", m.handler.Create)
	group.GET("", m.handler.List)
	group.GET("/:sourceId", m.handler.Get)
	group.PATCH("/:sourceId", m.handler.Update)
	group.POST("/:sourceId/secret", m.handler.RotateSecret)
	group.DELETE("/:sourceId/secret", m.handler.ClearSecret)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
