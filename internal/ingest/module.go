package ingest

import (
	"leadsignal_backend/internal/events"
	apphttp "leadsignal_backend/internal/http"
	"leadsignal_backend/platform/config"
	"leadsignal_backend/platform/logger"
	"leadsignal_backend/platform/secretbox"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the ingest bounded context module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule wires repository, service and handler.
func NewModule(pool *pgxpool.Pool, box *secretbox.Box, cfg config.IngestConfig, eventBus events.Bus, log *logger.Logger) *Module {
	repo := NewRepository(pool, box)
	service := NewService(repo, eventBus, cfg.GetPhoneDefaultRegion(), log)
	return &Module{
		handler: NewHandler(service, cfg.GetWebhookMaxBodyBytes(), log),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "ingest"
}

// RegisterRoutes mounts the public webhook receiver. Authentication is the
// per-source HMAC signature, not JWT.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/webhooks/:provider", m.handler.HandleWebhook)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
