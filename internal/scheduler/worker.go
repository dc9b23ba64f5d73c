package scheduler

import (
	"context"
	"errors"
	"fmt"

	"leadsignal_backend/internal/email"
	"leadsignal_backend/platform/config"
	"leadsignal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	store  AlertStore
	sender email.Sender
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, sender email.Sender, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		store:  newAlertStore(pool),
		sender: sender,
		log:    log,
	}

	mux.HandleFunc(TaskLeadAlert, w.handleLeadAlert)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleLeadAlert(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadAlertPayload(task)
	if err != nil {
		return fmt.Errorf("parse lead alert: %v: %w", err, asynq.SkipRetry)
	}

	workspaceID, errWs := uuid.Parse(payload.WorkspaceID)
	sourceID, errSrc := uuid.Parse(payload.SourceID)
	leadID, errLead := uuid.Parse(payload.LeadID)
	if err := errors.Join(errWs, errSrc, errLead); err != nil {
		return fmt.Errorf("lead alert ids: %v: %w", err, asynq.SkipRetry)
	}

	target, err := w.store.LoadLeadAlert(ctx, workspaceID, sourceID, leadID)
	if errors.Is(err, ErrAlertTargetNotFound) {
		w.log.Info("lead alert skipped, lead or source gone", "leadId", leadID, "sourceId", sourceID)
		return nil
	}
	if err != nil {
		return err
	}
	if target.AlertEmail == "" {
		return nil
	}

	if err := w.sender.SendLeadAlert(ctx, target.AlertEmail, target.Alert); err != nil {
		w.log.Error("lead alert email failed", "error", err, "leadId", leadID)
		return err
	}
	w.log.Info("lead alert sent", "leadId", leadID, "provider", target.Alert.Provider)
	return nil
}
