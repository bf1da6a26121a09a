package services

import (
	"context"
	"time"

	"github.com/asvo/qmscore-backend/internal/pkg/logger"
)

// EscalationWorker runs the SLA sweep on a fixed interval. A zero or
// negative interval disables the loop entirely.
type EscalationWorker struct {
	log      *logger.Logger
	service  EscalationService
	interval time.Duration
}

func NewEscalationWorker(baseLog *logger.Logger, service EscalationService, interval time.Duration) *EscalationWorker {
	return &EscalationWorker{
		log:      baseLog.With("component", "EscalationWorker"),
		service:  service,
		interval: interval,
	}
}

func (w *EscalationWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		w.log.Info("Escalation worker disabled")
		return
	}
	w.log.Info("Starting escalation worker", "interval", w.interval)
	go w.runLoop(ctx)
}

func (w *EscalationWorker) runLoop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Escalation worker stopped")
			return
		case <-ticker.C:
			summary, err := w.service.CheckAndEscalate(ctx)
			if err != nil {
				w.log.Warn("Escalation sweep failed", "error", err)
				continue
			}
			if summary.NotificationsCreated > 0 {
				w.log.Info("Escalation sweep finished",
					"overdue_ncs", len(summary.OverdueNCs),
					"overdue_capas", len(summary.OverdueCapas),
					"overdue_actions", len(summary.OverdueActions),
					"notifications_created", summary.NotificationsCreated,
				)
			}
		}
	}
}
