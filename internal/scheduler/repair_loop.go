package scheduler

import (
	"context"
	"time"

	integrationsvc "printstore_backend/internal/integration/service"
	"printstore_backend/platform/config"
	"printstore_backend/platform/logger"
)

const defaultRepairInterval = 15 * time.Minute

// RepairLoop sweeps for drift on a fixed interval. It complements the
// event-driven sync: events catch changes as they happen, the loop
// catches whatever slipped through.
type RepairLoop struct {
	engine   *integrationsvc.Service
	log      *logger.Logger
	interval time.Duration
	daysBack int
}

func NewRepairLoop(engine *integrationsvc.Service, cfg config.ReconcilerConfig, log *logger.Logger) *RepairLoop {
	interval := cfg.GetReconcileInterval()
	if interval <= 0 {
		interval = defaultRepairInterval
	}
	return &RepairLoop{
		engine:   engine,
		log:      log,
		interval: interval,
		daysBack: cfg.GetReconcileWindowDays(),
	}
}

func (l *RepairLoop) Run(ctx context.Context) {
	if l == nil || l.engine == nil {
		return
	}

	l.sweep(ctx)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep(ctx)
		}
	}
}

func (l *RepairLoop) sweep(ctx context.Context) {
	if _, _, err := l.engine.RunRepair(ctx, integrationsvc.SystemActor, l.daysBack, "scheduler"); err != nil {
		l.log.Warn("scheduled repair sweep failed", "error", err)
	}
}
