package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"printstore_backend/internal/email"
	"printstore_backend/internal/integration/repository"
	integrationsvc "printstore_backend/internal/integration/service"
	"printstore_backend/internal/notification"
	ordersrepo "printstore_backend/internal/orders/repository"
	jobsrepo "printstore_backend/internal/printjobs/repository"
	"printstore_backend/internal/scheduler"
	"printstore_backend/platform/config"
	"printstore_backend/platform/db"
	"printstore_backend/platform/events"
	"printstore_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	sender := newEmailSender(cfg, log)
	notificationModule := notification.NewModule(sender, cfg.GetOperatorAlertEmail(), log)
	notificationModule.RegisterHandlers(eventBus)

	engine := integrationsvc.New(
		ordersrepo.New(pool),
		jobsrepo.New(pool),
		repository.New(pool),
		eventBus,
		log,
	)

	repairLoop := scheduler.NewRepairLoop(engine, cfg, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		repairLoop.Run(gctx)
		return nil
	})

	// The queue worker needs Redis; the periodic sweep does not.
	if cfg.GetRedisURL() != "" {
		worker, err := scheduler.NewWorker(cfg, engine, log)
		if err != nil {
			log.Error("failed to initialize scheduler worker", "error", err)
			panic("failed to initialize scheduler worker: " + err.Error())
		}
		g.Go(func() error {
			worker.Run(gctx)
			return nil
		})
	} else {
		log.Warn("REDIS_URL not configured; queued repair tasks disabled")
	}

	if err := g.Wait(); err != nil {
		log.Error("scheduler stopped", "error", err)
	}
}

func newEmailSender(cfg config.EmailConfig, log *logger.Logger) email.Sender {
	if !cfg.GetEmailEnabled() || cfg.GetSMTPHost() == "" {
		log.Warn("SMTP not configured; operator alert emails disabled")
		return email.NoopSender{}
	}

	return email.NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
