package scheduler

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	integrationsvc "printstore_backend/internal/integration/service"
	"printstore_backend/platform/config"
	"printstore_backend/platform/logger"
)

// Worker consumes repair tasks from the asynq queue.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	engine *integrationsvc.Service
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, engine *integrationsvc.Service, log *logger.Logger) (*Worker, error) {
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
		engine: engine,
		log:    log,
	}

	mux.HandleFunc(TaskIntegrationRepair, w.handleIntegrationRepair)

	return w, nil
}

func (w *Worker) handleIntegrationRepair(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseIntegrationRepairPayload(task)
	if err != nil {
		return err
	}

	trigger := payload.Trigger
	if trigger == "" {
		trigger = "queue"
	}

	_, _, err = w.engine.RunRepair(ctx, integrationsvc.SystemActor, payload.DaysBack, trigger)
	return err
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
