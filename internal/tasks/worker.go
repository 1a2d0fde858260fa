package tasks

import (
	"context"
	"fmt"
	"sort"
	"time"
	_ "time/tzdata" // cron timezones must resolve on hosts without zoneinfo

	"irys-monitor/internal/infra/log"
	"irys-monitor/internal/infra/retry"
	"irys-monitor/internal/jobs"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// WorkerConfig tunes the asynq server.
type WorkerConfig struct {
	Queue           string
	Concurrency     int
	TaskTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Worker runs enabled tasks on their cron schedules. Each timezone gets its
// own asynq scheduler; a single server executes every task type.
type Worker struct {
	redisOpt asynq.RedisConnOpt
	defs     []Definition
	runner   *Runner
	policy   retry.Policy
	cfg      WorkerConfig
	now      func() time.Time
}

func NewWorker(redisOpt asynq.RedisConnOpt, defs []Definition, runner *Runner, policy retry.Policy, cfg WorkerConfig) *Worker {
	if cfg.Queue == "" {
		cfg.Queue = "monitor"
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Worker{
		redisOpt: redisOpt,
		defs:     Enabled(defs),
		runner:   runner,
		policy:   policy,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Handler routes task types (the task ids) to the runner.
func (w *Worker) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	for _, def := range w.defs {
		mux.HandleFunc(def.ID, w.handle(def))
	}
	return mux
}

func (w *Worker) handle(def Definition) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		if retried, ok := asynq.GetRetryCount(ctx); ok && retried > 0 {
			log.LogInfo("Retrying task", zap.String("task_id", def.ID), zap.Int("attempt", retried+1))
		}
		now := w.now()
		ts, err := fireTime(def, now)
		if err != nil {
			log.LogWarn("Cannot resolve scheduled time, using handler time", zap.String("task_id", def.ID), zap.Error(err))
			ts = now
		}
		_, err = w.runner.Run(ctx, def, ts)
		if err != nil && !jobs.IsRetryable(err) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}
}

// RetryDelay is the asynq retry delay derived from the retry policy.
func (w *Worker) RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	return w.policy.Delay(n)
}

// Server builds the asynq server that executes scheduled tasks.
func (w *Worker) Server() *asynq.Server {
	return asynq.NewServer(w.redisOpt, asynq.Config{
		Concurrency:     w.cfg.Concurrency,
		Queues:          map[string]int{w.cfg.Queue: 1},
		RetryDelayFunc:  w.RetryDelay,
		ShutdownTimeout: w.cfg.ShutdownTimeout,
		Logger:          log.Sugar(),
		LogLevel:        asynq.InfoLevel,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			log.LogWarn("Task attempt failed",
				zap.String("task_id", task.Type()),
				zap.Int("retried", retried),
				zap.Int("max_retry", maxRetry),
				zap.Error(err))
		}),
	})
}

// Schedulers registers every enabled task's cron entry, one scheduler per
// timezone so each cron expression is evaluated in its own zone.
func (w *Worker) Schedulers() ([]*asynq.Scheduler, error) {
	byZone := make(map[string][]Definition)
	for _, def := range w.defs {
		tz := def.Timezone
		if tz == "" {
			tz = "UTC"
		}
		byZone[tz] = append(byZone[tz], def)
	}

	zones := make([]string, 0, len(byZone))
	for tz := range byZone {
		zones = append(zones, tz)
	}
	sort.Strings(zones)

	schedulers := make([]*asynq.Scheduler, 0, len(zones))
	for _, tz := range zones {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, jobs.ConfigurationError("scheduler", fmt.Errorf("invalid timezone %q: %w", tz, err))
		}

		s := asynq.NewScheduler(w.redisOpt, &asynq.SchedulerOpts{
			Location: loc,
			Logger:   log.Sugar(),
			LogLevel: asynq.WarnLevel,
			PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
				if err != nil {
					log.LogError("Failed to enqueue scheduled task", zap.String("timezone", tz), zap.Error(err))
					return
				}
				log.LogDebug("Scheduled task enqueued", zap.String("task_id", info.Type), zap.String("id", info.ID))
			},
		})

		for _, def := range byZone[tz] {
			opts := []asynq.Option{
				asynq.Queue(w.cfg.Queue),
				asynq.MaxRetry(w.policy.MaxRetries()),
			}
			if w.cfg.TaskTimeout > 0 {
				opts = append(opts, asynq.Timeout(w.cfg.TaskTimeout))
			}
			entryID, err := s.Register(def.Cron, asynq.NewTask(def.ID, nil), opts...)
			if err != nil {
				return nil, jobs.ConfigurationError("scheduler", fmt.Errorf("register %s (%q): %w", def.ID, def.Cron, err))
			}
			log.LogInfo("Task scheduled",
				zap.String("task_id", def.ID),
				zap.String("cron", def.Cron),
				zap.String("timezone", tz),
				zap.String("entry_id", entryID))
		}
		schedulers = append(schedulers, s)
	}
	return schedulers, nil
}

// Run starts the schedulers and the server and blocks until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	if len(w.defs) == 0 {
		return jobs.ConfigurationError("worker", fmt.Errorf("no tasks enabled"))
	}

	schedulers, err := w.Schedulers()
	if err != nil {
		return err
	}

	srv := w.Server()
	if err := srv.Start(w.Handler()); err != nil {
		return fmt.Errorf("start task server: %w", err)
	}

	started := make([]*asynq.Scheduler, 0, len(schedulers))
	for _, s := range schedulers {
		if err := s.Start(); err != nil {
			for _, st := range started {
				st.Shutdown()
			}
			srv.Shutdown()
			return fmt.Errorf("start scheduler: %w", err)
		}
		started = append(started, s)
	}
	log.LogSuccess("Worker started", zap.Int("tasks", len(w.defs)), zap.Int("schedulers", len(started)))

	<-ctx.Done()

	log.LogInfo("Shutting down worker")
	for _, s := range started {
		s.Shutdown()
	}
	srv.Shutdown()
	return nil
}
