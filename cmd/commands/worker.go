package commands

// Long-running scheduler process
// Registers every enabled task with asynq (one scheduler per timezone) and executes them
// Overlapping runs of a task are skipped through a Redis lock
// Implements graceful shutdown on SIGINT/SIGTERM

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"irys-monitor/internal/infra/log"
	"irys-monitor/internal/infra/retry"
	"irys-monitor/internal/tasks"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run all enabled tasks on their schedules",
	Long:  `Start the asynq schedulers and task server. Requires Redis for the task queue and the overlap locks.`,
	RunE:  runWorker,
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	defs := tasks.Enabled(tasks.Registry(cfg, tasks.NewFactories(cfg)))
	if err := tasks.Require(cfg, defs...); err != nil {
		log.LogError("Missing required configuration", zap.Error(err))
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}

	runner := &tasks.Runner{
		Lockers: tasks.RedisLockers(rdb),
		LockTTL: cfg.Worker.LockTTL,
		Timeout: cfg.Worker.TaskTimeout,
	}
	worker := tasks.NewWorker(
		asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB},
		defs,
		runner,
		retry.DefaultPolicy(),
		tasks.WorkerConfig{
			Queue:           cfg.Worker.Queue,
			Concurrency:     cfg.Worker.Concurrency,
			TaskTimeout:     cfg.Worker.TaskTimeout,
			ShutdownTimeout: cfg.Worker.ShutdownTimeout,
		},
	)

	if err := worker.Run(ctx); err != nil {
		log.LogError("Worker stopped with error", zap.Error(err))
		return err
	}
	log.LogSuccess("Worker stopped")
	return nil
}
