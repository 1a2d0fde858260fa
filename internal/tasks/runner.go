package tasks

import (
	"context"
	"errors"
	"time"

	"irys-monitor/internal/infra/lock"
	"irys-monitor/internal/infra/log"
	"irys-monitor/internal/jobs"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Locker guards a task against overlapping runs.
type Locker interface {
	Lock(ctx context.Context, ttl time.Duration) error
	Unlock(ctx context.Context) error
}

// LockerFactory returns the lock for one run of taskID. runID identifies the owner.
type LockerFactory func(taskID, runID string) Locker

// RedisLockers returns lockers keyed per task id.
func RedisLockers(client redis.UniversalClient) LockerFactory {
	return func(taskID, runID string) Locker {
		return lock.NewLocker(client, "irys-monitor:lock:"+taskID, runID)
	}
}

// Runner executes one task run: builds the run context, takes the overlap
// lock, runs the job and logs the outcome.
type Runner struct {
	Lockers LockerFactory // nil disables overlap protection
	LockTTL time.Duration
	Timeout time.Duration
}

const defaultLockTTL = 10 * time.Minute

func (r *Runner) Run(ctx context.Context, def Definition, ts time.Time) (jobs.Result, error) {
	rc := jobs.RunContext{
		TaskID:    def.ID,
		RunID:     uuid.NewString(),
		Timestamp: ts,
		Timezone:  def.Timezone,
	}
	logger := log.RunLogger(rc.TaskID, rc.RunID)
	logger.Info("Running " + rc.TaskID + " at " + rc.LocalTime())

	if r.Lockers != nil {
		l := r.Lockers(rc.TaskID, rc.RunID)
		ttl := r.LockTTL
		if ttl <= 0 {
			ttl = defaultLockTTL
		}
		if err := l.Lock(ctx, ttl); err != nil {
			if errors.Is(err, lock.ErrHeld) {
				log.LogWarn("Previous run still in progress, skipping", zap.String("task_id", rc.TaskID), zap.String("run_id", rc.RunID))
				return jobs.Result{TaskID: rc.TaskID, Skipped: true}, nil
			}
			logger.Error("Failed to acquire run lock", zap.Error(err))
			return jobs.Result{}, err
		}
		defer func() {
			// the run context may already be cancelled
			unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := l.Unlock(unlockCtx); err != nil {
				logger.Warn("Failed to release run lock", zap.Error(err))
			}
		}()
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := def.Job.Run(ctx, rc)
	if err != nil {
		log.LogError("Task failed: "+rc.TaskID,
			zap.String("task_id", rc.TaskID),
			zap.String("run_id", rc.RunID),
			zap.String("kind", jobs.KindOf(err).String()),
			zap.Error(err))
		return jobs.Result{}, err
	}

	log.LogSuccess("Notification sent: "+rc.TaskID,
		zap.String("task_id", rc.TaskID),
		zap.String("run_id", rc.RunID),
		zap.Duration("elapsed", time.Since(start)))
	logger.Debug("Run result", zap.String("message", res.Message))
	return res, nil
}
