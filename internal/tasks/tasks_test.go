package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"irys-monitor/internal/features/budget"
	"irys-monitor/internal/features/mintstats"
	"irys-monitor/internal/infra/config"
	"irys-monitor/internal/infra/retry"
	"irys-monitor/internal/jobs"
	"irys-monitor/internal/notify"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	task := func(cron, tz, threshold string, upload bool) config.TaskConfig {
		return config.TaskConfig{
			Enabled:    true,
			Cron:       cron,
			Timezone:   tz,
			Threshold:  decimal.RequireFromString(threshold),
			FundAmount: decimal.NewFromInt(1),
			Upload:     upload,
		}
	}
	return &config.Config{
		Irys:   config.IrysConfig{GatewayURL: "https://gateway.irys.xyz", RPCURL: "https://polygon-rpc.com"},
		Notify: config.NotifyConfig{Driver: config.DriverDiscord},
		Tasks: config.TasksConfig{
			BudgetCheck:  task("0 * * * *", "Asia/Tokyo", "0.1", false),
			BudgetUpload: task("0 * * * *", "Asia/Tokyo", "1.1", true),
			MintStats:    config.TaskConfig{Enabled: true, Cron: "0 * * * *", Timezone: "UTC"},
		},
	}
}

// countingFactories fail loudly if a client is built.
func countingFactories(calls *int) Factories {
	return Factories{
		Ledger: func(context.Context) (budget.Ledger, error) {
			*calls++
			return nil, errors.New("ledger must not be built")
		},
		Store: func(context.Context) (mintstats.Store, error) {
			*calls++
			return nil, errors.New("store must not be built")
		},
		Sink: func() (notify.Sink, error) {
			*calls++
			return nil, errors.New("sink must not be built")
		},
	}
}

func TestRegistry(t *testing.T) {
	var calls int
	defs := Registry(testConfig(), countingFactories(&calls))
	require.Len(t, defs, 3)

	check, err := Lookup(defs, BudgetCheckID)
	require.NoError(t, err)
	assert.Equal(t, "0 * * * *", check.Cron)
	assert.Equal(t, "Asia/Tokyo", check.Timezone)
	m := check.Job.(*budget.Maintainer)
	assert.Equal(t, "0.1", m.Policy.Threshold.String())
	assert.Equal(t, "1", m.Policy.FundAmount.String())
	assert.Nil(t, m.Policy.Upload)

	upload, err := Lookup(defs, BudgetUploadID)
	require.NoError(t, err)
	um := upload.Job.(*budget.Maintainer)
	assert.Equal(t, "1.1", um.Policy.Threshold.String())
	require.NotNil(t, um.Policy.Upload)
	assert.Equal(t, "https://gateway.irys.xyz", um.Policy.Upload.GatewayURL)

	mint, err := Lookup(defs, MintStatsID)
	require.NoError(t, err)
	assert.Equal(t, "UTC", mint.Timezone)
	assert.Nil(t, mint.Job.(*mintstats.Reporter).Chart)

	assert.Equal(t, 0, calls)
}

func TestLookup_Unknown(t *testing.T) {
	_, err := Lookup(Registry(testConfig(), Factories{}), "weekly-report")
	assert.True(t, jobs.IsKind(err, jobs.KindConfiguration))
}

func TestEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.Tasks.BudgetCheck.Enabled = false

	defs := Enabled(Registry(cfg, Factories{}))
	require.Len(t, defs, 2)
	assert.Equal(t, BudgetUploadID, defs[0].ID)
	assert.Equal(t, MintStatsID, defs[1].ID)
}

func TestRequire_MissingSecretsPreventExternalCalls(t *testing.T) {
	var calls int
	cfg := testConfig()
	defs := Registry(cfg, countingFactories(&calls))

	err := Require(cfg, defs...)
	require.Error(t, err)
	assert.True(t, jobs.IsKind(err, jobs.KindConfiguration))
	assert.EqualError(t, err, "config: missing required environment variables: IRYS_PRIVATE_KEY, DISCORD_WEBHOOK_URL, POSTGRES_CONNECTION_STRING")
	assert.Equal(t, 0, calls)
}

func TestRequire_PerTask(t *testing.T) {
	cfg := testConfig()
	cfg.Database.DSN = "postgres://localhost/neondb"
	cfg.Notify.DiscordWebhookURL = "https://discord.com/api/webhooks/1/abc"
	defs := Registry(cfg, Factories{})

	mint, _ := Lookup(defs, MintStatsID)
	assert.NoError(t, Require(cfg, mint))

	check, _ := Lookup(defs, BudgetCheckID)
	assert.EqualError(t, Require(cfg, check), "config: missing required environment variables: IRYS_PRIVATE_KEY")

	cfg.Irys.RPCURL = ""
	upload, _ := Lookup(defs, BudgetUploadID)
	assert.EqualError(t, Require(cfg, upload), "config: missing required environment variables: IRYS_PRIVATE_KEY, ANKR_RPC")
}

func TestRequire_BudgetTasksAlwaysNeedRPC(t *testing.T) {
	cfg := testConfig()
	cfg.Irys.PrivateKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	cfg.Irys.RPCURL = ""
	cfg.Notify.DiscordWebhookURL = "https://discord.com/api/webhooks/1/abc"
	cfg.Tasks.BudgetCheck.FundAmount = decimal.Zero

	check, err := Lookup(Registry(cfg, Factories{}), BudgetCheckID)
	require.NoError(t, err)
	assert.EqualError(t, Require(cfg, check), "config: missing required environment variables: ANKR_RPC")
}

type fakeLocker struct {
	lockErr  error
	locked   bool
	unlocked bool
}

func (f *fakeLocker) Lock(context.Context, time.Duration) error {
	if f.lockErr != nil {
		return f.lockErr
	}
	f.locked = true
	return nil
}

func (f *fakeLocker) Unlock(context.Context) error {
	f.unlocked = true
	return nil
}

func definition(job jobs.JobFunc) Definition {
	return Definition{ID: MintStatsID, Cron: "0 * * * *", Timezone: "Asia/Tokyo", Enabled: true, Job: job}
}

func TestRunner_PassesRunContext(t *testing.T) {
	ts := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)
	var got jobs.RunContext
	def := definition(func(_ context.Context, rc jobs.RunContext) (jobs.Result, error) {
		got = rc
		return jobs.Result{TaskID: rc.TaskID, Message: "ok"}, nil
	})

	locker := &fakeLocker{}
	r := &Runner{Lockers: func(string, string) Locker { return locker }}

	res, err := r.Run(context.Background(), def, ts)
	require.NoError(t, err)

	assert.Equal(t, "ok", res.Message)
	assert.Equal(t, MintStatsID, got.TaskID)
	assert.Equal(t, ts, got.Timestamp)
	assert.Equal(t, "Asia/Tokyo", got.Timezone)
	assert.NotEmpty(t, got.RunID)
	assert.True(t, locker.locked)
	assert.True(t, locker.unlocked)
}

func TestRunner_PropagatesFatalErrors(t *testing.T) {
	def := definition(func(context.Context, jobs.RunContext) (jobs.Result, error) {
		return jobs.Result{}, jobs.DeliveryError("notify", errors.New("failed to send Discord notification: Bad Gateway"))
	})

	locker := &fakeLocker{}
	r := &Runner{Lockers: func(string, string) Locker { return locker }}

	_, err := r.Run(context.Background(), def, time.Now())
	assert.True(t, jobs.IsKind(err, jobs.KindDelivery))
	assert.True(t, locker.unlocked)
}

func TestRunner_LockErrorFailsRun(t *testing.T) {
	ran := false
	def := definition(func(context.Context, jobs.RunContext) (jobs.Result, error) {
		ran = true
		return jobs.Result{}, nil
	})

	r := &Runner{Lockers: func(string, string) Locker { return &fakeLocker{lockErr: errors.New("dial tcp: connection refused")} }}

	_, err := r.Run(context.Background(), def, time.Now())
	assert.Error(t, err)
	assert.False(t, ran)
}

func TestRunner_SkipsOverlappingRun(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	r := &Runner{Lockers: RedisLockers(client), LockTTL: time.Minute}

	inner := 0
	var innerRes jobs.Result
	def := definition(func(ctx context.Context, rc jobs.RunContext) (jobs.Result, error) {
		inner++
		// a second run of the same task while this one holds the lock
		res, err := r.Run(ctx, definition(func(context.Context, jobs.RunContext) (jobs.Result, error) {
			inner++
			return jobs.Result{}, nil
		}), time.Now())
		innerRes = res
		return jobs.Result{TaskID: rc.TaskID, Message: "done"}, err
	})

	res, err := r.Run(context.Background(), def, time.Now())
	require.NoError(t, err)

	assert.Equal(t, "done", res.Message)
	assert.Equal(t, 1, inner)
	assert.True(t, innerRes.Skipped)
	assert.False(t, mr.Exists("irys-monitor:lock:"+MintStatsID))
}

func TestRunner_Timeout(t *testing.T) {
	def := definition(func(ctx context.Context, _ jobs.RunContext) (jobs.Result, error) {
		<-ctx.Done()
		return jobs.Result{}, jobs.FetchError("fetch mint stats", ctx.Err())
	})

	r := &Runner{Timeout: 20 * time.Millisecond}
	_, err := r.Run(context.Background(), def, time.Now())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func testWorker(defs []Definition) *Worker {
	return NewWorker(asynq.RedisClientOpt{Addr: "127.0.0.1:0"}, defs, &Runner{}, retry.DefaultPolicy(), WorkerConfig{})
}

func TestWorker_ConfigurationErrorsSkipRetry(t *testing.T) {
	def := definition(func(context.Context, jobs.RunContext) (jobs.Result, error) {
		return jobs.Result{}, jobs.MissingSecretsError("DISCORD_WEBHOOK_URL")
	})
	w := testWorker([]Definition{def})

	err := w.handle(def)(context.Background(), asynq.NewTask(def.ID, nil))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.True(t, jobs.IsKind(err, jobs.KindConfiguration))
}

func TestWorker_FetchErrorsAreRetried(t *testing.T) {
	def := definition(func(context.Context, jobs.RunContext) (jobs.Result, error) {
		return jobs.Result{}, jobs.FetchError("fetch balance", errors.New("http error (503)"))
	})
	w := testWorker([]Definition{def})

	err := w.handle(def)(context.Background(), asynq.NewTask(def.ID, nil))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestWorker_RetryDelayWithinPolicy(t *testing.T) {
	w := testWorker(nil)
	for n := 0; n < 5; n++ {
		d := w.RetryDelay(n, nil, nil)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 10*time.Second)
	}
}

func TestWorker_SchedulersPerTimezone(t *testing.T) {
	defs := Registry(testConfig(), Factories{})
	w := testWorker(defs)

	schedulers, err := w.Schedulers()
	require.NoError(t, err)
	assert.Len(t, schedulers, 2)
}

func TestWorker_InvalidSchedule(t *testing.T) {
	bad := definition(nil)
	bad.Timezone = "Mars/Olympus"
	_, err := testWorker([]Definition{bad}).Schedulers()
	assert.True(t, jobs.IsKind(err, jobs.KindConfiguration))

	bad = definition(nil)
	bad.Cron = "every hour"
	_, err = testWorker([]Definition{bad}).Schedulers()
	assert.True(t, jobs.IsKind(err, jobs.KindConfiguration))
}

func TestWorker_RunWithoutTasks(t *testing.T) {
	err := testWorker(nil).Run(context.Background())
	assert.True(t, jobs.IsKind(err, jobs.KindConfiguration))
}
