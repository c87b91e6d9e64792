package worker

import (
	"context"
	"errors"
	"fmt"
	"github.com/go-redsync/redsync/v4"
	"github.com/rookgm/connexmart/internal/logger"
	"github.com/rookgm/connexmart/internal/models"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"time"
)

const (
	// DefaultSchedule runs sweep every hour
	DefaultSchedule = "@every 1h"
	DefaultTimeout  = 5 * time.Minute

	sweepLockName = "sweep:ready-orders"
)

// ErrLockBusy is returned when other replica holds the sweep lock
var ErrLockBusy = errors.New("sweep lock is held by another process")

type OrderService interface {
	SweepReadyOrders(ctx context.Context) (models.SweepResult, error)
}

// Locker serializes sweep ticks between service replicas
type Locker interface {
	// TryLock acquires lock without waiting, release must be called when done
	TryLock(ctx context.Context) (release func(ctx context.Context), err error)
}

// OrderProcessor is worker that periodically promotes paid orders to Ready
type OrderProcessor struct {
	svc      OrderService
	locker   Locker
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
}

// NewOrderProcessor create new order processor, locker may be nil
func NewOrderProcessor(svc OrderService, schedule string, timeout time.Duration, locker Locker) *OrderProcessor {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	cl := cronLogger{log: logger.Log.Sugar().Named("cron")}

	return &OrderProcessor{
		svc:      svc,
		locker:   locker,
		schedule: schedule,
		timeout:  timeout,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
}

// Start registers sweep job and starts scheduler in its own goroutine
func (op *OrderProcessor) Start() error {
	_, err := op.cron.AddFunc(op.schedule, func() {
		op.ProcessOrders(context.Background())
	})
	if err != nil {
		return err
	}

	op.cron.Start()
	logger.Log.Info("order processor started", zap.String("schedule", op.schedule))

	return nil
}

// Stop stops scheduler and waits for running sweep until ctx is done
func (op *OrderProcessor) Stop(ctx context.Context) {
	done := op.cron.Stop()

	select {
	case <-done.Done():
		logger.Log.Debug("order processor is done")
	case <-ctx.Done():
		logger.Log.Warn("order processor stop timed out")
	}
}

// ProcessOrders runs one sweep tick
func (op *OrderProcessor) ProcessOrders(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, op.timeout)
	defer cancel()

	if op.locker != nil {
		release, err := op.locker.TryLock(ctx)
		if errors.Is(err, ErrLockBusy) {
			logger.Log.Info("skip sweep, lock held elsewhere")
			return
		}
		if err != nil {
			logger.Log.Error("skip sweep, lock not acquired", zap.Error(err))
			return
		}
		defer release(context.WithoutCancel(ctx))
	}

	res, err := op.svc.SweepReadyOrders(ctx)
	if err != nil {
		logger.Log.Error("error sweep ready orders", zap.Error(err))
	}

	logger.Log.Info("sweep finished",
		zap.Int("selected", res.Selected),
		zap.Int("ready", res.Ready),
		zap.Int("notified", res.Notified),
		zap.Int("failed", res.Failed))
}

// RedisLocker is Locker backed by redsync mutex
type RedisLocker struct {
	rs     *redsync.Redsync
	expiry time.Duration
}

// NewRedisLocker creates new RedisLocker, expiry should exceed sweep timeout
func NewRedisLocker(rs *redsync.Redsync, expiry time.Duration) *RedisLocker {
	return &RedisLocker{rs: rs, expiry: expiry}
}

// lockError maps redsync failure to ErrLockBusy when lock is held elsewhere
func lockError(err error) error {
	var taken *redsync.ErrTaken
	if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
		return ErrLockBusy
	}
	return fmt.Errorf("acquire sweep lock: %w", err)
}

func (rl *RedisLocker) TryLock(ctx context.Context) (func(ctx context.Context), error) {
	mutex := rl.rs.NewMutex(
		sweepLockName,
		redsync.WithExpiry(rl.expiry),
		// one try, lock busy means sweep is running elsewhere
		redsync.WithTries(1),
	)

	if err := mutex.LockContext(ctx); err != nil {
		return nil, lockError(err)
	}

	return func(ctx context.Context) {
		if _, err := mutex.UnlockContext(ctx); err != nil {
			logger.Log.Warn("failed to release sweep lock", zap.Error(err))
		}
	}, nil
}

// cronLogger routes cron logs to zap
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
