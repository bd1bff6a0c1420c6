// Package cronrunner schedules context-aware jobs on robfig/cron.
package cronrunner

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/rewired-gh/oddsaudit/internal/logger"
)

// Runner runs jobs on cron specs such as "@every 5m" or "*/5 * * * *".
// A job that is still running when its next slot arrives is skipped.
type Runner struct {
	cron    *cron.Cron
	baseCtx context.Context
}

// New creates a runner on the standard five-field parser. A nil baseCtx means context.Background.
func New(baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	log := cronLogger{}
	return &Runner{
		cron: cron.New(
			cron.WithLogger(log),
			cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
		),
		baseCtx: baseCtx,
	}
}

// Add registers job under spec. Every run receives the runner's base context.
func (r *Runner) Add(spec string, job func(context.Context)) (cron.EntryID, error) {
	id, err := r.cron.AddFunc(spec, func() {
		job(r.baseCtx)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to schedule %q: %w", spec, err)
	}
	return id, nil
}

// Start begins scheduling in the background.
func (r *Runner) Start() {
	logger.Info("Scheduler started with %d job(s)", len(r.cron.Entries()))
	r.cron.Start()
}

// Stop halts scheduling and waits for running jobs to return.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	logger.Info("Scheduler stopped")
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("cron: %s %v", msg, keysAndValues)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("cron: %s: %v %v", msg, err, keysAndValues)
}
