package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/churchevent-ux/registerform--event-final/internal/observability"
)

type Job func(ctx context.Context) error

// Runner runs named jobs on tickers until its context is cancelled.
type Runner struct {
	ctx context.Context
	log *zap.Logger
	wg  sync.WaitGroup
}

func New(ctx context.Context, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{ctx: ctx, log: log}
}

// Every runs fn each interval; a non-positive interval leaves the job unscheduled.
func (r *Runner) Every(interval time.Duration, name string, fn Job) {
	if interval <= 0 {
		r.log.Warn("job not scheduled", zap.String("job", name), zap.Duration("interval", interval))
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-t.C:
				r.run(name, fn)
			}
		}
	}()
}

// Wait blocks until every job loop has returned.
func (r *Runner) Wait() { r.wg.Wait() }

func (r *Runner) run(name string, fn Job) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			jobErrors.WithLabelValues(name).Inc()
			observability.CaptureErr(fmt.Errorf("panic in job %s: %v", name, rec))
			r.log.Error("job panicked", zap.String("job", name), zap.Any("panic", rec))
		}
		jobRuns.WithLabelValues(name).Inc()
		jobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()
	if err := fn(r.ctx); err != nil {
		jobErrors.WithLabelValues(name).Inc()
		observability.CaptureErr(err)
		r.log.Warn("job failed", zap.String("job", name), zap.Error(err))
	}
}
