package scheduler

import (
	"context"
	"time"

	"CoinCast/internal/usecase"
	applogger "CoinCast/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler drives the daily ingestion run. A failed run is logged and
// skipped; the next tick retries from scratch.
type Scheduler struct {
	cron     *cron.Cron
	pipeline *usecase.IngestionPipeline
	l        *applogger.Logger
	spec     string
	baseCtx  context.Context
}

func New(baseCtx context.Context, pipeline *usecase.IngestionPipeline, l *applogger.Logger, spec string) *Scheduler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		pipeline: pipeline,
		l:        l,
		spec:     spec,
		baseCtx:  baseCtx,
	}
}

// Start registers the daily job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.runOnce); err != nil {
		return err
	}
	s.cron.Start()
	s.l.Info("scheduler started", applogger.String("spec", s.spec))
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.l.Info("scheduler stopped")
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(s.baseCtx, 5*time.Minute)
	defer cancel()

	start := time.Now()
	outcome, err := s.pipeline.Refresh(ctx, false)
	if err != nil {
		s.l.Error("scheduled refresh failed", applogger.Error(err))
		return
	}
	s.l.Info("scheduled refresh done",
		applogger.String("outcome", string(outcome)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
}
