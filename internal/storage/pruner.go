package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner removes expired datasets from a backend on a cron schedule.
type Pruner struct {
	cron    *cron.Cron
	backend Backend
	maxAge  time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewPruner validates schedule and returns a stopped Pruner.
func NewPruner(backend Backend, schedule string, maxAge time.Duration, logger *slog.Logger) (*Pruner, error) {
	if maxAge <= 0 {
		return nil, fmt.Errorf("prune max age must be positive, got %s", maxAge)
	}
	p := &Pruner{
		cron:    cron.New(),
		backend: backend,
		maxAge:  maxAge,
		logger:  componentLogger(logger, "pruner"),
		now:     time.Now,
	}
	if _, err := p.cron.AddFunc(schedule, func() {
		if _, err := p.RunOnce(context.Background()); err != nil {
			p.logger.Warn("prune failed", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}
	return p, nil
}

// Start runs the schedule in the background.
func (p *Pruner) Start() {
	p.cron.Start()
	p.logger.Info("pruner started", "max_age", p.maxAge.String())
}

// Stop halts the schedule and waits for a running prune to finish.
func (p *Pruner) Stop() {
	<-p.cron.Stop().Done()
}

// RunOnce prunes datasets older than the max age now.
func (p *Pruner) RunOnce(ctx context.Context) (int, error) {
	n, err := p.backend.Prune(ctx, p.now().Add(-p.maxAge))
	if n > 0 {
		p.logger.Info("pruned datasets", "count", n)
	}
	return n, err
}
