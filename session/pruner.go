package session

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/deskmesh/deskmesh/core"
	"github.com/deskmesh/deskmesh/logging"
)

// Pruner periodically removes sessions past the retention window. Pruning is
// advisory housekeeping and runs off the turn critical path.
type Pruner struct {
	store    core.SessionStore
	window   time.Duration
	schedule string
	logger   logging.Logger
	cron     *cron.Cron
}

// PrunerOptions configures NewPruner.
type PrunerOptions struct {
	// Schedule is a cron expression for the pruning cadence.
	Schedule string
	// Logger receives pruning summaries. Defaults to no-op.
	Logger logging.Logger
}

// NewPruner creates a pruner that deletes sessions inactive for longer than
// window. The default schedule runs daily at 03:00.
func NewPruner(store core.SessionStore, window time.Duration, optFns ...func(o *PrunerOptions)) *Pruner {
	opts := PrunerOptions{
		Schedule: "0 3 * * *",
		Logger:   logging.NewNoOpLogger(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Pruner{
		store:    store,
		window:   window,
		schedule: opts.Schedule,
		logger:   opts.Logger,
		cron:     cron.New(),
	}
}

// Start registers the schedule and begins running prune jobs in the
// background. It returns an error if the schedule expression is invalid.
func (p *Pruner) Start() error {
	if _, err := p.cron.AddFunc(p.schedule, p.Run); err != nil {
		return err
	}
	p.cron.Start()
	return nil
}

// Stop halts the schedule and waits for an in-flight prune to finish.
func (p *Pruner) Stop() {
	ctx := p.cron.Stop()
	<-ctx.Done()
}

// Run executes a single prune pass immediately.
func (p *Pruner) Run() {
	cutoff := time.Now().UTC().Add(-p.window)
	n, err := p.store.PruneExpired(context.Background(), cutoff)
	if err != nil {
		p.logger.Error("session pruning failed", "error", err.Error())
		return
	}
	if n > 0 {
		p.logger.Info("pruned expired sessions", "count", n, "cutoff", cutoff.Format(time.RFC3339))
	}
}
