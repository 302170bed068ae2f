package jobs

import (
	"context"

	applogger "GammaDesk/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Runner schedules jobs on a cron with a shared base context.
type Runner struct {
	cron    *cron.Cron
	logger  *applogger.Logger
	baseCtx context.Context
	cancel  context.CancelFunc
}

func NewRunner(logger *applogger.Logger) *Runner {
	if logger == nil {
		logger = applogger.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		cron:    cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger))),
		logger:  logger,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Add registers job under a standard five-field cron spec.
func (r *Runner) Add(spec string, job func(context.Context)) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() { job(r.baseCtx) })
}

func (r *Runner) Start() {
	r.logger.Info("cron started", applogger.Int("entries", len(r.cron.Entries())))
	r.cron.Start()
}

// Stop cancels running jobs and waits for them to return.
func (r *Runner) Stop() {
	r.cancel()
	<-r.cron.Stop().Done()
	r.logger.Info("cron stopped")
}
