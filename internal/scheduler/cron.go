package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Cron runs the periodic jobs in-process for deployments without an
// external scheduler.
type Cron struct {
	cron   *cron.Cron
	logger *zap.Logger
}

func NewCron(logger *zap.Logger) *Cron {
	cl := cronLogger{logger.Sugar().Named("cron")}

	return &Cron{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
	}
}

// Add registers fn under spec, e.g. "@every 10m".
func (c *Cron) Add(ctx context.Context, name, spec string, fn func(ctx context.Context)) error {
	_, err := c.cron.AddFunc(spec, func() {
		c.logger.Debug("cron job fired", zap.String("job", name))
		fn(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc %s (%q): %w", name, spec, err)
	}

	c.logger.Info("cron job registered",
		zap.String("job", name),
		zap.String("spec", spec),
	)

	return nil
}

func (c *Cron) Start() {
	c.cron.Start()
	c.logger.Info("cron started", zap.Int("jobs", len(c.cron.Entries())))
}

// Stop waits for running jobs to finish.
func (c *Cron) Stop() {
	<-c.cron.Stop().Done()
	c.logger.Info("cron stopped")
}

type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
