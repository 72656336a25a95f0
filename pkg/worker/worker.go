package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/pershin-daniil/icscal/pkg/metrics"
)

type Sweeper interface {
	SweepIdleTokens(ctx context.Context, maxIdle time.Duration) (int64, error)
}

// Worker revokes ics-tokens nobody has downloaded for maxIdle.
type Worker struct {
	log      *logrus.Entry
	sweeper  Sweeper
	cronSpec string
	maxIdle  time.Duration
	schedule cron.Schedule
}

func New(log *logrus.Logger, sweeper Sweeper, spec string, maxIdle time.Duration) (*Worker, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return &Worker{
		log:      log.WithField("component", "worker"),
		sweeper:  sweeper,
		cronSpec: spec,
		maxIdle:  maxIdle,
		schedule: schedule,
	}, nil
}

func (w *Worker) SweepOnce(ctx context.Context) error {
	n, err := w.sweeper.SweepIdleTokens(ctx, w.maxIdle)
	if err != nil {
		return fmt.Errorf("worker sweep failed: %w", err)
	}
	metrics.TokensSwept.Add(float64(n))
	if n > 0 {
		w.log.Infof("revoked %d idle tokens", n)
	}
	return nil
}

// Run blocks until ctx is done, sweeping on schedule.
func (w *Worker) Run(ctx context.Context) {
	c := cron.New()
	c.Schedule(w.schedule, cron.FuncJob(func() {
		if err := w.SweepOnce(ctx); err != nil {
			w.log.Warnf("err during sweeping tokens: %v", err)
		}
	}))
	w.log.Infof("token sweeper scheduled %q, max idle %s", w.cronSpec, w.maxIdle)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
}
