package runner

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Coordinator runs Repeat sessions with at most Processes in flight and sums
// their results.
type Coordinator struct {
	opt      Options
	session  *Session
	progress *rate.Sometimes
}

// NewCoordinator prepares a run of opt.Repeat sessions, opt.Processes at a time.
func NewCoordinator(opt Options) *Coordinator {
	opt.normalize()
	return &Coordinator{
		opt:      opt,
		session:  NewSession(opt),
		progress: &rate.Sometimes{First: 1, Interval: 2 * time.Second},
	}
}

// Execute blocks until every session has finished. The first session error,
// or cancellation of ctx, aborts the run: queued sessions never start and no
// partial aggregate is returned.
func (c *Coordinator) Execute(ctx context.Context) (Aggregate, error) {
	results := make([]SessionResult, c.opt.Repeat)
	var completed int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opt.Processes)

	for i := 0; i < c.opt.Repeat; i++ {
		if gctx.Err() != nil {
			break
		}
		index := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := c.session.Run(gctx, index)
			if err != nil {
				return err
			}
			results[index] = res

			done := atomic.AddInt64(&completed, 1)
			c.progress.Do(func() {
				c.opt.Logger.WithFields(logrus.Fields{
					"completed": done,
					"total":     c.opt.Repeat,
				}).Debug("sessions progress")
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Aggregate{}, err
	}
	if err := ctx.Err(); err != nil {
		return Aggregate{}, err
	}

	var agg Aggregate
	for _, res := range results {
		agg.Add(res)
	}
	return agg, nil
}
