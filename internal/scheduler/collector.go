// Package scheduler drives repeated pipeline runs for historical collection.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/januszmateusz/weather-data-pipeline/pkg/logger"
)

// Collector runs RunSample once per interval until Samples rounds have
// completed. A failed round is logged and counted, not retried; the next
// round still happens on schedule.
type Collector struct {
	Samples   int
	Interval  time.Duration
	RunSample func(ctx context.Context, sample int) error
	Log       *logger.Logger
}

// Run blocks until every sample has been attempted or ctx is cancelled.
// The first sample starts immediately, the rest follow at Interval.
func (c *Collector) Run(ctx context.Context) error {
	if c.Samples <= 0 {
		return errors.New("collector: samples must be positive")
	}
	if c.Interval <= 0 {
		return errors.New("collector: interval must be positive")
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	var current atomic.Int32
	done := make(chan struct{})

	job := func() {
		n := int(current.Add(1))
		if n > c.Samples {
			return
		}

		c.Log.Info("Collecting sample",
			logger.Int("sample", n),
			logger.Int("total", c.Samples))
		if err := c.RunSample(ctx, n); err != nil {
			c.Log.Error("Sample collection failed",
				logger.Int("sample", n),
				logger.Error(err))
		}

		if n == c.Samples {
			close(done)
		}
	}

	if _, err := s.Every(c.Interval).StartImmediately().Do(job); err != nil {
		return fmt.Errorf("failed to schedule collection job: %w", err)
	}
	s.StartAsync()
	defer s.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		c.Log.Info("Collection finished", logger.Int("samples", c.Samples))
		return nil
	}
}
