package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/civicdesk/grievance-desk/internal/model"
)

// Source loads the complaint projections filed in [from, to).
type Source interface {
	AggregateComplaints(ctx context.Context, from, to time.Time) ([]*model.ComplaintStat, error)
}

// Aggregator serves cached summaries. Identical concurrent requests share
// one computation.
type Aggregator struct {
	source Source
	cache  Cache
	group  singleflight.Group
	now    func() time.Time
	logger *slog.Logger
}

// New creates an Aggregator. cache may be nil.
func New(source Source, cache Cache, logger *slog.Logger) *Aggregator {
	return &Aggregator{source: source, cache: cache, now: time.Now, logger: logger}
}

// SetClock overrides the time source (for testing).
func (a *Aggregator) SetClock(now func() time.Time) {
	a.now = now
}

// Summarize returns the summary for the window of length period ending now.
func (a *Aggregator) Summarize(ctx context.Context, period Period) (*Summary, error) {
	key := "analytics:summary:" + string(period)

	if a.cache != nil {
		cached, ok, err := a.cache.Get(ctx, key)
		if err != nil {
			a.logger.Warn("analytics cache read failed", "key", key, "error", err)
		} else if ok {
			return cached, nil
		}
	}

	v, err, shared := a.group.Do(key, func() (any, error) {
		return a.compute(ctx, period)
	})
	if err != nil {
		return nil, err
	}
	summary := v.(*Summary)
	if shared {
		a.logger.Debug("analytics request collapsed", "period", period)
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, key, summary); err != nil {
			a.logger.Warn("analytics cache write failed", "key", key, "error", err)
		}
	}
	return summary, nil
}

func (a *Aggregator) compute(ctx context.Context, period Period) (*Summary, error) {
	to := a.now().UTC()
	from := to.Add(-period.Duration())
	prevFrom := from.Add(-period.Duration())

	var current, previous []*model.ComplaintStat
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = a.source.AggregateComplaints(gctx, from, to)
		if err != nil {
			return fmt.Errorf("load current window: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		previous, err = a.source.AggregateComplaints(gctx, prevFrom, from)
		if err != nil {
			return fmt.Errorf("load previous window: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, model.Dependency("aggregate complaints", err)
	}

	s := Compute(current, from, to)
	s.Period = period
	s.PreviousTotal = len(previous)
	s.GrowthPercent = Growth(s.Total, s.PreviousTotal)

	a.logger.Info("analytics computed", "period", period, "total", s.Total, "previous_total", s.PreviousTotal)
	return s, nil
}
