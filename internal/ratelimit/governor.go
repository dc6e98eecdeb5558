package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"polymarket-ingest/internal/config"
	"polymarket-ingest/internal/metrics"
)

type Class string

const (
	ClassGammaGeneral     Class = "gamma-general"
	ClassGammaMarkets     Class = "gamma-markets"
	ClassGammaComments    Class = "gamma-comments"
	ClassClobPriceHistory Class = "clob-price-history"
	ClassDataPositions    Class = "data-positions"
	ClassDataTrades       Class = "data-trades"
)

var ErrUnknownClass = errors.New("unknown rate class")

// Limit bounds one class: at most Quota starts in any rolling Interval and
// at most Concurrency calls in flight. Zero values disable that bound.
type Limit struct {
	Quota       int
	Interval    time.Duration
	Concurrency int
	MinSpacing  time.Duration
}

func LimitsFromConfig(cfg config.RateLimitsConfig) map[Class]Limit {
	limit := func(quota, concurrency int) Limit {
		return Limit{Quota: quota, Interval: cfg.Interval, Concurrency: concurrency, MinSpacing: cfg.MinSpacing}
	}
	return map[Class]Limit{
		ClassGammaGeneral:     limit(cfg.GammaGeneral, cfg.Concurrency.General),
		ClassGammaMarkets:     limit(cfg.GammaMarkets, cfg.Concurrency.Markets),
		ClassGammaComments:    limit(cfg.GammaComments, cfg.Concurrency.Comments),
		ClassClobPriceHistory: limit(cfg.ClobPriceHistory, cfg.Concurrency.PriceHistory),
		ClassDataPositions:    limit(cfg.DataPositions, cfg.Concurrency.Positions),
		ClassDataTrades:       limit(cfg.DataTrades, cfg.Concurrency.Trades),
	}
}

type Governor struct {
	classes  map[Class]*classLimiter
	fallback Class
	metrics  *metrics.Metrics
}

type Option func(*Governor)

// WithFallback routes calls for unconfigured classes to class.
func WithFallback(class Class) Option {
	return func(g *Governor) { g.fallback = class }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Governor) { g.metrics = m }
}

func NewGovernor(limits map[Class]Limit, opts ...Option) *Governor {
	g := &Governor{classes: make(map[Class]*classLimiter, len(limits))}
	for class, limit := range limits {
		g.classes[class] = newClassLimiter(class, limit)
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type classLimiter struct {
	class   Class
	limit   Limit
	sem     *semaphore.Weighted
	spacing *rate.Limiter

	mu     sync.Mutex
	starts []time.Time
	// onAdmit observes admission times; used by tests.
	onAdmit func(time.Time)
}

func newClassLimiter(class Class, limit Limit) *classLimiter {
	cl := &classLimiter{class: class, limit: limit}
	if limit.Concurrency > 0 {
		cl.sem = semaphore.NewWeighted(int64(limit.Concurrency))
	}
	if limit.MinSpacing > 0 {
		cl.spacing = rate.NewLimiter(rate.Every(limit.MinSpacing), 1)
	}
	return cl
}

// Permit is held for the duration of one governed call.
type Permit struct {
	cl      *classLimiter
	metrics *metrics.Metrics
	once    sync.Once
}

func (p *Permit) Release() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		if p.cl.sem != nil {
			p.cl.sem.Release(1)
		}
		p.metrics.AddInFlight(string(p.cl.class), -1)
	})
}

// Acquire blocks until class has a free slot and window capacity. It only
// fails when ctx ends first, in which case nothing is held or consumed.
func (g *Governor) Acquire(ctx context.Context, class Class) (*Permit, error) {
	cl, err := g.lookup(class)
	if err != nil {
		return nil, err
	}
	began := time.Now()

	if cl.sem != nil {
		if err := cl.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
	}
	release := func() {
		if cl.sem != nil {
			cl.sem.Release(1)
		}
	}
	if cl.spacing != nil {
		if err := cl.spacing.Wait(ctx); err != nil {
			release()
			return nil, err
		}
	}
	if err := cl.reserve(ctx); err != nil {
		release()
		return nil, err
	}

	g.metrics.ObserveGovernorWait(string(cl.class), time.Since(began))
	g.metrics.AddInFlight(string(cl.class), 1)
	return &Permit{cl: cl, metrics: g.metrics}, nil
}

// Do runs fn under a permit of class and always releases it.
func (g *Governor) Do(ctx context.Context, class Class, fn func(ctx context.Context) error) error {
	permit, err := g.Acquire(ctx, class)
	if err != nil {
		return err
	}
	defer permit.Release()
	return fn(ctx)
}

// Run is Do for calls that return a value.
func Run[T any](ctx context.Context, g *Governor, class Class, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := g.Do(ctx, class, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}

func (g *Governor) lookup(class Class) (*classLimiter, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: %s (no governor)", ErrUnknownClass, class)
	}
	if cl, ok := g.classes[class]; ok {
		return cl, nil
	}
	if cl, ok := g.classes[g.fallback]; ok && g.fallback != "" {
		return cl, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownClass, class)
}

// reserve records a start once fewer than Quota starts fall inside the
// trailing Interval.
func (cl *classLimiter) reserve(ctx context.Context) error {
	if cl.limit.Quota <= 0 || cl.limit.Interval <= 0 {
		return nil
	}
	for {
		cl.mu.Lock()
		now := time.Now()
		cl.prune(now)
		if len(cl.starts) < cl.limit.Quota {
			cl.starts = append(cl.starts, now)
			if cl.onAdmit != nil {
				cl.onAdmit(now)
			}
			cl.mu.Unlock()
			return nil
		}
		wait := cl.starts[0].Add(cl.limit.Interval).Sub(now)
		cl.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (cl *classLimiter) prune(now time.Time) {
	cutoff := now.Add(-cl.limit.Interval)
	i := 0
	for i < len(cl.starts) && !cl.starts[i].After(cutoff) {
		i++
	}
	if i > 0 {
		cl.starts = append(cl.starts[:0], cl.starts[i:]...)
	}
}
