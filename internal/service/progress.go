package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

type progress struct {
	logger   *zap.Logger
	total    int
	interval time.Duration
	start    time.Time
	last     time.Time
	now      func() time.Time
}

func newProgress(logger *zap.Logger, total int, interval time.Duration) *progress {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	now := time.Now()
	return &progress{logger: logger, total: total, interval: interval, start: now, last: now, now: time.Now}
}

func (p *progress) elapsed() time.Duration {
	return p.now().Sub(p.start)
}

// tick logs rate and ETA at most once per interval.
func (p *progress) tick(done, points int) {
	now := p.now()
	if now.Sub(p.last) < p.interval {
		return
	}
	p.last = now
	elapsed := now.Sub(p.start)
	rate := float64(done) / elapsed.Seconds()
	fields := []zap.Field{
		zap.Int("done", done),
		zap.Int("total", p.total),
		zap.Int("points", points),
		zap.String("rate", fmt.Sprintf("%.1f/s", rate)),
		zap.String("elapsed", formatDuration(elapsed)),
	}
	if eta, ok := estimateRemaining(done, p.total, elapsed); ok {
		fields = append(fields, zap.String("eta", formatDuration(eta)))
	}
	p.logger.Info("price sync progress", fields...)
}

func estimateRemaining(done, total int, elapsed time.Duration) (time.Duration, bool) {
	if done <= 0 || total <= done || elapsed <= 0 {
		return 0, false
	}
	perItem := elapsed / time.Duration(done)
	return perItem * time.Duration(total-done), true
}

// formatDuration renders "1h 2m", "3m 4s" or "5s".
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d.Truncate(time.Second) / time.Second)
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

func msDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
