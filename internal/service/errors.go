package service

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"polymarket-ingest/internal/logger"
	"polymarket-ingest/internal/metrics"
)

const defaultMaxErrors = 100

// ErrorLog collects per-item failures of one workflow run. Once it holds
// more than its limit it reports Tripped and the workflow stops starting new
// work.
type ErrorLog struct {
	workflow string
	max      int
	logger   *zap.Logger
	metrics  *metrics.Metrics

	mu       sync.Mutex
	messages []string
}

func NewErrorLog(workflow string, max int, log *zap.Logger, m *metrics.Metrics) *ErrorLog {
	if max <= 0 {
		max = defaultMaxErrors
	}
	return &ErrorLog{workflow: workflow, max: max, logger: logger.OrNop(log), metrics: m}
}

func (l *ErrorLog) Add(err error, format string, args ...any) {
	if err == nil {
		return
	}
	msg := fmt.Sprintf(format, args...) + ": " + err.Error()
	l.mu.Lock()
	l.messages = append(l.messages, msg)
	n := len(l.messages)
	l.mu.Unlock()

	l.metrics.IncItemError(l.workflow)
	l.logger.Warn("item failed", zap.String("workflow", l.workflow), zap.String("item", fmt.Sprintf(format, args...)), zap.Error(err))
	if n == l.max+1 {
		l.logger.Error("error limit reached, stopping", zap.String("workflow", l.workflow), zap.Int("max_errors", l.max))
	}
}

func (l *ErrorLog) Tripped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages) > l.max
}

func (l *ErrorLog) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages)
}

func (l *ErrorLog) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.messages...)
}

// fill copies the log into r.
func (l *ErrorLog) fill(r *Result) {
	r.Errors = append(r.Errors, l.Messages()...)
	r.ErrorCount += l.Count()
	r.Tripped = r.Tripped || l.Tripped()
}
