package runner

import (
	"context"

	"github.com/torosent/flybench/internal/metrics"
)

// FailureLogger logs failed requests.
type FailureLogger interface {
	LogFailure(r metrics.RequestResult)
}

// loggingExecutor wraps an Executor with failure logging.
type loggingExecutor struct {
	inner  Executor
	logger FailureLogger
}

// WithLogging wraps an Executor to log failures.
func WithLogging(exec Executor, logger FailureLogger) Executor {
	if logger == nil {
		return exec
	}
	return &loggingExecutor{
		inner:  exec,
		logger: logger,
	}
}

func (l *loggingExecutor) Execute(ctx context.Context) metrics.RequestResult {
	r := l.inner.Execute(ctx)
	if !r.Success {
		l.logger.LogFailure(r)
	}
	return r
}
