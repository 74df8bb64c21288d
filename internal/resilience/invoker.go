package resilience

import (
	"context"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Invoker is the resilience decorator applied uniformly to every external
// service call: per-service concurrency ceiling, inter-call pacing, and
// bounded retries with exponential backoff. It owns nothing beyond the
// wrapped call.
type Invoker struct {
	limits *LimiterRegistry
	retry  RetryConfig
}

// NewInvoker builds an invoker over the given limiter registry and retry
// policy.
func NewInvoker(limits *LimiterRegistry, retry RetryConfig) *Invoker {
	return &Invoker{limits: limits, retry: retry}
}

// Retry returns the invoker's retry policy.
func (inv *Invoker) Retry() RetryConfig { return inv.retry }

// Invoke runs op against the named service through the invoker's policy and
// resolves the outcome to an envelope. Transient failures are retried up to
// MaxAttempts with backoff; auth and permanent failures propagate
// immediately as AUTH_ERROR / PERMANENT_ERROR; exhausting retries yields
// RETRY_EXHAUSTED carrying the last underlying error.
func Invoke[T any](ctx context.Context, inv *Invoker, service, operation string, op func(ctx context.Context) (T, error)) model.Envelope[T] {
	release, err := inv.limits.Slot(ctx, service)
	if err != nil {
		return model.FailErr[T](model.CodeRetryExhausted, err)
	}
	defer release()

	cfg := inv.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = RetryLogger(service, operation)
	}

	val, err := DoVal(ctx, cfg, func(ctx context.Context) (T, error) {
		var zero T
		if err := inv.limits.Pace(ctx, service); err != nil {
			return zero, err
		}
		return op(ctx)
	})
	if err != nil {
		return model.FailErr[T](Classify(err), err).WithDetails(map[string]any{
			"service":   service,
			"operation": operation,
		})
	}
	return model.Ok(val)
}
