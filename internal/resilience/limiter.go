package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ServiceLimits caps traffic toward one external service: at most
// MaxInFlight concurrent calls, at least MinInterval between call starts.
type ServiceLimits struct {
	MaxInFlight int64         `yaml:"max_in_flight" mapstructure:"max_in_flight"`
	MinInterval time.Duration `yaml:"min_interval" mapstructure:"min_interval"`
}

// DefaultServiceLimits returns limits suitable for a typical REST API.
func DefaultServiceLimits() ServiceLimits {
	return ServiceLimits{MaxInFlight: 4, MinInterval: 250 * time.Millisecond}
}

type serviceLimiter struct {
	sem     *semaphore.Weighted
	ticker  *rate.Limiter
}

// LimiterRegistry owns the per-service concurrency ceilings and rate
// clocks. All mutable state lives on the instance, scoped to one
// orchestrator run; it is never shared through globals.
type LimiterRegistry struct {
	mu       sync.Mutex
	limiters map[string]*serviceLimiter
	defaults ServiceLimits
	perSvc   map[string]ServiceLimits
}

// NewLimiterRegistry builds a registry with the given defaults and optional
// per-service overrides.
func NewLimiterRegistry(defaults ServiceLimits, perService map[string]ServiceLimits) *LimiterRegistry {
	if defaults.MaxInFlight <= 0 {
		defaults.MaxInFlight = DefaultServiceLimits().MaxInFlight
	}
	if defaults.MinInterval < 0 {
		defaults.MinInterval = 0
	}
	return &LimiterRegistry{
		limiters: make(map[string]*serviceLimiter),
		defaults: defaults,
		perSvc:   perService,
	}
}

func (r *LimiterRegistry) get(service string) *serviceLimiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters[service]; ok {
		return l
	}

	limits := r.defaults
	if override, ok := r.perSvc[service]; ok {
		if override.MaxInFlight > 0 {
			limits.MaxInFlight = override.MaxInFlight
		}
		if override.MinInterval > 0 {
			limits.MinInterval = override.MinInterval
		}
	}

	l := &serviceLimiter{
		sem: semaphore.NewWeighted(limits.MaxInFlight),
	}
	if limits.MinInterval > 0 {
		l.ticker = rate.NewLimiter(rate.Every(limits.MinInterval), 1)
	} else {
		l.ticker = rate.NewLimiter(rate.Inf, 1)
	}
	r.limiters[service] = l
	return l
}

// Slot blocks until the named service has an in-flight slot free, or ctx is
// cancelled. The returned release func must be called when the operation
// (including its retries) completes.
func (r *LimiterRegistry) Slot(ctx context.Context, service string) (release func(), err error) {
	l := r.get(service)
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, eris.Wrapf(err, "limiter: acquire slot for %s", service)
	}
	return func() { l.sem.Release(1) }, nil
}

// Pace blocks until the named service's minimum inter-call interval has
// elapsed. Called before every attempt, so retries are paced too.
func (r *LimiterRegistry) Pace(ctx context.Context, service string) error {
	if err := r.get(service).ticker.Wait(ctx); err != nil {
		return eris.Wrapf(err, "limiter: rate wait for %s", service)
	}
	return nil
}
