// Package orchestrator coordinates batch phase execution: it loads prospects
// from the tabular store, runs the phase's service calls through the
// resilience layer, enforces compliance before dispatch, and persists
// transitions through the upsert adapter. It holds no business rules of its
// own beyond sequencing.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/outreach-cli/internal/compliance"
	"github.com/sells-group/outreach-cli/internal/journal"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/phase"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/internal/schema"
	"github.com/sells-group/outreach-cli/internal/sheet"
	"github.com/sells-group/outreach-cli/pkg/apollo"
	"github.com/sells-group/outreach-cli/pkg/dispatch"
	"github.com/sells-group/outreach-cli/pkg/draft"
	"github.com/sells-group/outreach-cli/pkg/enrich"
)

// Service names used for per-service rate limits and retry logging.
const (
	svcApollo   = "apollo"
	svcEnrich   = "enrich"
	svcDraft    = "anthropic"
	svcDispatch = "saleshandy"
)

// defaultWorkers bounds batch concurrency when the config leaves it unset.
const defaultWorkers = 4

// Orchestrator runs prospect batches through the pipeline phases.
type Orchestrator struct {
	prospects  sheet.Store
	companies  sheet.Store
	schemas    *schema.Registry
	invoker    *resilience.Invoker
	gate       *compliance.Gate
	runs       journal.Store
	apollo     apollo.Client
	enrich     enrich.Client
	draft      draft.Client
	dispatch   dispatch.Client
	sequenceID string
	workers    int

	keys *keyedMutex
}

// New creates an orchestrator with all dependencies. The journal store may
// be nil, in which case runs are not recorded. workers <= 0 falls back to
// the default pool size.
func New(
	prospects sheet.Store,
	companies sheet.Store,
	schemas *schema.Registry,
	invoker *resilience.Invoker,
	gate *compliance.Gate,
	runs journal.Store,
	apolloClient apollo.Client,
	enrichClient enrich.Client,
	draftClient draft.Client,
	dispatchClient dispatch.Client,
	sequenceID string,
	workers int,
) *Orchestrator {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Orchestrator{
		prospects:  prospects,
		companies:  companies,
		schemas:    schemas,
		invoker:    invoker,
		gate:       gate,
		runs:       runs,
		apollo:     apolloClient,
		enrich:     enrichClient,
		draft:      draftClient,
		dispatch:   dispatchClient,
		sequenceID: sequenceID,
		workers:    workers,
		keys:       newKeyedMutex(),
	}
}

// RunPhase processes up to batchSize prospects currently sitting in the
// named phase, advancing each through its next transition. A prospect's
// failure never aborts the batch: the aggregate result always accounts for
// every loaded prospect. The envelope itself fails only when the batch
// cannot be loaded at all.
func (o *Orchestrator) RunPhase(ctx context.Context, phaseName string, batchSize int) model.Envelope[model.BatchResult] {
	source := phase.Phase(phaseName)
	if !phase.Valid(source) || source == phase.Failed || source == phase.Synced {
		return model.Failf[model.BatchResult](model.CodeValidationError, "phase %q is not processable", phaseName)
	}

	started := time.Now().UTC()
	log := zap.L().With(zap.String("phase", phaseName))

	rows, err := o.listRows(ctx, o.prospects, phaseName, batchSize)
	if err != nil {
		return model.FailErr[model.BatchResult](sheet.CodeFor(err), err)
	}
	log.Info("batch loaded", zap.Int("prospects", len(rows)))

	result := model.BatchResult{Phase: phaseName}
	var mu sync.Mutex
	record := func(outcome, key string, reason *model.FailureReason) {
		mu.Lock()
		defer mu.Unlock()
		if outcome == model.OutcomeFailed {
			result.RecordFailure(key, reason)
			return
		}
		result.Record(outcome, key)
	}

	g := &errgroup.Group{}
	g.SetLimit(o.workers)

	for i := range rows {
		row := rows[i]

		// Cooperative checkpoint: once the context is canceled no new
		// prospect starts; in-flight ones run to completion.
		if ctx.Err() != nil {
			log.Warn("batch canceled, remaining prospects not started",
				zap.Int("remaining", len(rows)-i))
			break
		}

		g.Go(func() error {
			unlock := o.keys.lock(row.Key)
			defer unlock()
			o.processProspect(ctx, source, &row, record)
			return nil
		})
	}
	g.Wait()

	o.journalRun(ctx, result, started)
	log.Info("batch finished",
		zap.Int("advanced", result.Advanced),
		zap.Int("skipped_invalid", result.SkippedInvalid),
		zap.Int("failed", result.Failed),
		zap.Int("unchanged", result.Unchanged),
	)
	return model.Ok(result)
}

// processProspect runs one prospect through its phase step and records the
// outcome. It never returns an error: every path resolves to an outcome
// bucket, except cancellation mid-call, which records nothing so the
// prospect is picked up unchanged by the next run.
func (o *Orchestrator) processProspect(ctx context.Context, source phase.Phase, row *sheet.Row, record func(outcome, key string, reason *model.FailureReason)) {
	log := zap.L().With(zap.String("key", row.Key), zap.String("phase", string(source)))

	p, err := sheet.RowProspect(row)
	if err != nil {
		log.Warn("prospect row is malformed, skipping", zap.Error(err))
		record(model.OutcomeSkippedInvalid, row.Key, nil)
		return
	}

	env := o.runStep(ctx, source, p)
	if !env.OK {
		if env.Code == model.CodeValidationError {
			log.Warn("prospect skipped by validation", zap.String("message", env.Message))
			record(model.OutcomeSkippedInvalid, p.NaturalKey, nil)
			return
		}
		if ctx.Err() != nil {
			// Cancellation surfaced through the call chain. Persisting a
			// failed phase here would turn an aborted run into a terminal
			// prospect state.
			log.Warn("prospect interrupted by cancellation, state unchanged")
			return
		}
		o.failProspect(ctx, p, env.Reason(), record)
		return
	}

	next, err := phase.Transition(source, env.Data)
	if err != nil {
		o.failProspect(ctx, p, &model.FailureReason{
			Code:    model.CodePermanentError,
			Message: err.Error(),
		}, record)
		return
	}
	p.Phase = string(next)
	p.LastError = nil
	p.UpdatedAt = time.Now().UTC()

	if reason := o.persist(ctx, p); reason != nil {
		record(model.OutcomeFailed, p.NaturalKey, reason)
		return
	}
	log.Info("prospect advanced", zap.String("to", string(next)))
	record(model.OutcomeAdvanced, p.NaturalKey, nil)
}

// failProspect transitions the prospect to failed and persists the reason.
// Cancellation during the persist leaves the stored state untouched.
func (o *Orchestrator) failProspect(ctx context.Context, p *model.Prospect, reason *model.FailureReason, record func(outcome, key string, reason *model.FailureReason)) {
	zap.L().Warn("prospect failed",
		zap.String("key", p.NaturalKey),
		zap.String("code", string(reason.Code)),
		zap.String("message", reason.Message),
	)
	p.Phase = string(phase.Failed)
	p.LastError = reason
	p.UpdatedAt = time.Now().UTC()

	if ctx.Err() == nil {
		if persistReason := o.persist(ctx, p); persistReason != nil {
			zap.L().Error("could not persist failure state",
				zap.String("key", p.NaturalKey),
				zap.String("message", persistReason.Message),
			)
		}
	}
	record(model.OutcomeFailed, p.NaturalKey, reason)
}

// persist writes the prospect through the upsert adapter. Outages are
// retried bounded inside the store helpers; a version conflict triggers
// exactly one re-read and re-merge before giving up.
func (o *Orchestrator) persist(ctx context.Context, p *model.Prospect) *model.FailureReason {
	fields, err := sheet.ProspectFields(p)
	if err != nil {
		return &model.FailureReason{Code: model.CodePermanentError, Message: err.Error()}
	}

	_, err = o.upsertRow(ctx, o.prospects, p.NaturalKey, fields)
	if err == nil {
		return nil
	}
	if sheet.CodeFor(err) != model.CodeConflict {
		return &model.FailureReason{Code: sheet.CodeFor(err), Message: err.Error()}
	}

	// The row moved under us. Re-read so the next merge carries the
	// store's current version, then retry the same field merge once.
	zap.L().Warn("upsert conflict, re-reading row", zap.String("key", p.NaturalKey))
	if _, findErr := o.findRow(ctx, o.prospects, p.NaturalKey); findErr != nil {
		return &model.FailureReason{Code: sheet.CodeFor(findErr), Message: findErr.Error()}
	}
	if _, err := o.upsertRow(ctx, o.prospects, p.NaturalKey, fields); err != nil {
		return &model.FailureReason{Code: sheet.CodeFor(err), Message: err.Error()}
	}
	return nil
}

// storeRetry derives the bounded retry policy for tabular-store calls from
// the invoker's policy. Only outages are retried: a conflict must surface
// to the caller immediately so the re-read-and-merge path can run.
func (o *Orchestrator) storeRetry(operation string) resilience.RetryConfig {
	cfg := o.invoker.Retry()
	cfg.ShouldRetry = func(err error) bool { return errors.Is(err, sheet.ErrUnavailable) }
	cfg.OnRetry = resilience.RetryLogger("store", operation)
	return cfg
}

func (o *Orchestrator) findRow(ctx context.Context, st sheet.Store, key string) (*sheet.Row, error) {
	return resilience.DoVal(ctx, o.storeRetry("find"), func(ctx context.Context) (*sheet.Row, error) {
		return st.FindByKey(ctx, key)
	})
}

func (o *Orchestrator) upsertRow(ctx context.Context, st sheet.Store, key string, fields map[string]any) (*sheet.Row, error) {
	return resilience.DoVal(ctx, o.storeRetry("upsert"), func(ctx context.Context) (*sheet.Row, error) {
		return st.Upsert(ctx, key, fields)
	})
}

func (o *Orchestrator) listRows(ctx context.Context, st sheet.Store, phaseName string, limit int) ([]sheet.Row, error) {
	return resilience.DoVal(ctx, o.storeRetry("list"), func(ctx context.Context) ([]sheet.Row, error) {
		return st.ListByPhase(ctx, phaseName, limit)
	})
}

// journalRun records the batch in the run journal. Journal failures are
// logged, never surfaced: the journal is observability, not state.
func (o *Orchestrator) journalRun(ctx context.Context, result model.BatchResult, started time.Time) {
	if o.runs == nil {
		return
	}
	run := journal.Run{
		Phase:      result.Phase,
		Result:     result,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}
	if _, err := o.runs.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		zap.L().Error("could not journal run", zap.Error(err))
	}
}

// keyedMutex serializes work per natural key so two workers never write the
// same prospect concurrently.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
