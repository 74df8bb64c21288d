package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/phase"
	"github.com/sells-group/outreach-cli/internal/sheet"
)

// Requeue resets one failed prospect back to the target phase and clears
// its stored failure. This is the only path out of failed and is always an
// explicit operator action, never automatic.
func (o *Orchestrator) Requeue(ctx context.Context, key, targetPhase string) model.Envelope[string] {
	key = model.NaturalKey(key)
	unlock := o.keys.lock(key)
	defer unlock()

	row, err := o.findRow(ctx, o.prospects, key)
	if err != nil {
		return model.FailErr[string](sheet.CodeFor(err), err)
	}
	if row == nil {
		return model.Failf[string](model.CodeValidationError, "no prospect with key %s", key)
	}

	p, err := sheet.RowProspect(row)
	if err != nil {
		return model.FailErr[string](model.CodePermanentError, err)
	}

	target, err := phase.Requeue(phase.Phase(p.Phase), phase.Phase(targetPhase))
	if err != nil {
		return model.FailErr[string](model.CodeValidationError, err)
	}

	p.Phase = string(target)
	p.LastError = nil
	p.UpdatedAt = time.Now().UTC()
	if reason := o.persist(ctx, p); reason != nil {
		return model.Fail[string](reason.Code, reason.Message).WithDetails(reason.Details)
	}

	zap.L().Info("prospect requeued",
		zap.String("key", key),
		zap.String("to", string(target)),
	)
	return model.Ok(string(target))
}

// FunnelCounts reads the per-phase prospect counts from the store.
func (o *Orchestrator) FunnelCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(phase.All()))
	for _, p := range phase.All() {
		rows, err := o.listRows(ctx, o.prospects, string(p), 0)
		if err != nil {
			return nil, err
		}
		counts[string(p)] = len(rows)
	}
	return counts, nil
}
