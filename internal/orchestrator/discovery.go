package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/phase"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/internal/schema"
	"github.com/sells-group/outreach-cli/internal/sheet"
	"github.com/sells-group/outreach-cli/pkg/apollo"
)

// RunDiscovery searches for new prospects matching the target audience and
// ingests them at phase discovered. A contact already present in the store
// is left untouched and counted unchanged; invalid search records are
// skipped with a warning and never fail the run. Each record's company is
// deduplicated by normalized name and upserted to the companies table.
func (o *Orchestrator) RunDiscovery(ctx context.Context, query apollo.SearchQuery) model.Envelope[model.BatchResult] {
	started := time.Now().UTC()
	log := zap.L().With(zap.String("phase", "discovery"))
	log.Info("discovery search starting", zap.Int("total_records", query.TotalRecords))

	searchEnv := resilience.Invoke(ctx, o.invoker, svcApollo, "search", func(ctx context.Context) ([]map[string]any, error) {
		return o.apollo.Search(ctx, query)
	})
	if !searchEnv.OK {
		return forward[[]map[string]any, model.BatchResult](searchEnv)
	}
	log.Info("discovery search returned records", zap.Int("records", len(searchEnv.Data)))

	result := model.BatchResult{Phase: "discovery"}
	companiesSeen := make(map[string]struct{})

	for i, raw := range searchEnv.Data {
		if ctx.Err() != nil {
			log.Warn("discovery canceled, remaining records not ingested",
				zap.Int("remaining", len(searchEnv.Data)-i))
			break
		}

		validated := o.schemas.Validate(raw, schema.DiscoveryProspect)
		if !validated.OK {
			log.Warn("skipping invalid discovery record",
				zap.Int("record", i+1),
				zap.String("message", validated.Message),
				zap.Any("details", validated.Details),
			)
			// A record rejected for a missing email has no key of its own;
			// its position keeps the skipped bucket traceable.
			skipKey := model.NaturalKey(str(raw["email"]))
			if skipKey == "" {
				skipKey = fmt.Sprintf("record-%d", i+1)
			}
			result.Record(model.OutcomeSkippedInvalid, skipKey)
			continue
		}
		rec := validated.Data

		key := model.NaturalKey(str(rec["email"]))
		outcome, reason := o.ingestProspect(ctx, key, rec)
		if outcome == model.OutcomeFailed {
			result.RecordFailure(key, reason)
		} else {
			result.Record(outcome, key)
		}

		if outcome == model.OutcomeAdvanced {
			o.ingestCompany(ctx, rec, companiesSeen)
		}
	}

	o.journalRun(ctx, result, started)
	log.Info("discovery finished",
		zap.Int("ingested", result.Advanced),
		zap.Int("skipped_invalid", result.SkippedInvalid),
		zap.Int("unchanged", result.Unchanged),
		zap.Int("failed", result.Failed),
	)
	return model.Ok(result)
}

// ingestProspect writes one validated discovery record. New keys are
// appended at phase discovered; existing keys are unchanged.
func (o *Orchestrator) ingestProspect(ctx context.Context, key string, rec schema.Record) (string, *model.FailureReason) {
	unlock := o.keys.lock(key)
	defer unlock()

	existing, err := o.findRow(ctx, o.prospects, key)
	if err != nil {
		return model.OutcomeFailed, &model.FailureReason{Code: sheet.CodeFor(err), Message: err.Error()}
	}
	if existing != nil {
		return model.OutcomeUnchanged, nil
	}

	now := time.Now().UTC()
	p := &model.Prospect{
		NaturalKey:  key,
		ID:          uuid.New().String(),
		FirstName:   str(rec["first_name"]),
		LastName:    str(rec["last_name"]),
		Email:       str(rec["email"]),
		CompanyName: str(rec["company_name"]),
		Title:       str(rec["title"]),
		LinkedInURL: str(rec["linkedin_url"]),
		Discovery:   map[string]any(rec),
		Phase:       string(phase.Discovered),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if reason := o.persist(ctx, p); reason != nil {
		return model.OutcomeFailed, reason
	}
	return model.OutcomeAdvanced, nil
}

// ingestCompany upserts the record's company, deduplicated by normalized
// name within the run. Company write failures are logged, not counted: the
// prospect is already safely stored.
func (o *Orchestrator) ingestCompany(ctx context.Context, rec schema.Record, seen map[string]struct{}) {
	if o.companies == nil {
		return
	}
	name := str(rec["company_name"])
	key := model.NaturalKey(name)
	if key == "" {
		return
	}
	if _, dup := seen[key]; dup {
		return
	}
	seen[key] = struct{}{}

	fields := map[string]any{
		"name":     name,
		"domain":   str(rec["company_domain"]),
		"industry": str(rec["company_industry"]),
		"size":     str(rec["company_size"]),
		"location": str(rec["location"]),
	}
	if _, err := o.upsertRow(ctx, o.companies, key, fields); err != nil {
		zap.L().Warn("could not upsert company",
			zap.String("company", name),
			zap.Error(err),
		)
	}
}
