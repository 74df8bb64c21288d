package orchestrator

import (
	"context"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/phase"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/internal/schema"
	"github.com/sells-group/outreach-cli/pkg/dispatch"
	"github.com/sells-group/outreach-cli/pkg/draft"
	"github.com/sells-group/outreach-cli/pkg/enrich"
)

// runStep executes the service work for the prospect's current phase,
// mutates the prospect's payloads on success, and resolves to the target
// phase. All external calls go through the invoker; all external payloads
// go through the validator before touching the prospect.
func (o *Orchestrator) runStep(ctx context.Context, source phase.Phase, p *model.Prospect) model.Envelope[phase.Phase] {
	switch source {
	case phase.Discovered:
		return o.researchStep(ctx, p)
	case phase.Researched:
		return o.draftStep(ctx, p)
	case phase.Drafted:
		return o.syncStep(ctx, p)
	}
	return model.Failf[phase.Phase](model.CodeValidationError, "no work defined for phase %s", source)
}

// researchStep enriches the prospect's company. discovered -> researched.
func (o *Orchestrator) researchStep(ctx context.Context, p *model.Prospect) model.Envelope[phase.Phase] {
	if p.CompanyName == "" {
		return model.Fail[phase.Phase](model.CodeValidationError, "prospect has no company name")
	}

	req := enrich.Request{
		CompanyName:   p.CompanyName,
		CompanyDomain: str(p.Discovery["company_domain"]),
		Email:         p.Email,
	}
	env := resilience.Invoke(ctx, o.invoker, svcEnrich, "enrich", func(ctx context.Context) (map[string]any, error) {
		return o.enrich.Enrich(ctx, req)
	})
	if !env.OK {
		return forward[map[string]any, phase.Phase](env)
	}

	validated := o.schemas.Validate(env.Data, schema.EnrichmentRecord)
	if !validated.OK {
		return forward[schema.Record, phase.Phase](validated)
	}

	p.Enrichment = validated.Data
	return model.Ok(phase.Researched)
}

// draftStep generates the outreach email. researched -> drafted.
func (o *Orchestrator) draftStep(ctx context.Context, p *model.Prospect) model.Envelope[phase.Phase] {
	req := draft.Request{
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Title:       p.Title,
		CompanyName: p.CompanyName,
		Enrichment:  p.Enrichment,
	}
	env := resilience.Invoke(ctx, o.invoker, svcDraft, "draft", func(ctx context.Context) (*draft.Draft, error) {
		return o.draft.Draft(ctx, req)
	})
	if !env.OK {
		return forward[*draft.Draft, phase.Phase](env)
	}

	raw := map[string]any{
		"subject": env.Data.Subject,
		"body":    env.Data.Body,
	}
	validated := o.schemas.Validate(raw, schema.DraftRecord)
	if !validated.OK {
		return forward[schema.Record, phase.Phase](validated)
	}

	p.Draft = validated.Data
	if env.Data.Model != "" {
		p.Draft["model"] = env.Data.Model
	}
	return model.Ok(phase.Drafted)
}

// syncStep pushes the draft into the sequencing platform. drafted -> synced.
// The compliance gate is consulted immediately before the dispatch call and
// a blocked contact never reaches the platform.
func (o *Orchestrator) syncStep(ctx context.Context, p *model.Prospect) model.Envelope[phase.Phase] {
	if len(p.Draft) == 0 {
		return model.Fail[phase.Phase](model.CodeValidationError, "prospect has no draft to sync")
	}

	gateResult := o.gate.Check(ctx, p)
	if !gateResult.OK {
		return forward[bool, phase.Phase](gateResult)
	}
	if !gateResult.Data {
		return model.Failf[phase.Phase](model.CodeDNCBlocked, "contact %s is on the do-not-contact list", p.NaturalKey)
	}

	contact := dispatch.Contact{
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Email:       p.Email,
		CompanyName: p.CompanyName,
		Title:       p.Title,
		Subject:     str(p.Draft["subject"]),
		Body:        str(p.Draft["body"]),
	}
	env := resilience.Invoke(ctx, o.invoker, svcDispatch, "add_to_sequence", func(ctx context.Context) (*dispatch.Result, error) {
		return o.dispatch.AddToSequence(ctx, o.sequenceID, contact)
	})
	if !env.OK {
		return forward[*dispatch.Result, phase.Phase](env)
	}

	p.Draft["contact_id"] = env.Data.ContactID
	p.Draft["sequence_id"] = env.Data.SequenceID
	return model.Ok(phase.Synced)
}

// forward re-types a failure envelope, preserving code, message, and
// details.
func forward[F, T any](env model.Envelope[F]) model.Envelope[T] {
	return model.Envelope[T]{
		OK:      false,
		Code:    env.Code,
		Message: env.Message,
		Details: env.Details,
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
