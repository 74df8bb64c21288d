package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/compliance"
	"github.com/sells-group/outreach-cli/internal/journal"
	"github.com/sells-group/outreach-cli/internal/orchestrator"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/internal/schema"
	"github.com/sells-group/outreach-cli/internal/sheet"
	"github.com/sells-group/outreach-cli/pkg/apollo"
	"github.com/sells-group/outreach-cli/pkg/dispatch"
	"github.com/sells-group/outreach-cli/pkg/draft"
	"github.com/sells-group/outreach-cli/pkg/enrich"
	"github.com/sells-group/outreach-cli/pkg/notion"
)

// initJournal opens the configured run journal and applies migrations.
func initJournal(ctx context.Context) (journal.Store, error) {
	var (
		st  journal.Store
		err error
	)
	switch cfg.Journal.Driver {
	case "postgres":
		st, err = journal.NewPostgres(ctx, cfg.Journal.DSN)
	case "sqlite", "":
		st, err = journal.NewSQLite(cfg.Journal.DSN)
	default:
		return nil, eris.Errorf("unknown journal driver %q", cfg.Journal.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// initSchemas loads the declared record schemas, preferring the configured
// file over the embedded defaults.
func initSchemas() (*schema.Registry, error) {
	if cfg.Schema.File != "" {
		return schema.LoadFile(cfg.Schema.File)
	}
	return schema.Defaults(), nil
}

// initOrchestrator wires the full pipeline from configuration. The journal
// store is owned by the caller and must be closed after use.
func initOrchestrator(runs journal.Store) (*orchestrator.Orchestrator, error) {
	if cfg.Notion.Token == "" {
		return nil, eris.New("notion.token is not configured")
	}
	if cfg.Notion.ProspectDB == "" {
		return nil, eris.New("notion.prospect_db is not configured")
	}

	schemas, err := initSchemas()
	if err != nil {
		return nil, err
	}

	notionClient := notion.NewClient(cfg.Notion.Token, notion.WithRateLimit(float64(cfg.Notion.RateLimit)))
	prospects := sheet.NewNotionStore(notionClient, cfg.Notion.ProspectDB)

	var companies sheet.Store
	if cfg.Notion.CompanyDB != "" {
		companies = sheet.NewNotionStore(notionClient, cfg.Notion.CompanyDB)
	}

	var blocks compliance.BlockSource
	if cfg.Notion.DNCDB != "" {
		blocks = compliance.NewNotionSource(notionClient, cfg.Notion.DNCDB)
	} else {
		blocks = compliance.NewStaticList()
	}

	invoker := resilience.NewInvoker(
		resilience.NewLimiterRegistry(cfg.Limits.Default, cfg.Limits.PerService),
		cfg.Retry.RetryPolicy(),
	)

	return orchestrator.New(
		prospects,
		companies,
		schemas,
		invoker,
		compliance.NewGate(blocks),
		runs,
		apollo.NewClient(cfg.Apollo.Token, cfg.Apollo.ActorID, apollo.WithBaseURL(cfg.Apollo.BaseURL)),
		enrich.NewClient(cfg.Enrich.Key, enrich.WithBaseURL(cfg.Enrich.BaseURL)),
		draft.NewClient(cfg.Anthropic.Key, draft.WithModel(cfg.Anthropic.Model), draft.WithMaxTokens(cfg.Anthropic.MaxTokens)),
		dispatch.NewClient(cfg.Dispatch.Key, dispatch.WithBaseURL(cfg.Dispatch.BaseURL)),
		cfg.Dispatch.SequenceID,
		cfg.Batch.Workers,
	), nil
}
