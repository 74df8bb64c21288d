// Package journal persists a local record of every batch run and its
// per-prospect outcomes. The journal is observability only: the tabular
// store remains the source of truth for prospect state.
package journal

import (
	"context"
	"time"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Run is one journaled orchestrator invocation.
type Run struct {
	ID         string            `json:"id"`
	Phase      string            `json:"phase"`
	Result     model.BatchResult `json:"result"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// Outcome is one prospect's result within a run.
type Outcome struct {
	ID          string `json:"id"`
	RunID       string `json:"run_id"`
	ProspectKey string `json:"prospect_key"`
	Outcome     string `json:"outcome"`
	Code        string `json:"code,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Store defines the journal persistence interface.
type Store interface {
	// RecordRun writes a run row plus one outcome row per prospect and
	// returns the run id.
	RecordRun(ctx context.Context, run Run) (string, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	ListOutcomes(ctx context.Context, runID string) ([]Outcome, error)

	Migrate(ctx context.Context) error
	Close() error
}

// outcomesFromResult expands a batch result into per-prospect outcome rows.
func outcomesFromResult(runID string, result *model.BatchResult) []Outcome {
	var out []Outcome
	add := func(keys []string, outcome string) {
		for _, key := range keys {
			o := Outcome{RunID: runID, ProspectKey: key, Outcome: outcome}
			if outcome == model.OutcomeFailed {
				if reason, ok := result.FailureReasons[key]; ok && reason != nil {
					o.Code = string(reason.Code)
					o.Message = reason.Message
				}
			}
			out = append(out, o)
		}
	}
	add(result.AdvancedKeys, model.OutcomeAdvanced)
	add(result.SkippedKeys, model.OutcomeSkippedInvalid)
	add(result.FailedKeys, model.OutcomeFailed)
	add(result.UnchangedKeys, model.OutcomeUnchanged)
	return out
}
