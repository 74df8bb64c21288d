package model

// Outcome buckets for a single prospect within a batch run.
const (
	OutcomeAdvanced       = "advanced"
	OutcomeSkippedInvalid = "skipped_invalid"
	OutcomeFailed         = "failed"
	OutcomeUnchanged      = "unchanged"
)

// BatchResult aggregates per-record outcomes of one orchestrator run. It is
// ephemeral: returned to the caller and journaled, never written to the
// tabular store.
type BatchResult struct {
	Phase          string   `json:"phase"`
	Advanced       int      `json:"advanced"`
	SkippedInvalid int      `json:"skipped_invalid"`
	Failed         int      `json:"failed"`
	Unchanged      int      `json:"unchanged"`
	AdvancedKeys   []string `json:"advanced_keys,omitempty"`
	SkippedKeys    []string `json:"skipped_keys,omitempty"`
	FailedKeys     []string `json:"failed_keys,omitempty"`
	UnchangedKeys  []string `json:"unchanged_keys,omitempty"`

	// FailureReasons maps failed keys to their persisted reasons so the
	// caller can report them without re-reading the store.
	FailureReasons map[string]*FailureReason `json:"failure_reasons,omitempty"`
}

// Record files a key into the named outcome bucket.
func (b *BatchResult) Record(outcome, key string) {
	switch outcome {
	case OutcomeAdvanced:
		b.Advanced++
		b.AdvancedKeys = append(b.AdvancedKeys, key)
	case OutcomeSkippedInvalid:
		b.SkippedInvalid++
		b.SkippedKeys = append(b.SkippedKeys, key)
	case OutcomeFailed:
		b.Failed++
		b.FailedKeys = append(b.FailedKeys, key)
	case OutcomeUnchanged:
		b.Unchanged++
		b.UnchangedKeys = append(b.UnchangedKeys, key)
	}
}

// RecordFailure files a failed key along with its reason.
func (b *BatchResult) RecordFailure(key string, reason *FailureReason) {
	b.Record(OutcomeFailed, key)
	if reason != nil {
		if b.FailureReasons == nil {
			b.FailureReasons = make(map[string]*FailureReason)
		}
		b.FailureReasons[key] = reason
	}
}

// Total returns the number of prospects accounted for.
func (b *BatchResult) Total() int {
	return b.Advanced + b.SkippedInvalid + b.Failed + b.Unchanged
}
