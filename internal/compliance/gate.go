// Package compliance evaluates prospects against the do-not-contact policy.
// The gate is consulted live on every run, immediately before dispatch, and
// is never cached or bypassed.
package compliance

import (
	"context"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
)

// BlockSource answers whether a contact key is on the do-not-contact list.
// Implementations may be backed by an external store; lookups happen at
// check time because the policy can change between runs.
type BlockSource interface {
	IsBlocked(ctx context.Context, contactKey string) (bool, error)
}

// Gate wraps a BlockSource into the pass/fail compliance decision.
type Gate struct {
	source BlockSource
}

// NewGate builds a compliance gate over the given source.
func NewGate(source BlockSource) *Gate {
	return &Gate{source: source}
}

// Check evaluates the prospect's contact key against the do-not-contact
// policy. A blocked contact is a legitimate negative outcome, not an error:
// the envelope is ok with data false. Source failures surface as envelope
// failures so the caller can fail the prospect rather than dispatch
// unchecked.
func (g *Gate) Check(ctx context.Context, p *model.Prospect) model.Envelope[bool] {
	key := p.NaturalKey
	if key == "" {
		return model.Fail[bool](model.CodePermanentError, "prospect has no natural key")
	}

	blocked, err := g.source.IsBlocked(ctx, key)
	if err != nil {
		return model.FailErr[bool](resilience.Classify(err), err)
	}
	if blocked {
		zap.L().Info("compliance: contact blocked by dnc policy",
			zap.String("key", key),
		)
		return model.Ok(false)
	}
	return model.Ok(true)
}

// StaticList is an in-memory BlockSource built from a fixed set of contact
// keys, used for file-sourced lists and tests.
type StaticList struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

// NewStaticList builds a StaticList from contact keys, normalizing each
// through model.NaturalKey.
func NewStaticList(keys ...string) *StaticList {
	l := &StaticList{keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		l.Add(k)
	}
	return l
}

// Add normalizes and inserts a contact key.
func (l *StaticList) Add(key string) {
	norm := model.NaturalKey(key)
	if norm == "" {
		return
	}
	l.mu.Lock()
	l.keys[norm] = struct{}{}
	l.mu.Unlock()
}

// Len returns the number of blocked keys.
func (l *StaticList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.keys)
}

// IsBlocked implements BlockSource.
func (l *StaticList) IsBlocked(_ context.Context, contactKey string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.keys[model.NaturalKey(contactKey)]
	return ok, nil
}

// ParseList extracts contact keys from newline-separated list content,
// skipping blanks and #-comments.
func ParseList(content string) ([]string, error) {
	var keys []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !model.ValidEmail(line) {
			return nil, eris.Errorf("compliance: invalid contact %q in dnc list", line)
		}
		keys = append(keys, line)
	}
	return keys, nil
}
