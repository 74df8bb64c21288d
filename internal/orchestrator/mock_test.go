package orchestrator

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/pkg/apollo"
	"github.com/sells-group/outreach-cli/pkg/dispatch"
	"github.com/sells-group/outreach-cli/pkg/draft"
	"github.com/sells-group/outreach-cli/pkg/enrich"
)

// --- Apollo Mock ---

type mockApolloClient struct {
	mock.Mock
}

func (m *mockApolloClient) Search(ctx context.Context, query apollo.SearchQuery) ([]map[string]any, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]map[string]any), args.Error(1)
}

// --- Enrich Mock ---

type mockEnrichClient struct {
	mock.Mock
}

func (m *mockEnrichClient) Enrich(ctx context.Context, req enrich.Request) (map[string]any, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

// --- Draft Mock ---

type mockDraftClient struct {
	mock.Mock
}

func (m *mockDraftClient) Draft(ctx context.Context, req draft.Request) (*draft.Draft, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*draft.Draft), args.Error(1)
}

// --- Dispatch Mock ---

type mockDispatchClient struct {
	mock.Mock
}

func (m *mockDispatchClient) AddToSequence(ctx context.Context, sequenceID string, contact dispatch.Contact) (*dispatch.Result, error) {
	args := m.Called(ctx, sequenceID, contact)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dispatch.Result), args.Error(1)
}

// --- Block Source Mock ---

type mockBlockSource struct {
	mock.Mock
}

func (m *mockBlockSource) IsBlocked(ctx context.Context, contactKey string) (bool, error) {
	args := m.Called(ctx, contactKey)
	return args.Bool(0), args.Error(1)
}

// testInvoker builds an invoker with fast retries and no pacing so tests
// run in milliseconds.
func testInvoker() *resilience.Invoker {
	limits := resilience.NewLimiterRegistry(resilience.ServiceLimits{MaxInFlight: 8}, nil)
	return resilience.NewInvoker(limits, resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	})
}
