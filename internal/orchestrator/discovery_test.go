package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/phase"
	"github.com/sells-group/outreach-cli/pkg/apollo"
)

func TestRunDiscovery_IngestsNewProspects(t *testing.T) {
	env := newTestEnv(t)

	env.apollo.On("Search", mock.Anything, mock.Anything).Return([]map[string]any{
		{
			"first_name":   "Ada",
			"last_name":    "Lovelace",
			"email":        "Ada@Acme.com",
			"company_name": "Acme Corp",
			"title":        "CTO",
		},
		{
			// Invalid email: skipped with a warning, run continues.
			"first_name":   "Bad",
			"last_name":    "Record",
			"email":        "not-an-email",
			"company_name": "Beta",
		},
		{
			// Same company as the first record, different contact.
			"first_name":   "Grace",
			"last_name":    "Hopper",
			"email":        "grace@acme.com",
			"company_name": "Acme Corp",
		},
	}, nil)

	result := env.orch.RunDiscovery(context.Background(), apollo.SearchQuery{TotalRecords: 10})
	require.True(t, result.OK)
	assert.Equal(t, 2, result.Data.Advanced)
	assert.Equal(t, 1, result.Data.SkippedInvalid)
	assert.Equal(t, 0, result.Data.Unchanged)

	// Natural key is the normalized email.
	stored := storedProspect(t, env.prospects, "ada@acme.com")
	assert.Equal(t, string(phase.Discovered), stored.Phase)
	assert.Equal(t, "Acme Corp", stored.CompanyName)
	assert.NotEmpty(t, stored.ID)

	// Two prospects share one company: deduplicated to a single row.
	assert.Equal(t, 1, env.companies.Len())
}

func TestRunDiscovery_ExistingKeysUnchanged(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env.prospects, discoveredProspect("ada@acme.com", "Acme Corp"))

	env.apollo.On("Search", mock.Anything, mock.Anything).Return([]map[string]any{
		{
			"first_name":   "Ada",
			"last_name":    "Lovelace",
			"email":        "ada@acme.com",
			"company_name": "Acme Corp",
		},
	}, nil)

	result := env.orch.RunDiscovery(context.Background(), apollo.SearchQuery{TotalRecords: 10})
	require.True(t, result.OK)
	assert.Equal(t, 0, result.Data.Advanced)
	assert.Equal(t, 1, result.Data.Unchanged)
	assert.Equal(t, 1, env.prospects.Len())
}

func TestRunDiscovery_SkippedKeysStayTraceable(t *testing.T) {
	env := newTestEnv(t)

	env.apollo.On("Search", mock.Anything, mock.Anything).Return([]map[string]any{
		{
			"first_name":   "Ada",
			"last_name":    "Lovelace",
			"email":        "ada@acme.com",
			"company_name": "Acme Corp",
		},
		{
			// No email at all: the skipped bucket falls back to the
			// record's position instead of an empty key.
			"first_name":   "No",
			"last_name":    "Email",
			"company_name": "Beta",
		},
		{
			"first_name":   "Bad",
			"last_name":    "Email",
			"email":        "Not-An-Email",
			"company_name": "Gamma",
		},
	}, nil)

	result := env.orch.RunDiscovery(context.Background(), apollo.SearchQuery{TotalRecords: 10})
	require.True(t, result.OK)
	assert.Equal(t, 1, result.Data.Advanced)
	assert.Equal(t, 2, result.Data.SkippedInvalid)
	assert.Equal(t, []string{"record-2", "not-an-email"}, result.Data.SkippedKeys)
}

func TestRunDiscovery_SearchFailure(t *testing.T) {
	env := newTestEnv(t)

	env.apollo.On("Search", mock.Anything, mock.Anything).
		Return(nil, &apollo.APIError{StatusCode: 500, Body: "boom"}).
		Times(3)

	result := env.orch.RunDiscovery(context.Background(), apollo.SearchQuery{TotalRecords: 10})
	require.False(t, result.OK)
	assert.Equal(t, model.CodeRetryExhausted, result.Code)
	env.apollo.AssertExpectations(t)
}

func TestRunDiscovery_Idempotent(t *testing.T) {
	env := newTestEnv(t)

	records := []map[string]any{
		{
			"first_name":   "Ada",
			"last_name":    "Lovelace",
			"email":        "ada@acme.com",
			"company_name": "Acme Corp",
		},
	}
	env.apollo.On("Search", mock.Anything, mock.Anything).Return(records, nil)

	first := env.orch.RunDiscovery(context.Background(), apollo.SearchQuery{TotalRecords: 5})
	require.True(t, first.OK)
	assert.Equal(t, 1, first.Data.Advanced)

	second := env.orch.RunDiscovery(context.Background(), apollo.SearchQuery{TotalRecords: 5})
	require.True(t, second.OK)
	assert.Equal(t, 0, second.Data.Advanced)
	assert.Equal(t, 1, second.Data.Unchanged)
	assert.Equal(t, 1, env.prospects.Len())
}
