package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Parallel()

	reg := Defaults()
	for _, id := range []string{DiscoveryProspect, EnrichmentRecord, DraftRecord} {
		s, ok := reg.Get(id)
		require.True(t, ok, "expected default schema %s", id)
		assert.Equal(t, 1, s.Version)
		assert.NotEmpty(t, s.Fields)
	}

	_, ok := reg.Get("missing")
	assert.False(t, ok)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "schemas.yaml")
	content := `schemas:
  - id: discovery_prospect
    version: 2
    fields:
      - name: email
        type: string
        required: true
        normalize: email
      - name: company_name
        type: string
        required: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	reg, err := LoadFile(path)
	require.NoError(t, err)

	s, ok := reg.Get(DiscoveryProspect)
	require.True(t, ok)
	assert.Equal(t, 2, s.Version)
	assert.Len(t, s.Fields, 2)
	assert.True(t, s.Fields[0].Required)
	assert.Equal(t, NormEmail, s.Fields[0].Normalize)
}

func TestLoadFile_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("schemas: [unclosed"), 0o644))
		_, err := LoadFile(path)
		assert.Error(t, err)
	})

	t.Run("empty schema set", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "empty.yaml")
		require.NoError(t, os.WriteFile(path, []byte("schemas: []"), 0o644))
		_, err := LoadFile(path)
		assert.Error(t, err)
	})
}
