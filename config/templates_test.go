package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentstudio/core"
)

func TestLoadTemplates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
reviewer:
  agent_name: Reviewer
  system_prompt: Review the draft.
  temperature: 0.2
  tools_enabled: true
  tools:
    calculator: true
summarizer:
  system_prompt: Summarize.
`), 0o600))

	tpls, err := LoadTemplates(path)
	require.NoError(t, err)
	require.Len(t, tpls, 2)

	r := tpls["reviewer"]
	assert.Equal(t, "Reviewer", r.Name)
	assert.Equal(t, 0.2, r.Temperature)
	assert.Equal(t, core.DefaultMaxTokens, r.MaxTokens)
	assert.Equal(t, []string{"calculator"}, r.EnabledTools())
	assert.Equal(t, core.AgentStatusDeployed, r.Status)

	s := tpls["summarizer"]
	assert.Equal(t, "summarizer", s.Name)
	assert.Equal(t, core.DefaultTemperature, s.Temperature)
}

func TestLoadTemplates_Errors(t *testing.T) {
	_, err := LoadTemplates(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read templates")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reviewer:\n  temperature: hot\n"), 0o600))
	_, err = LoadTemplates(path)
	assert.ErrorContains(t, err, "template reviewer")
}
