package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentstudio/tool/mcpbridge"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.HTTP.Addr)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 10, cfg.Agent.MaxIterations)
}

func TestLoad_FileEnvFileAndOverrides(t *testing.T) {
	envFile := writeFile(t, ".env", "STUDIO_TEST_KEY=sk-test\nAGENTSTUDIO_MAX_ITERATIONS=4\n")
	path := writeFile(t, "agentstudio.yaml", `
http:
  addr: ":9090"
log:
  level: debug
  format: tint
model:
  provider: anthropic
  model: claude-3-5-haiku-latest
  api_key_env: STUDIO_TEST_KEY
agent:
  tool_timeout: 5s
mcp_servers:
  - name: files
    command: mcp-files
    args: ["--root", "${HOME}"]
`)
	t.Setenv("AGENTSTUDIO_HTTP_ADDR", ":7070")
	t.Cleanup(func() {
		os.Unsetenv("STUDIO_TEST_KEY")
		os.Unsetenv("AGENTSTUDIO_MAX_ITERATIONS")
	})

	cfg, err := Load(path, envFile)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.HTTP.Addr)
	assert.Equal(t, ProviderAnthropic, cfg.Model.Provider)
	assert.Equal(t, "sk-test", cfg.Model.APIKey())
	assert.Equal(t, 4, cfg.Agent.MaxIterations)
	assert.Equal(t, 5*time.Second, cfg.Agent.ToolTimeout)
	assert.Equal(t, 8, cfg.Agent.MaxParallelTools)
	require.Len(t, cfg.MCPServers, 1)
	assert.Equal(t, os.Getenv("HOME"), cfg.MCPServers[0].Args[1])
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestLoad_DatabaseURLSelectsPostgres(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/agentstudio")
	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://db/agentstudio", cfg.Store.Postgres.URL)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Model.Provider = "llama"
	cfg.Store.Driver = "sqlite"
	cfg.Agent.MaxIterations = 0
	cfg.Log.Format = "xml"
	cfg.MCPServers = []mcpbridge.ServerConfig{{Name: "a", Command: "x"}, {Name: "a", Command: "y"}, {Name: "b"}}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		`unknown model provider "llama"`,
		`unknown store driver "sqlite"`,
		"max_iterations must be positive",
		`unknown log format "xml"`,
		`duplicate mcp server "a"`,
		"needs a name and a command",
	} {
		assert.ErrorContains(t, err, want)
	}

	cfg = Default()
	cfg.Store.Driver = DriverPostgres
	assert.ErrorContains(t, cfg.Validate(), "requires store.postgres.url")
}
