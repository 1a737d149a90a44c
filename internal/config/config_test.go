package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	err := os.WriteFile(path, []byte(`
environment: PROD
db:
  host: db.internal
  port: 6543
genai:
  model: gemini-test
auth:
  okta_domain: https://example.okta.com/oauth2/default/
`), 0o600)
	require.NoError(t, err)

	t.Setenv("RESEARCH_DB_NAME", "reports")
	t.Setenv("RESEARCH_GENAI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", " key-from-env ")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "PROD", cfg.Environment)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, 6543, cfg.DB.Port)
	assert.Equal(t, "reports", cfg.DB.Name)
	assert.Equal(t, "gemini-test", cfg.GenAI.Model)
	assert.Equal(t, "key-from-env", cfg.GenAI.APIKey)
	assert.Equal(t, "https://example.okta.com/oauth2/default", cfg.Auth.OktaDomain)
	assert.Equal(t, 30*time.Second, cfg.PDF.RenderTimeout)
	assert.Equal(t, "research", cfg.Temporal.TaskQueue)
}

func TestLoadConfig_MissingDefaultFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GOOGLE_API_KEY", "")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.True(t, cfg.IsDev())
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "ResearchWorkflow", cfg.Temporal.WorkflowType)
	assert.Empty(t, cfg.GenAI.APIKey)
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=postgres dbname=research sslmode=disable",
		cfg.ConnString())
}

func TestLoadConfig_ExplicitMissingFileFails(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
