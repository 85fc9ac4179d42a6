package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	require.NotEmpty(t, c.Database.Path)
	require.Equal(t, "gemini", c.LLM.Provider)
	require.Equal(t, "personal", c.Import.DefaultScope)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LEDGERKEEP_DATABASE_PATH", "/tmp/override.db")
	t.Setenv("LEDGERKEEP_IMPORT_DEFAULT_SCOPE", "business")

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/tmp/override.db", c.Database.Path)
	require.Equal(t, "business", c.Import.DefaultScope)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[database]\npath = \"/tmp/from-file.db\"\n"), 0o644))
	t.Setenv("LEDGERKEEP_CONFIG", path)

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/tmp/from-file.db", c.Database.Path)
}

func TestResolveAPIKeyPrecedence(t *testing.T) {
	t.Setenv("LEDGERKEEP_TEST_KEY", "from-env")

	require.Equal(t, "literal", LLMConfig{APIKey: "literal", APIKeyEnv: "LEDGERKEEP_TEST_KEY"}.ResolveAPIKey())
	require.Equal(t, "from-env", LLMConfig{APIKeyEnv: "LEDGERKEEP_TEST_KEY"}.ResolveAPIKey())
	require.Equal(t, "", LLMConfig{}.ResolveAPIKey())
}
