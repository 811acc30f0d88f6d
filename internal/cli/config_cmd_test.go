package cli_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/riveredge/bulkport/internal/config"
)

func TestConfigInit_Project(t *testing.T) {
	setupCLITest(t)
	projectRoot := t.TempDir()
	t.Setenv(config.EnvProjectDir, projectRoot)

	stdout, _, err := runCLI(t, "config", "init", "--api-url", "https://erp-test.example.com", "--tenant", "2")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Project configuration initialized at")

	configPath := filepath.Join(projectRoot, ".bulkport", "config.yaml")
	data, err := os.ReadFile(configPath)
	require.NoError(t, err)

	var overlay map[string]map[string]any
	require.NoError(t, yaml.Unmarshal(data, &overlay))
	assert.Equal(t, "https://erp-test.example.com", overlay["api"]["base_url"])
	assert.Equal(t, "2", overlay["api"]["tenant_id"])
	assert.Contains(t, overlay, "import")
	assert.NotContains(t, overlay, "logging")

	gitignore, err := os.ReadFile(filepath.Join(projectRoot, ".bulkport", ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, config.GitignoreContent(), string(gitignore))

	_, _, err = runCLI(t, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")
}

func TestConfigInit_ExistingGitignorePreserved(t *testing.T) {
	setupCLITest(t)
	projectRoot := t.TempDir()
	t.Setenv(config.EnvProjectDir, projectRoot)

	custom := "# custom\nsecrets/\n"
	writeFile(t, makeDir(t, filepath.Join(projectRoot, ".bulkport")), ".gitignore", custom)

	_, _, err := runCLI(t, "config", "init", "--force")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(projectRoot, ".bulkport", ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, custom, string(data))
}

func TestConfigInit_Global(t *testing.T) {
	home := setupCLITest(t)
	t.Setenv(config.EnvProjectDir, t.TempDir())

	stdout, _, err := runCLI(t, "config", "init", "--global")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Configuration file: "+filepath.Join(home, "config.yaml"))

	_, err = os.Stat(filepath.Join(home, "config.yaml"))
	require.NoError(t, err)

	_, _, err = runCLI(t, "config", "init", "--global")
	require.Error(t, err)

	_, _, err = runCLI(t, "config", "init", "--global", "--force")
	require.NoError(t, err)
}

func TestConfigSetGet(t *testing.T) {
	setupCLITest(t)

	stdout, _, err := runCLI(t, "config", "set", "import.concurrency", "12")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Set import.concurrency = 12")

	stdout, _, err = runCLI(t, "config", "get", "import.concurrency")
	require.NoError(t, err)
	assert.Equal(t, "12\n", stdout)

	stdout, _, err = runCLI(t, "config", "set", "api.token", "supersecrettoken")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "supersecrettoken")

	t.Run("environment wins", func(t *testing.T) {
		t.Setenv(config.EnvConcurrency, "3")
		out, _, getErr := runCLI(t, "config", "get", "import.concurrency")
		require.NoError(t, getErr)
		assert.Equal(t, "3\n", out)
	})

	t.Run("invalid value", func(t *testing.T) {
		_, _, setErr := runCLI(t, "config", "set", "import.concurrency", "0")
		require.Error(t, setErr)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, _, getErr := runCLI(t, "config", "get", "import.speed")
		require.Error(t, getErr)
	})
}

func TestConfigList(t *testing.T) {
	setupCLITest(t)

	stdout, _, err := runCLI(t, "config", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "import.retry_delay")
	assert.Contains(t, stdout, "500ms")

	stdout, _, err = runCLI(t, "config", "list", "-o", "json")
	require.NoError(t, err)
	var values map[string]string
	require.NoError(t, json.Unmarshal([]byte(stdout), &values))
	assert.Equal(t, "3", values["import.retry_count"])
}

func TestConfigValidate(t *testing.T) {
	setupCLITest(t)

	stdout, _, err := runCLI(t, "config", "validate", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Configuration is valid")
	assert.Contains(t, stdout, "Entities:")

	t.Run("broken templates", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "templates.yaml", "entities: [")
		_, _, validateErr := runCLI(t, "config", "validate", "--templates", path)
		require.Error(t, validateErr)
		assert.Contains(t, validateErr.Error(), "template validation failed")
	})
}

func makeDir(t *testing.T, dir string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o750))
	return dir
}
