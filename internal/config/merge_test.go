package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riveredge/bulkport/internal/config"
)

// newDefaultTarget returns a Config with known non-zero values so tests can
// verify that absent overlay keys leave the original values intact.
func newDefaultTarget() *config.Config {
	return &config.Config{
		API: config.APIConfig{
			BaseURL:  "https://global.example.com",
			Token:    "global-token",
			TenantID: "1",
			Timeout:  30 * time.Second,
		},
		Import: config.ImportConfig{
			Concurrency: 5,
			RetryCount:  3,
			RetryDelay:  500 * time.Millisecond,
		},
		Output: config.OutputConfig{DefaultFormat: "table"},
		Logging: config.LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// writeOverlay writes YAML content to a temp file and returns its path.
func writeOverlay(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "overlay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestShallowMergeYAML_SingleKeyOverride(t *testing.T) {
	target := newDefaultTarget()
	overlay := writeOverlay(t, `
import:
  concurrency: 10
  retry_count: 5
`)

	require.NoError(t, config.ShallowMergeYAML(target, overlay))

	assert.Equal(t, 10, target.Import.Concurrency)
	assert.Equal(t, 5, target.Import.RetryCount)
	// Whole section replaced: unspecified fields reset to zero.
	assert.Zero(t, target.Import.RetryDelay)
	// Other sections untouched.
	assert.Equal(t, "https://global.example.com", target.API.BaseURL)
	assert.Equal(t, "info", target.Logging.Level)
}

func TestShallowMergeYAML_MultipleSections(t *testing.T) {
	target := newDefaultTarget()
	overlay := writeOverlay(t, `
api:
  base_url: https://project.example.com
  timeout: 5s
output:
  default_format: json
unknown_section:
  foo: bar
`)

	require.NoError(t, config.ShallowMergeYAML(target, overlay))

	assert.Equal(t, "https://project.example.com", target.API.BaseURL)
	assert.Equal(t, 5*time.Second, target.API.Timeout)
	assert.Empty(t, target.API.Token)
	assert.Equal(t, "json", target.Output.DefaultFormat)
	assert.Equal(t, 5, target.Import.Concurrency)
}

func TestShallowMergeYAML_EmptyFile(t *testing.T) {
	target := newDefaultTarget()
	overlay := writeOverlay(t, "# only a comment\n")

	require.NoError(t, config.ShallowMergeYAML(target, overlay))
	assert.Equal(t, newDefaultTarget(), target)
}

func TestShallowMergeYAML_Errors(t *testing.T) {
	t.Run("nil target", func(t *testing.T) {
		assert.Error(t, config.ShallowMergeYAML(nil, "whatever.yaml"))
	})

	t.Run("missing file", func(t *testing.T) {
		err := config.ShallowMergeYAML(newDefaultTarget(), filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		overlay := writeOverlay(t, "api: [unclosed")
		assert.Error(t, config.ShallowMergeYAML(newDefaultTarget(), overlay))
	})

	t.Run("wrong section type", func(t *testing.T) {
		overlay := writeOverlay(t, "import:\n  concurrency: lots\n")
		err := config.ShallowMergeYAML(newDefaultTarget(), overlay)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"import"`)
	})
}
