package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riveredge/bulkport/internal/config"
)

func makeProject(t *testing.T, root string) string {
	t.Helper()
	dir := filepath.Join(root, config.ProjectDirName)
	require.NoError(t, os.MkdirAll(dir, 0o750))
	return dir
}

func TestResolveProjectDir(t *testing.T) {
	ctx := context.Background()

	t.Run("flag wins over env", func(t *testing.T) {
		flagDir := t.TempDir()
		t.Setenv(config.EnvProjectDir, t.TempDir())

		got := config.ResolveProjectDir(ctx, flagDir, "/does/not/matter")
		assert.Equal(t, filepath.Join(flagDir, ".bulkport"), got)
	})

	t.Run("env var", func(t *testing.T) {
		envDir := t.TempDir()
		t.Setenv(config.EnvProjectDir, envDir)

		got := config.ResolveProjectDir(ctx, "", "/does/not/matter")
		assert.Equal(t, filepath.Join(envDir, ".bulkport"), got)
		assert.True(t, filepath.IsAbs(got))
	})

	t.Run("already suffixed", func(t *testing.T) {
		t.Setenv(config.EnvProjectDir, "")
		dir := filepath.Join(t.TempDir(), ".bulkport")

		assert.Equal(t, dir, config.ResolveProjectDir(ctx, dir, ""))
	})

	t.Run("walk up", func(t *testing.T) {
		t.Setenv(config.EnvProjectDir, "")
		root := t.TempDir()
		projectDir := makeProject(t, root)
		subDir := filepath.Join(root, "a", "b", "c")
		require.NoError(t, os.MkdirAll(subDir, 0o755))

		assert.Equal(t, projectDir, config.ResolveProjectDir(ctx, "", subDir))
	})

	t.Run("no project", func(t *testing.T) {
		t.Setenv(config.EnvProjectDir, "")
		assert.Empty(t, config.ResolveProjectDir(ctx, "", t.TempDir()))
	})
}

func TestFindProject(t *testing.T) {
	root := t.TempDir()
	makeProject(t, root)

	got, err := config.FindProject(filepath.Join(root, "x"))
	require.NoError(t, err)
	assert.Equal(t, root, got)

	_, err = config.FindProject(t.TempDir())
	assert.ErrorIs(t, err, config.ErrNoProject)
}

func TestFindProjectSkipsGlobalDir(t *testing.T) {
	home := t.TempDir()
	global := filepath.Join(home, config.ProjectDirName)
	require.NoError(t, os.MkdirAll(global, 0o750))
	t.Setenv(config.EnvHome, global)

	_, err := config.FindProject(filepath.Join(home, "work"))
	assert.ErrorIs(t, err, config.ErrNoProject)
}

func TestNewWithProjectDir(t *testing.T) {
	ctx := context.Background()
	t.Setenv(config.EnvHome, t.TempDir())
	t.Setenv(config.EnvAPIURL, "")
	t.Setenv(config.EnvConcurrency, "")

	t.Run("empty project dir", func(t *testing.T) {
		cfg := config.NewWithProjectDir(ctx, "")
		assert.Equal(t, config.DefaultConcurrency, cfg.Import.Concurrency)
	})

	t.Run("missing overlay", func(t *testing.T) {
		cfg := config.NewWithProjectDir(ctx, t.TempDir())
		assert.Equal(t, config.DefaultConcurrency, cfg.Import.Concurrency)
	})

	t.Run("overlay applied", func(t *testing.T) {
		projectDir := makeProject(t, t.TempDir())
		require.NoError(t, os.WriteFile(filepath.Join(projectDir, "config.yaml"),
			[]byte("api:\n  base_url: https://plant-a.example.com\n"), 0600))

		cfg := config.NewWithProjectDir(ctx, projectDir)
		assert.Equal(t, "https://plant-a.example.com", cfg.API.BaseURL)
		assert.Equal(t, config.DefaultConcurrency, cfg.Import.Concurrency)
	})

	t.Run("env beats overlay", func(t *testing.T) {
		t.Setenv(config.EnvAPIURL, "https://env.example.com")
		projectDir := makeProject(t, t.TempDir())
		require.NoError(t, os.WriteFile(filepath.Join(projectDir, "config.yaml"),
			[]byte("api:\n  base_url: https://plant-a.example.com\n"), 0600))

		cfg := config.NewWithProjectDir(ctx, projectDir)
		assert.Equal(t, "https://env.example.com", cfg.API.BaseURL)
	})

	t.Run("broken overlay falls back", func(t *testing.T) {
		projectDir := makeProject(t, t.TempDir())
		require.NoError(t, os.WriteFile(filepath.Join(projectDir, "config.yaml"),
			[]byte("api: [oops"), 0600))

		cfg := config.NewWithProjectDir(ctx, projectDir)
		assert.NotEmpty(t, cfg.API.BaseURL)
	})
}
