package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ScalarGroupName(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", `
target_group_name: 科技区
retry_max: 3
retry_interval: 1
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StringList{"科技区"}, cfg.TargetGroupNames)
	assert.Equal(t, 3, cfg.RetryMax)
	assert.Equal(t, 1, cfg.RetryInterval)
}

func TestLoad_ListGroupNames(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", `
target_group_name:
  - 科技区
  - 游戏区
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StringList{"科技区", "游戏区"}, cfg.TargetGroupNames)
}

func TestLoad_GroupNameWrongKind(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", `
target_group_name:
  nested: map
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "string or a list of strings")
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", `
target_group_name: 科技区
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.RetryMax)
	assert.Equal(t, 5, cfg.RetryInterval)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, "data", cfg.DataDirectory)
	assert.False(t, cfg.Debug)
}

func TestLoad_MissingGroupName(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", `
retry_max: 3
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target_group_name")
}

func TestLoad_SeedsFromSample(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, sampleName, `
target_group_name: 示例分组
debug: true
`)

	path := filepath.Join(dir, "config.yaml")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StringList{"示例分组"}, cfg.TargetGroupNames)
	assert.True(t, cfg.Debug)

	// The seeded file must now exist for the user to edit.
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestLoad_MissingConfigAndSample(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sample")
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "target_group_name: [unclosed")

	_, err := Load(path)
	assert.Error(t, err)
}
