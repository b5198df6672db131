package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3, cfg.Concurrency.PerFolderTasks)
	assert.Equal(t, "stdio", cfg.Server.Transport)
}

func TestLoadMergesFolderFileOverDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	yaml := "embeddings:\n  model_id: bge-m3\nconcurrency:\n  per_folder_tasks: 7\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".folderd.yaml"), []byte(yaml), 0644))

	resolved, err := Load(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, "bge-m3", resolved.Config.Embeddings.ModelID)
	assert.Equal(t, 7, resolved.Config.Concurrency.PerFolderTasks)
	assert.Equal(t, SourceFolder, resolved.SourceOf("embeddings.model_id"))
	assert.Equal(t, SourceDefault, resolved.SourceOf("server.log_level"))
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	yaml := "embeddings:\n  model_id: bge-m3\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".folderd.yaml"), []byte(yaml), 0644))
	t.Setenv("FOLDERD_EMBEDDINGS_MODEL_ID", "e5-large")

	resolved, err := Load(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, "e5-large", resolved.Config.Embeddings.ModelID)
	assert.Equal(t, SourceEnv, resolved.SourceOf("embeddings.model_id"))
}

func TestLoadEnvArrayOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("FOLDERD_FOLDERS_EXCLUDE", `["**/tmp/**","**/.cache/**"]`)

	resolved, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"**/tmp/**", "**/.cache/**"}, resolved.Config.Folders.Exclude)
}

func TestLoadFlagOverrideWinsOverEverything(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("FOLDERD_EMBEDDINGS_MODEL_ID", "e5-large")
	model := "flag-model"

	resolved, err := Load("", &Overrides{ModelID: &model})
	require.NoError(t, err)
	assert.Equal(t, "flag-model", resolved.Config.Embeddings.ModelID)
	assert.Equal(t, SourceFlag, resolved.SourceOf("embeddings.model_id"))
}

func TestValidateRejectsBadTransport(t *testing.T) {
	cfg := NewConfig()
	cfg.Server.Transport = "carrier-pigeon"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveConcurrency(t *testing.T) {
	cfg := NewConfig()
	cfg.Concurrency.PerFolderTasks = 0
	assert.Error(t, cfg.Validate())
}

func TestWriteYAMLRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := NewConfig()
	cfg.Embeddings.ModelID = "bge-m3"
	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := loadFileIfExists(path)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "bge-m3", loaded.Embeddings.ModelID)
}
