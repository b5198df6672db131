package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupUserConfigNoneExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path, err := BackupUserConfig()
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestBackupAndRestoreUserConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	require.NoError(t, os.MkdirAll(GetUserConfigDir(), 0755))
	require.NoError(t, NewConfig().WriteYAML(GetUserConfigPath()))

	backupPath, err := BackupUserConfig()
	require.NoError(t, err)
	require.NotEmpty(t, backupPath)

	require.NoError(t, os.WriteFile(GetUserConfigPath(), []byte("version: 99\n"), 0644))
	require.NoError(t, RestoreUserConfig(backupPath))

	restored, err := loadFileIfExists(GetUserConfigPath())
	require.NoError(t, err)
	assert.Equal(t, 1, restored.Version)
}

func TestCleanupKeepsOnlyMaxBackups(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	require.NoError(t, os.MkdirAll(GetUserConfigDir(), 0755))
	require.NoError(t, NewConfig().WriteYAML(GetUserConfigPath()))

	for i := 0; i < MaxBackups+2; i++ {
		_, err := BackupUserConfig()
		require.NoError(t, err)
	}

	backups, err := ListUserConfigBackups()
	require.NoError(t, err)
	assert.LessOrEqual(t, len(backups), MaxBackups)
}
