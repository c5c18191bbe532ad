package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dtstore.yaml")
	yaml := `
app_name: dtstore
storage:
  workdir: /tmp/dtstore-data
  table_prefix: dt_
log:
  level: info
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "dtstore", cfg.AppName)
	require.Equal(t, "/tmp/dtstore-data", cfg.Storage.Workdir)
	require.Equal(t, "dt_", cfg.Storage.TablePrefix)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
