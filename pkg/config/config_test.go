package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreGlobal(t *testing.T) {
	saved := GlobalConfig
	t.Cleanup(func() { GlobalConfig = saved })
}

func TestInitTest(t *testing.T) {
	restoreGlobal(t)
	require.NoError(t, InitTest())

	assert.Equal(t, "sqlite", GlobalConfig.Database.Driver)
	assert.Equal(t, "test-secret", GlobalConfig.JWT.Secret)
	assert.Equal(t, time.Hour, GlobalConfig.JWT.Expiration)
	assert.Equal(t, 2, GlobalConfig.Worker.MaxWorkers)
	assert.Equal(t, "local", GlobalConfig.Export.Storage)
	// 默认值
	assert.Equal(t, "relief", GlobalConfig.Messaging.Kafka.TopicPrefix)
	assert.Equal(t, 24*time.Hour, GlobalConfig.Export.Minio.URLExpiry)
}

func TestInitFileWithEnvOverride(t *testing.T) {
	restoreGlobal(t)
	path := filepath.Join(t.TempDir(), "relief.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  driver: sqlite\n  dsn: file.db\nmessaging:\n  provider: log\n"), 0o644))
	t.Setenv("RELIEF_DATABASE_DSN", "override.db")

	require.NoError(t, InitFile(path))
	assert.Equal(t, "override.db", GlobalConfig.Database.DSN)
	assert.Equal(t, ":8080", GlobalConfig.Server.Addr)
	assert.Equal(t, 2*time.Minute, GlobalConfig.Worker.TaskTimeout)
}

func TestInitFileMissing(t *testing.T) {
	restoreGlobal(t)
	err := InitFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}
